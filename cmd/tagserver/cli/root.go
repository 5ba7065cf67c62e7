package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leondli/tagserver/internal/infrastructure/config"
	"github.com/leondli/tagserver/internal/infrastructure/logger"
)

// VersionInfo is stamped at build time
type VersionInfo struct {
	Version string
	Commit  string
}

// Options is shared by all commands. Config is populated before any
// command runs.
type Options struct {
	ConfigPath string
	Config     *config.Config
}

// NewRootCommand creates the tagserver command. Running it without a
// subcommand starts the server.
func NewRootCommand(info VersionInfo, opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tagserver",
		Short:         "Tag registration service",
		Long:          "Registers hardware tags by MAC address and stores the JPEG images attached to them.",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.Config)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default is $CONFIG_PATH)")

	cmd.Version = fmt.Sprintf("%s.%s", info.Version, info.Commit)

	return cmd
}

func initConfig(opts *Options) error {
	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(&cfg.Log)
	opts.Config = cfg
	return nil
}
