package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/leondli/tagserver/internal/adapter/repository"
	"github.com/leondli/tagserver/internal/infrastructure/database"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(opts *Options) *cobra.Command {
	var recreate bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the tag table",
		Long:  `Create or update the tag table. With --recreate the table is dropped first and all tags are lost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.Config

			db, err := database.Open(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close(db)

			ctx := cmd.Context()
			if recreate {
				if err := database.Ping(ctx, db); err != nil {
					return fmt.Errorf("database unreachable: %w", err)
				}
				return database.Recreate(ctx, db, repository.Models()...)
			}

			if err := database.EnsureSchema(ctx, db, cfg.Database.Retry, repository.Models()...); err != nil {
				return err
			}
			log.Info().Msg("Schema is up to date")
			return nil
		},
	}

	cmd.Flags().BoolVar(&recreate, "recreate", false, "drop and recreate the tag table")

	return cmd
}
