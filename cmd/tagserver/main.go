package main

import (
	"fmt"
	"os"

	"github.com/leondli/tagserver/cmd/tagserver/cli"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	opts := &cli.Options{}
	root := cli.NewRootCommand(cli.VersionInfo{
		Version: version,
		Commit:  commit,
	}, opts)

	root.AddCommand(cli.NewServeCommand(opts))
	root.AddCommand(cli.NewMigrateCommand(opts))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
