package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const configEnv = "COURIER_CONFIG"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "courier",
		Short:         "Token-authenticated notification fan-out service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv(configEnv), "YAML configuration file (env "+configEnv+")")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newMigrateCommand(&configPath))
	return root
}
