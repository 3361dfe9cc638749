package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chess10kp/bluepanel/internal/config"
)

type rootOptions struct {
	configPath string
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serveOpts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "bluepanel",
		Short: "Local backend for the blue panel and launcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, serveOpts)
		},
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to the daemon config file (.toml or .yaml)")
	addServeFlags(cmd.Flags(), serveOpts)

	cmd.AddCommand(
		newServeCmd(opts),
		newAppsCmd(opts),
		newValidateCmd(opts),
		newLaunchCmd(opts),
		newFavoriteCmd(opts),
	)

	return cmd
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadAndValidateConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.configPath, err)
	}
	return cfg, nil
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	return f != nil && f.Changed
}
