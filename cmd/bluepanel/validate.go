package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chess10kp/bluepanel/internal/config"
	"github.com/chess10kp/bluepanel/internal/panel"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var (
		panelToo     bool
		writeDefault bool
	)

	cmd := &cobra.Command{
		Use:   "validate-config [path]",
		Short: "Check a daemon config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if len(args) > 0 {
				path = args[0]
			}
			out := cmd.OutOrStdout()

			if writeDefault {
				written, err := writeDefaultConfig(path)
				if err != nil {
					return err
				}
				if written {
					fmt.Fprintf(out, "Wrote default config to %s\n", path)
				}
			}

			fmt.Fprintf(out, "Validating config: %s\n", path)
			if err := config.ValidateConfig(path); err != nil {
				fmt.Fprintf(out, "Config validation failed: %v\n", err)
				return err
			}

			if panelToo {
				cfg, err := config.LoadConfig(path)
				if err != nil {
					return err
				}
				if _, err := panel.ReadFile(cfg.Panel.ConfigPath); err != nil {
					fmt.Fprintf(out, "Panel config %s is invalid: %v\n", cfg.Panel.ConfigPath, err)
					return err
				}
			}

			fmt.Fprintln(out, "Config is valid!")
			return nil
		},
	}

	cmd.Flags().BoolVar(&panelToo, "panel", false, "also validate the panel JSON config it points to")
	cmd.Flags().BoolVar(&writeDefault, "write-default", false, "write the default config first if the file does not exist")
	return cmd
}

// writeDefaultConfig saves the defaults to path unless a file is already
// there.
func writeDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(config.ExpandPath(path)); err == nil {
		return false, nil
	}
	if err := config.SaveConfig(config.Default(), path); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}
