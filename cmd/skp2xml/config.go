package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/skp2xml/internal/config"
)

func (a *app) configCmd() *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file and
flags. With --save the result is written to a file instead; pass
--save=default to write the per-user config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if save == "" {
				return a.cfg.Encode(a.stdout)
			}
			path := save
			if path == "default" {
				path = config.DefaultPath()
			}
			if err := a.cfg.SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "write the configuration to this path")
	return cmd
}
