package main

import (
	"github.com/spf13/cobra"

	"github.com/huiying1212/ai-rehearsal-coach/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "exporter",
		Short:         "Rehearsal recording exporter",
		Long:          "Assembles synthesized speech and gesture clips into one synchronized recording.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "configuration file path")

	rootCmd.AddCommand(newExportCommand(&configFlag))
	rootCmd.AddCommand(newProbeCommand(&configFlag))
	rootCmd.AddCommand(newCodecsCommand(&configFlag))
	return rootCmd
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Load()
		return cfg, cfg.Validate()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
