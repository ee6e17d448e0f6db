package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huiying1212/ai-rehearsal-coach/internal/capture"
	"github.com/huiying1212/ai-rehearsal-coach/internal/media"
)

func newProbeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <source>...",
		Short: "Show resolved metadata for media sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			resolver := media.FFprobeResolver{Binary: cfg.FFprobeBin}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, source := range args {
				info, err := resolver.Resolve(cmd.Context(), source)
				if err != nil {
					return err
				}
				if err := enc.Encode(map[string]any{"source": source, "info": info}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newCodecsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "codecs",
		Short: "List capture codec candidates and their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			prober := &capture.FFmpegProber{Binary: cfg.FFmpegBin}
			for _, c := range capture.DefaultCandidates {
				status := "unavailable"
				if prober.Supports(cmd.Context(), c) {
					status = "available"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-6s %-12s %s\n", c.Name, c.Container, c.MimeType, status)
			}
			return nil
		},
	}
}
