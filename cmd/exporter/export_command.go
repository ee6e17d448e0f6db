package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/huiying1212/ai-rehearsal-coach/internal/export"
)

func newExportCommand(configFlag *string) *cobra.Command {
	var outFlag string

	cmd := &cobra.Command{
		Use:   "export <manifest.json>",
		Short: "Render a rehearsal manifest into one recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			job, err := export.LoadManifest(args[0])
			if err != nil {
				return err
			}

			engine := export.New(export.Options{
				Config: cfg,
				Progress: func(p export.Progress) {
					if p.Segment > 0 {
						log.Printf("Export %s: %d%% (segment %d/%d)", p.Stage, p.Percent, p.Segment, p.Total)
						return
					}
					log.Printf("Export %s: %d%%", p.Stage, p.Percent)
				},
			})
			out, err := engine.Export(cmd.Context(), job)
			if err != nil {
				return err
			}

			path := outFlag
			if path == "" {
				path = "rehearsal" + out.Codec.Ext
			} else if filepath.Ext(path) == "" {
				path += out.Codec.Ext
			}
			if err := os.WriteFile(path, out.Data, 0o644); err != nil {
				return err
			}
			log.Printf("Wrote %s (%d bytes, %s)", path, len(out.Data), out.Codec.MimeType)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFlag, "output", "o", "", "output file path (extension follows the negotiated codec)")
	return cmd
}
