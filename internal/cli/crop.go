package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"pagediff/internal/segment"

	"github.com/spf13/cobra"
)

func newCropCmd(a *app) *cobra.Command {
	var page int
	var outDir string

	cmd := &cobra.Command{
		Use:   "crop <file>",
		Short: "Write every region of a page as a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := a.loadPage(cmd.Context(), args[0], page)
			if err != nil {
				return err
			}
			seg, err := a.segmenter().SegmentImage(img, a.segmentOptions())
			if err != nil {
				return fmt.Errorf("segment %s: %w", args[0], err)
			}
			if len(seg.Regions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no content regions found")
				return nil
			}

			crops, err := segment.CropRegionsFromImage(img, seg.Regions)
			if err != nil {
				return fmt.Errorf("crop %s: %w", args[0], err)
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			for i, data := range crops {
				r := seg.Regions[i]
				name := filepath.Join(outDir, fmt.Sprintf("p%03d_r%03d_%d_%d_%dx%d.png", page, i, r.X, r.Y, r.Width, r.Height))
				if err := os.WriteFile(name, data, 0o644); err != nil {
					return fmt.Errorf("write crop: %w", err)
				}
			}
			a.logger.Info().Int("regions", len(crops)).Str("dir", outDir).Msg("crops written")
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d crops to %s\n", len(crops), outDir)
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number (1-based)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "crops", "output directory")
	return cmd
}
