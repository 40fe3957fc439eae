package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"pagediff/internal/raster"
	"pagediff/internal/segment"

	"github.com/spf13/cobra"
)

func newSegmentCmd(a *app) *cobra.Command {
	var page int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "segment <file>",
		Short: "List the content regions of one page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := a.loadPage(cmd.Context(), args[0], page)
			if err != nil {
				return err
			}

			seg, err := a.segmenter().SegmentImage(img, a.cfg.Segment.Options())
			if err != nil {
				return fmt.Errorf("segment %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(seg)
			}

			fmt.Fprintf(out, "%s page %d: %dx%d, polarity %s (mean %.1f, threshold %.0f)\n",
				args[0], page, seg.Width, seg.Height, seg.Polarity, seg.Mean, seg.Threshold)
			fmt.Fprintf(out, "%d regions (%d candidates before deduplication)\n\n", len(seg.Regions), seg.Candidates)
			fmt.Fprintf(out, "%-6s %8s %8s %8s %8s\n", "#", "X", "Y", "Width", "Height")
			for i, r := range seg.Regions {
				fmt.Fprintf(out, "%-6d %8d %8d %8d %8d\n", i, r.X, r.Y, r.Width, r.Height)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number (1-based)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// loadPage renders one 1-based page of a document or image file.
func (a *app) loadPage(ctx context.Context, path string, page int) (image.Image, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	doc, err := raster.Open(path, a.cfg.Raster)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	img, err := doc.Page(ctx, page-1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// segmentOptions is exposed for commands that segment both sides.
func (a *app) segmentOptions() segment.Options {
	return a.cfg.Segment.Options()
}
