package cli

import (
	"fmt"

	"pagediff/internal/compare"

	"github.com/spf13/cobra"
)

func newMatchCmd(a *app) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "match <original> <converted>",
		Short: "Pair the regions of one page across two files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orig, err := a.loadPage(cmd.Context(), args[0], page)
			if err != nil {
				return err
			}
			conv, err := a.loadPage(cmd.Context(), args[1], page)
			if err != nil {
				return err
			}

			c, err := a.comparer()
			if err != nil {
				return err
			}
			rep := c.ComparePage(cmd.Context(), page-1, orig, conv, compare.Options{
				Segment:   a.segmentOptions(),
				Normalize: a.cfg.Pipeline.Normalize,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "original: %s, %d regions\n", rep.Original.Status, len(rep.Original.Regions))
			fmt.Fprintf(out, "converted: %s, %d regions\n\n", rep.Converted.Status, len(rep.Converted.Regions))
			if !rep.Matched() {
				for _, side := range []compare.SideReport{rep.Original, rep.Converted} {
					if side.Error != "" {
						fmt.Fprintf(out, "error: %s\n", side.Error)
					}
				}
				return fmt.Errorf("page %d could not be compared", page)
			}

			fmt.Fprintf(out, "%-24s %-24s %6s\n", "Original", "Converted", "IoU")
			for _, m := range rep.Matches {
				fmt.Fprintf(out, "%-24s %-24s %6.3f\n", m.Original, m.Converted, m.IoU)
			}
			for _, r := range rep.UnmatchedOriginal {
				fmt.Fprintf(out, "%-24s %-24s %6s\n", r, "-", "")
			}
			for _, r := range rep.UnmatchedConverted {
				fmt.Fprintf(out, "%-24s %-24s %6s\n", "-", r, "")
			}
			fmt.Fprintf(out, "\n%d matched, %d only in original, %d only in converted, mean IoU %.3f\n",
				len(rep.Matches), len(rep.UnmatchedOriginal), len(rep.UnmatchedConverted), rep.MeanIoU)
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number (1-based)")
	return cmd
}
