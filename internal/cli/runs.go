package cli

import (
	"fmt"

	"pagediff/internal/report"

	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	var store string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List comparison runs recorded in the run store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if store == "" {
				store = a.cfg.Report.Store
			}
			if store == "" {
				return fmt.Errorf("no run store configured (use --store or report.store)")
			}

			st, err := report.Open(store)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-5s %-20s %-8s %6s %8s %10s %10s %8s\n",
				"ID", "Started", "Strategy", "Pages", "Matches", "Only orig", "Only conv", "IoU")
			for _, r := range runs {
				fmt.Fprintf(out, "%-5d %-20s %-8s %6d %8d %10d %10d %8.3f\n",
					r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Strategy,
					r.Summary.Pages, r.Summary.Matches, r.Summary.UnmatchedOriginal,
					r.Summary.UnmatchedConverted, r.Summary.MeanIoU)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "SQLite run store (default report.store)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
