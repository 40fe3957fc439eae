package cli

import (
	"errors"
	"fmt"
	"time"

	"pagediff/internal/ocr"
	"pagediff/internal/raster"
	"pagediff/internal/report"

	"github.com/spf13/cobra"
)

func newCompareCmd(a *app) *cobra.Command {
	var output, format, store string
	var textCheck bool

	cmd := &cobra.Command{
		Use:   "compare <original> <converted>",
		Short: "Compare every page of two documents and print a report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			started := time.Now()

			if cmd.Flags().Changed("format") {
				a.cfg.Report.Format = format
			}
			if cmd.Flags().Changed("store") {
				a.cfg.Report.Store = store
			}
			opts := a.cfg.CompareOptions()
			if cmd.Flags().Changed("text") {
				opts.TextCheck = textCheck
			}

			orig, err := raster.Open(args[0], a.cfg.Raster)
			if err != nil {
				return err
			}
			defer orig.Close()
			conv, err := raster.Open(args[1], a.cfg.Raster)
			if err != nil {
				return err
			}
			defer conv.Close()

			c, err := a.comparer()
			if err != nil {
				return err
			}
			if opts.TextCheck {
				engine, err := ocr.NewEngine(a.cfg.OCR.Config)
				if err != nil {
					return fmt.Errorf("start OCR: %w", err)
				}
				defer engine.Close()
				c.OCR = engine
			}

			rep, err := c.CompareDocuments(ctx, orig, conv, opts)
			if err != nil {
				return err
			}

			meta := report.RunMeta{
				Original:  args[0],
				Converted: args[1],
				Strategy:  string(a.cfg.Match.Strategy),
				StartedAt: started,
				Duration:  time.Since(started),
			}

			if a.cfg.Report.Store != "" {
				st, err := report.Open(a.cfg.Report.Store)
				if err != nil {
					return err
				}
				defer st.Close()
				id, err := st.SaveRun(ctx, meta, rep)
				if err != nil {
					return err
				}
				a.logger.Info().Int64("run", id).Str("store", a.cfg.Report.Store).Msg("run saved")
			}

			w, closeOut, err := outputFile(cmd, output)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, closeOut()) }()
			return report.Write(w, a.cfg.Report.Format, report.NewDocument(meta, rep))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "report file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "report format (json or yaml)")
	cmd.Flags().StringVar(&store, "store", "", "SQLite database to record the run in")
	cmd.Flags().BoolVar(&textCheck, "text", false, "compare OCR text of matched regions")
	return cmd
}
