// Package cli implements the pagediff command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"pagediff/internal/compare"
	"pagediff/internal/config"
	"pagediff/internal/match"
	"pagediff/internal/observability"
	"pagediff/internal/segment"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCmd builds the command tree. Output goes to the command's out and
// err writers so tests can capture it.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "pagediff",
		Short: "Compare page layout of an original document and its conversion",
		Long: `pagediff renders both documents page by page, decomposes each page into
rectangular content regions and pairs the regions across the two documents by
overlap. Regions without a partner point at content that moved, vanished or
appeared during conversion.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (console or json)")

	root.AddCommand(
		newSegmentCmd(a),
		newMatchCmd(a),
		newCropCmd(a),
		newCompareCmd(a),
		newRunsCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command against os.Args. An interrupt cancels the
// running comparison.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) init(stderr io.Writer) error {
	cfg, err := config.Load(config.Resolve(a.cfgFile))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	cfg.Log.Output = stderr

	a.cfg = cfg
	a.logger = observability.NewLogger(cfg.Log)
	return nil
}

func (a *app) segmenter() *segment.Segmenter {
	return segment.NewSegmenter(a.cfg.Segment.Params, a.logger)
}

func (a *app) matcher() (match.Matcher, error) {
	return match.New(a.cfg.Match.Strategy, a.cfg.Match.Threshold)
}

func (a *app) comparer() (*compare.Comparer, error) {
	m, err := a.matcher()
	if err != nil {
		return nil, err
	}
	c := compare.New(a.segmenter(), a.logger)
	c.Matcher = m
	c.Workers = a.cfg.Pipeline.Workers
	return c, nil
}

// outputFile opens path for writing, or returns stdout for "" and "-".
func outputFile(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
