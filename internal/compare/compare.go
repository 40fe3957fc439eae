// Package compare runs the region engine over page pairs of an original
// document and its converted counterpart and collects per-page reports.
package compare

import (
	"context"
	"fmt"
	"image"

	"pagediff/internal/match"
	"pagediff/internal/ocr"
	"pagediff/internal/raster"
	"pagediff/internal/segment"
	"pagediff/pkg/geometry"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Normalize selects how pages of different pixel size are made comparable.
type Normalize string

const (
	// NormalizeNone compares raw coordinates.
	NormalizeNone Normalize = "none"
	// NormalizeResample resizes the converted page to the original's size
	// before segmenting it.
	NormalizeResample Normalize = "resample"
	// NormalizeRegions segments the converted page at its own size and
	// scales its regions into the original's coordinate space.
	NormalizeRegions Normalize = "regions"
)

// Options selects per-run behaviour.
type Options struct {
	Segment   segment.Options
	Normalize Normalize
	TextCheck bool // Requires Comparer.OCR
}

// Comparer compares page images. Its fields are read-only once a
// comparison starts, so one Comparer can serve concurrent calls as long as
// its Matcher and OCR reader can.
type Comparer struct {
	Segmenter *segment.Segmenter
	Matcher   match.Matcher
	Logger    zerolog.Logger
	Workers   int
	OCR       ocr.Reader
}

// New creates a Comparer with a greedy matcher and a single worker.
func New(seg *segment.Segmenter, logger zerolog.Logger) *Comparer {
	if seg == nil {
		seg = segment.Default()
	}
	return &Comparer{
		Segmenter: seg,
		Matcher:   match.Greedy{Threshold: match.DefaultThreshold},
		Logger:    logger,
		Workers:   1,
	}
}

// ComparePage segments and matches one page pair. It never fails: a side
// that cannot be segmented is reported as StatusUnavailable and matching is
// skipped for that page.
func (c *Comparer) ComparePage(ctx context.Context, index int, original, converted image.Image, opts Options) PageReport {
	return c.comparePage(ctx, index, original, converted, nil, nil, opts)
}

func (c *Comparer) comparePage(ctx context.Context, index int, original, converted image.Image, origErr, convErr error, opts Options) PageReport {
	log := c.Logger.With().Int("page", index+1).Logger()
	rep := PageReport{
		Page:               index + 1,
		Matches:            []match.Match{},
		UnmatchedOriginal:  []geometry.RectInt{},
		UnmatchedConverted: []geometry.RectInt{},
	}

	if err := ctx.Err(); err != nil {
		origErr, convErr = err, err
	}

	var origSeg, convSeg segment.Segmentation
	rep.Original, origSeg = c.segmentSide(original, origErr, opts.Segment)

	// scaled holds the converted regions in original coordinates; native
	// keeps them in the pixel space of convImg for cropping.
	convImg := converted
	var sx, sy float64 = 1, 1
	if convErr == nil && converted != nil && original != nil && !sameSize(original, converted) {
		switch opts.Normalize {
		case NormalizeResample:
			ob := original.Bounds()
			convImg = raster.Resize(converted, ob.Dx(), ob.Dy())
			rep.Normalized = NormalizeResample
		case NormalizeRegions:
			sx, sy = raster.ScaleFactors(converted.Bounds(), original.Bounds())
			rep.Normalized = NormalizeRegions
		default:
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("page sizes differ: %v vs %v", original.Bounds().Size(), converted.Bounds().Size()))
		}
	}
	rep.Converted, convSeg = c.segmentSide(convImg, convErr, opts.Segment)
	for _, side := range []struct {
		name string
		rep  SideReport
	}{{"original", rep.Original}, {"converted", rep.Converted}} {
		if side.rep.Dropped > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %d regions dropped by the region cap", side.name, side.rep.Dropped))
		}
	}

	native := convSeg.Regions
	if rep.Normalized == NormalizeRegions && rep.Converted.Status != StatusUnavailable {
		scaled := make([]geometry.RectInt, len(native))
		for i, r := range native {
			scaled[i] = r.Scale(sx, sy)
		}
		rep.Converted.Regions = scaled
	}

	if !rep.Matched() {
		log.Warn().
			Str("original", string(rep.Original.Status)).
			Str("converted", string(rep.Converted.Status)).
			Msg("page comparison unavailable")
		return rep
	}

	res := c.matcher().Match(rep.Original.Regions, rep.Converted.Regions)
	rep.Matches = res.Matches
	rep.UnmatchedOriginal = res.UnmatchedOriginal
	rep.UnmatchedConverted = res.UnmatchedConverted
	rep.MeanIoU = res.MeanIoU()

	if opts.TextCheck && c.OCR != nil && len(rep.Matches) > 0 {
		checks, err := c.textChecks(original, convImg, origSeg.Regions, native, rep.Matches)
		if err != nil {
			log.Warn().Err(err).Msg("text check skipped")
			rep.Warnings = append(rep.Warnings, "text check skipped: "+err.Error())
		}
		rep.TextChecks = checks
	}

	log.Info().
		Int("regions_original", len(rep.Original.Regions)).
		Int("regions_converted", len(rep.Converted.Regions)).
		Int("matches", len(rep.Matches)).
		Float64("mean_iou", rep.MeanIoU).
		Msg("page compared")
	return rep
}

func (c *Comparer) segmentSide(img image.Image, renderErr error, opts segment.Options) (SideReport, segment.Segmentation) {
	if renderErr != nil {
		return SideReport{
			Status:  StatusUnavailable,
			Regions: []geometry.RectInt{},
			Error:   renderErr.Error(),
		}, segment.Segmentation{}
	}

	seg, err := c.segmenter().SegmentImage(img, opts)
	if err != nil {
		return SideReport{
			Status:    StatusUnavailable,
			Regions:   []geometry.RectInt{},
			ErrorKind: segment.KindOf(err),
			Error:     err.Error(),
		}, segment.Segmentation{}
	}

	side := SideReport{
		Status:    StatusOK,
		Regions:   seg.Regions,
		Polarity:  seg.Polarity,
		Threshold: seg.Threshold,
		Width:     seg.Width,
		Height:    seg.Height,
		Dropped:   seg.Dropped,
	}
	if len(seg.Regions) == 0 {
		side.Status = StatusNoContent
		side.Regions = []geometry.RectInt{}
	}
	return side, seg
}

// textChecks crops every matched pair and compares the OCR text of the two
// crops. origRegions and convRegions are in the pixel spaces of the images.
func (c *Comparer) textChecks(original, converted image.Image, origRegions, convRegions []geometry.RectInt, matches []match.Match) ([]TextCheck, error) {
	origBoxes := make([]geometry.RectInt, len(matches))
	convBoxes := make([]geometry.RectInt, len(matches))
	for i, m := range matches {
		origBoxes[i] = origRegions[m.OriginalIndex]
		convBoxes[i] = convRegions[m.ConvertedIndex]
	}

	origCrops, err := segment.CropRegionsFromImage(original, origBoxes)
	if err != nil {
		return nil, fmt.Errorf("crop original: %w", err)
	}
	convCrops, err := segment.CropRegionsFromImage(converted, convBoxes)
	if err != nil {
		return nil, fmt.Errorf("crop converted: %w", err)
	}

	checks := make([]TextCheck, len(matches))
	for i := range matches {
		checks[i].Match = i
		a, errA := c.OCR.ReadPNG(origCrops[i])
		b, errB := c.OCR.ReadPNG(convCrops[i])
		if err := firstErr(errA, errB); err != nil {
			checks[i].Error = err.Error()
			continue
		}
		checks[i].Original = a
		checks[i].Converted = b
		checks[i].Agreement = ocr.CompareText(a, b)
	}
	return checks, nil
}

// CompareDocuments compares the common page prefix of two documents with a
// bounded pool of workers. Pages come back in document order. A page that
// fails to render is reported unavailable; only cancellation of ctx aborts
// the run.
func (c *Comparer) CompareDocuments(ctx context.Context, original, converted raster.Document, opts Options) (*Report, error) {
	rep := &Report{
		OriginalPages:  original.PageCount(),
		ConvertedPages: converted.PageCount(),
	}
	n := min(rep.OriginalPages, rep.ConvertedPages)
	if rep.PageCountMismatch() {
		c.Logger.Warn().
			Int("original_pages", rep.OriginalPages).
			Int("converted_pages", rep.ConvertedPages).
			Msg("page counts differ, comparing common pages only")
	}

	rep.Pages = make([]PageReport, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.Workers))

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			origImg, origErr := original.Page(gctx, i)
			convImg, convErr := converted.Page(gctx, i)
			if err := gctx.Err(); err != nil {
				return err
			}
			rep.Pages[i] = c.comparePage(gctx, i, origImg, convImg, renderError(origErr), renderError(convErr), opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compare documents: %w", err)
	}

	s := rep.Summary()
	c.Logger.Info().
		Int("pages", s.Pages).
		Int("matches", s.Matches).
		Int("unmatched_original", s.UnmatchedOriginal).
		Int("unmatched_converted", s.UnmatchedConverted).
		Int("unavailable_sides", s.UnavailableSides).
		Msg("documents compared")
	return rep, nil
}

func (c *Comparer) segmenter() *segment.Segmenter {
	if c.Segmenter == nil {
		return segment.Default()
	}
	return c.Segmenter
}

func (c *Comparer) matcher() match.Matcher {
	if c.Matcher == nil {
		return match.Greedy{Threshold: match.DefaultThreshold}
	}
	return c.Matcher
}

func sameSize(a, b image.Image) bool {
	return a.Bounds().Size() == b.Bounds().Size()
}

func renderError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("render: %w", err)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
