package compare

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"
	"testing"

	"pagediff/internal/match"
	"pagediff/internal/raster"
	"pagediff/internal/segment"
	"pagediff/pkg/geometry"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dilation grows every block by 6px on each side.
const grow = 6

var blocks = []geometry.RectInt{
	geometry.NewRectInt(50, 40, 200, 60),
	geometry.NewRectInt(320, 40, 220, 60),
	geometry.NewRectInt(50, 200, 490, 250),
	geometry.NewRectInt(50, 560, 300, 120),
}

// page draws blocks onto a white w x h page, scaling the block coordinates
// from a 600x800 layout.
func page(w, h int, boxes []geometry.RectInt) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	sx, sy := float64(w)/600, float64(h)/800
	for _, b := range boxes {
		r := b.Scale(sx, sy)
		draw.Draw(img, r.ImageRect(), image.NewUniform(color.Gray{Y: 0}), image.Point{}, draw.Src)
	}
	return img
}

func testComparer(t *testing.T) *Comparer {
	c := New(segment.Default(), zerolog.New(zerolog.NewTestWriter(t)))
	c.Workers = 3
	return c
}

func TestComparePage_Identical(t *testing.T) {
	img := page(600, 800, blocks)

	rep := testComparer(t).ComparePage(context.Background(), 0, img, img, Options{})

	assert.Equal(t, 1, rep.Page)
	assert.Equal(t, StatusOK, rep.Original.Status)
	assert.Equal(t, StatusOK, rep.Converted.Status)
	require.Len(t, rep.Matches, len(blocks))
	for _, m := range rep.Matches {
		assert.InDelta(t, 1.0, m.IoU, 1e-9)
	}
	assert.Empty(t, rep.UnmatchedOriginal)
	assert.Empty(t, rep.UnmatchedConverted)
	assert.InDelta(t, 1.0, rep.MeanIoU, 1e-9)
	assert.Equal(t, segment.PolarityLight, rep.Original.Polarity)
}

func TestComparePage_MissingBlock(t *testing.T) {
	orig := page(600, 800, blocks)
	conv := page(600, 800, blocks[:3])

	rep := testComparer(t).ComparePage(context.Background(), 2, orig, conv, Options{})

	assert.Equal(t, 3, rep.Page)
	assert.Len(t, rep.Matches, 3)
	require.Len(t, rep.UnmatchedOriginal, 1)
	assert.Equal(t, geometry.NewRectInt(50-grow, 560-grow, 300+2*grow, 120+2*grow), rep.UnmatchedOriginal[0])
	assert.Empty(t, rep.UnmatchedConverted)
}

func TestComparePage_ShiftedBlocks(t *testing.T) {
	shifted := make([]geometry.RectInt, len(blocks))
	for i, b := range blocks {
		b.Y += 10
		shifted[i] = b
	}

	rep := testComparer(t).ComparePage(context.Background(), 0, page(600, 800, blocks), page(600, 800, shifted), Options{})

	require.Len(t, rep.Matches, len(blocks))
	assert.Less(t, rep.MeanIoU, 1.0)
	assert.Greater(t, rep.MeanIoU, 0.5)
}

func TestComparePage_BlankConvertedIsNoContent(t *testing.T) {
	rep := testComparer(t).ComparePage(context.Background(), 0, page(600, 800, blocks), page(600, 800, nil), Options{})

	assert.Equal(t, StatusOK, rep.Original.Status)
	assert.Equal(t, StatusNoContent, rep.Converted.Status)
	assert.True(t, rep.Matched(), "a blank page is still matched")
	assert.Empty(t, rep.Matches)
	assert.Len(t, rep.UnmatchedOriginal, len(blocks))
}

func TestComparePage_UnavailableSide(t *testing.T) {
	rep := testComparer(t).ComparePage(context.Background(), 0, nil, page(600, 800, blocks), Options{})

	assert.Equal(t, StatusUnavailable, rep.Original.Status)
	assert.Equal(t, segment.KindEmptyInput, rep.Original.ErrorKind)
	assert.NotEmpty(t, rep.Original.Error)
	assert.Equal(t, StatusOK, rep.Converted.Status)
	assert.False(t, rep.Matched())
	assert.Empty(t, rep.Matches)
	assert.Empty(t, rep.UnmatchedConverted, "nothing is reported unmatched against a missing side")
}

func TestComparePage_NormalizeResample(t *testing.T) {
	orig := page(600, 800, blocks)
	conv := page(1200, 1600, blocks)

	rep := testComparer(t).ComparePage(context.Background(), 0, orig, conv, Options{Normalize: NormalizeResample})

	assert.Equal(t, NormalizeResample, rep.Normalized)
	assert.Equal(t, 600, rep.Converted.Width)
	require.Len(t, rep.Matches, len(blocks))
	assert.Greater(t, rep.MeanIoU, 0.8)
}

func TestComparePage_NormalizeRegions(t *testing.T) {
	orig := page(600, 800, blocks)
	conv := page(1200, 1600, blocks)

	rep := testComparer(t).ComparePage(context.Background(), 0, orig, conv, Options{Normalize: NormalizeRegions})

	assert.Equal(t, NormalizeRegions, rep.Normalized)
	assert.Equal(t, 1200, rep.Converted.Width)
	require.Len(t, rep.Matches, len(blocks))
	for _, m := range rep.Matches {
		assert.True(t, m.Original.Contains(m.Converted), "%s should sit inside %s", m.Converted, m.Original)
	}
	assert.Greater(t, rep.MeanIoU, 0.8)
}

func TestComparePage_SizeMismatchWithoutNormalisation(t *testing.T) {
	rep := testComparer(t).ComparePage(context.Background(), 0, page(600, 800, blocks), page(1200, 1600, blocks), Options{Normalize: NormalizeNone})

	assert.Empty(t, rep.Normalized)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "page sizes differ")
}

func TestComparePage_RegionCapWarns(t *testing.T) {
	c := testComparer(t)
	c.Segmenter = segment.NewSegmenter(segment.DefaultParams().WithLimits(0, 2), zerolog.Nop())
	img := page(600, 800, blocks)

	rep := c.ComparePage(context.Background(), 0, img, img, Options{})

	assert.Equal(t, 2, rep.Original.Dropped)
	assert.Equal(t, 2, rep.Converted.Dropped)
	assert.Len(t, rep.Matches, 2)
	assert.Equal(t, []string{
		"original: 2 regions dropped by the region cap",
		"converted: 2 regions dropped by the region cap",
	}, rep.Warnings)
}

func TestComparePage_OptimalMatcher(t *testing.T) {
	c := testComparer(t)
	c.Matcher = match.Optimal{Threshold: match.DefaultThreshold}
	img := page(600, 800, blocks)

	rep := c.ComparePage(context.Background(), 0, img, img, Options{})
	assert.Len(t, rep.Matches, len(blocks))
}

func TestComparePage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img := page(600, 800, blocks)

	rep := testComparer(t).ComparePage(ctx, 0, img, img, Options{})
	assert.Equal(t, StatusUnavailable, rep.Original.Status)
	assert.Equal(t, StatusUnavailable, rep.Converted.Status)
}

type fakeOCR struct {
	calls atomic.Int32
	text  func(call int32) (string, error)
}

func (f *fakeOCR) ReadPNG(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty crop")
	}
	return f.text(f.calls.Add(1))
}

func TestComparePage_TextCheck(t *testing.T) {
	c := testComparer(t)
	reader := &fakeOCR{text: func(int32) (string, error) { return "Quarterly report", nil }}
	c.OCR = reader
	img := page(600, 800, blocks)

	rep := c.ComparePage(context.Background(), 0, img, img, Options{TextCheck: true})

	require.Len(t, rep.TextChecks, len(blocks))
	for i, tc := range rep.TextChecks {
		assert.Equal(t, i, tc.Match)
		assert.Empty(t, tc.Error)
		assert.InDelta(t, 1.0, tc.Agreement, 1e-9)
	}
	assert.EqualValues(t, 2*len(blocks), reader.calls.Load())
}

func TestComparePage_TextCheckReadError(t *testing.T) {
	c := testComparer(t)
	c.OCR = &fakeOCR{text: func(call int32) (string, error) {
		if call == 1 {
			return "", errors.New("tesseract unavailable")
		}
		return "text", nil
	}}
	img := page(600, 800, blocks)

	rep := c.ComparePage(context.Background(), 0, img, img, Options{TextCheck: true})

	require.Len(t, rep.TextChecks, len(blocks))
	assert.Equal(t, "tesseract unavailable", rep.TextChecks[0].Error)
	assert.Empty(t, rep.TextChecks[1].Error)
}

func TestComparePage_TextCheckDisabledWithoutReader(t *testing.T) {
	img := page(600, 800, blocks)
	rep := testComparer(t).ComparePage(context.Background(), 0, img, img, Options{TextCheck: true})
	assert.Empty(t, rep.TextChecks)
}

// pagesDoc serves fixed page images; a nil entry fails to render.
type pagesDoc struct {
	pages []image.Image
}

func (d pagesDoc) PageCount() int { return len(d.pages) }

func (d pagesDoc) Page(ctx context.Context, i int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.pages[i] == nil {
		return nil, errors.New("corrupt page stream")
	}
	return d.pages[i], nil
}

func (d pagesDoc) Close() error { return nil }

func TestCompareDocuments(t *testing.T) {
	full := page(600, 800, blocks)
	partial := page(600, 800, blocks[:2])

	orig := pagesDoc{pages: []image.Image{full, full, full, full}}
	conv := pagesDoc{pages: []image.Image{full, partial, nil, full, full}}

	rep, err := testComparer(t).CompareDocuments(context.Background(), orig, conv, Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, rep.OriginalPages)
	assert.Equal(t, 5, rep.ConvertedPages)
	assert.True(t, rep.PageCountMismatch())
	require.Len(t, rep.Pages, 4)
	for i, p := range rep.Pages {
		assert.Equal(t, i+1, p.Page, "pages are reported in document order")
	}

	assert.Len(t, rep.Pages[0].Matches, 4)
	assert.Len(t, rep.Pages[1].Matches, 2)
	assert.Len(t, rep.Pages[1].UnmatchedOriginal, 2)
	assert.Equal(t, StatusUnavailable, rep.Pages[2].Converted.Status)
	assert.Contains(t, rep.Pages[2].Converted.Error, "corrupt page stream")

	s := rep.Summary()
	assert.Equal(t, 4, s.Pages)
	assert.True(t, s.PageCountMismatch)
	assert.Equal(t, 4+2+4, s.Matches)
	assert.Equal(t, 2, s.UnmatchedOriginal)
	assert.Equal(t, 0, s.UnmatchedConverted)
	assert.Equal(t, 1, s.UnavailableSides)
	assert.InDelta(t, 1.0, s.MeanIoU, 1e-9)
}

func TestCompareDocuments_ImageDocuments(t *testing.T) {
	orig := raster.FromImage(page(600, 800, blocks))
	conv := raster.FromImage(page(600, 800, blocks[1:]))

	rep, err := testComparer(t).CompareDocuments(context.Background(), orig, conv, Options{})
	require.NoError(t, err)
	require.Len(t, rep.Pages, 1)
	assert.False(t, rep.PageCountMismatch())
	assert.Len(t, rep.Pages[0].Matches, 3)
}

func TestCompareDocuments_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := pagesDoc{pages: []image.Image{page(600, 800, blocks)}}

	_, err := testComparer(t).CompareDocuments(ctx, doc, doc, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareDocuments_Empty(t *testing.T) {
	rep, err := testComparer(t).CompareDocuments(context.Background(), pagesDoc{}, pagesDoc{}, Options{})
	require.NoError(t, err)
	assert.Empty(t, rep.Pages)
	assert.Zero(t, rep.Summary().MeanIoU)
}
