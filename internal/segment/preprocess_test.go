package segment

import (
	"testing"

	"pagediff/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestResolvePolarity(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name      string
		requested Polarity
		mean      float64
		want      Polarity
	}{
		{"auto bright", PolarityAuto, 200, PolarityLight},
		{"auto dark", PolarityAuto, 40, PolarityDark},
		{"auto at threshold is dark", PolarityAuto, 130, PolarityDark},
		{"auto just above threshold", PolarityAuto, 130.01, PolarityLight},
		{"forced light ignores mean", PolarityLight, 10, PolarityLight},
		{"forced dark ignores mean", PolarityDark, 250, PolarityDark},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePolarity(tt.requested, tt.mean, p))
		})
	}
}

func TestPreprocess_ContentIsForeground(t *testing.T) {
	img := blankPage()
	fillRect(img, geometry.NewRectInt(100, 100, 40, 40), ink)

	tests := []struct {
		name     string
		polarity Polarity
	}{
		{"light page", PolarityLight},
		{"dark page", PolarityDark},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := img
			if tt.polarity == PolarityDark {
				src = invert(img)
			}
			mat, err := imageToMat("test", src)
			require.NoError(t, err)
			defer mat.Close()

			bin, err := Preprocess(mat, PolarityAuto, DefaultParams())
			require.NoError(t, err)
			defer bin.Close()

			assert.Equal(t, tt.polarity, bin.Polarity)
			assert.Equal(t, uint8(255), bin.Mask.GetUCharAt(120, 120), "content pixel")
			assert.Equal(t, uint8(0), bin.Mask.GetUCharAt(10, 10), "background pixel")
			assert.Equal(t, 1, bin.Mask.Channels())
		})
	}
}

// Two historical code paths disagreed on which threshold direction a light
// page should get. The unified rule is: light => inverted threshold, dark =>
// plain threshold, so content is always 255. Forcing the opposite polarity
// turns the paper into foreground, and the whole page collapses into one
// region.
func TestPreprocess_PolarityDiscrepancyPinned(t *testing.T) {
	img := blankPage()
	fillRect(img, geometry.NewRectInt(100, 100, 40, 40), ink)
	fillRect(img, geometry.NewRectInt(300, 500, 40, 40), ink)

	s := Default()

	right, err := s.SegmentImage(img, Options{Polarity: PolarityLight})
	require.NoError(t, err)
	assert.Len(t, right.Regions, 2)

	wrong, err := s.SegmentImage(img, Options{Polarity: PolarityDark})
	require.NoError(t, err)
	require.Len(t, wrong.Regions, 1)
	// Forcing the opposite polarity turns the paper into one page-sized block.
	assert.True(t, wrong.Regions[0].Contains(geometry.NewRectInt(1, 1, pageW-2, pageH-2)), "got %s", wrong.Regions[0])
}

func TestPreprocess_EmptyMat(t *testing.T) {
	mat := gocv.NewMat()
	defer mat.Close()

	_, err := Preprocess(mat, PolarityAuto, DefaultParams())
	require.Error(t, err)
	assert.Equal(t, KindEmptyInput, KindOf(err))
}

func TestParsePolarityAndLayout(t *testing.T) {
	p, ok := ParsePolarity("dark")
	assert.True(t, ok)
	assert.Equal(t, PolarityDark, p)

	_, ok = ParsePolarity("sepia")
	assert.False(t, ok)

	l, ok := ParseLayout("dense")
	assert.True(t, ok)
	assert.Equal(t, LayoutDense, l)

	var pol Polarity
	require.NoError(t, pol.UnmarshalText([]byte("light")))
	assert.Equal(t, PolarityLight, pol)
	text, err := PolarityDark.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "dark", string(text))
}
