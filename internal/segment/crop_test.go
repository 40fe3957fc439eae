package segment

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"pagediff/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropRegionsFromImage(t *testing.T) {
	page := referencePages()[1].img
	seg, err := Default().SegmentImage(page, Options{})
	require.NoError(t, err)

	bufs, err := CropRegionsFromImage(page, seg.Regions)
	require.NoError(t, err)
	require.Len(t, bufs, len(seg.Regions))

	for i, buf := range bufs {
		cfg, err := png.DecodeConfig(bytes.NewReader(buf))
		require.NoError(t, err, "crop %d is not a PNG", i)
		assert.Equal(t, seg.Regions[i].Width, cfg.Width)
		assert.Equal(t, seg.Regions[i].Height, cfg.Height)
	}
}

func TestCropRegions_ClampsToImage(t *testing.T) {
	bufs, err := CropRegionsFromImage(blankPage(), []geometry.RectInt{geometry.NewRectInt(pageW-10, -5, 40, 25)})
	require.NoError(t, err)
	require.Len(t, bufs, 1)

	cfg, err := png.DecodeConfig(bytes.NewReader(bufs[0]))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}

func TestCropRegionsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, referencePages()[0].img), 0o644))

	bufs, err := CropRegionsFromFile(path, []geometry.RectInt{
		geometry.NewRectInt(0, 0, 10, 10),
		geometry.NewRectInt(100, 100, 30, 40),
	})
	require.NoError(t, err)
	assert.Len(t, bufs, 2)
}

func TestCropRegions_Failures(t *testing.T) {
	one := []geometry.RectInt{geometry.NewRectInt(0, 0, 10, 10)}

	tests := []struct {
		name string
		run  func() error
		kind Kind
	}{
		{"no regions", func() error { _, err := CropRegionsFromImage(blankPage(), nil); return err }, KindEmptyInput},
		{"empty path", func() error { _, err := CropRegionsFromFile("", one); return err }, KindEmptyInput},
		{"missing file", func() error { _, err := CropRegionsFromFile("/nonexistent/page.png", one); return err }, KindDecode},
		{"nil image", func() error { _, err := CropRegionsFromImage(nil, one); return err }, KindEmptyInput},
		{
			"region outside image",
			func() error {
				_, err := CropRegionsFromImage(blankPage(), []geometry.RectInt{
					geometry.NewRectInt(0, 0, 10, 10),
					geometry.NewRectInt(pageW+5, 0, 10, 10),
				})
				return err
			},
			KindProcessing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err), "got %v", err)
		})
	}
}

func TestGuard(t *testing.T) {
	t.Run("panic becomes processing error", func(t *testing.T) {
		err := guard("probe", func() error { panic("opencv assertion failed") })
		require.Error(t, err)
		assert.True(t, IsKind(err, KindProcessing))
		assert.Contains(t, err.Error(), "opencv assertion failed")
	})

	t.Run("foreign error wrapped", func(t *testing.T) {
		cause := errors.New("boom")
		err := guard("probe", func() error { return cause })
		assert.Equal(t, KindProcessing, KindOf(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("kind preserved", func(t *testing.T) {
		err := guard("probe", func() error { return newErrorf(KindDecode, "inner", "bad header") })
		assert.Equal(t, KindDecode, KindOf(err))
	})

	t.Run("success", func(t *testing.T) {
		assert.NoError(t, guard("probe", func() error { return nil }))
	})
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("x")))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.False(t, IsKind(nil, KindDecode))
}
