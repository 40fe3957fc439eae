package segment

import (
	"image"

	"pagediff/pkg/geometry"

	"gocv.io/x/gocv"
)

// ExtractRegions dilates a binary content mask so neighbouring glyphs and
// strokes fuse into blocks, then returns the bounding box of every outer
// contour that survives the noise-size filter. The result is unordered.
func ExtractRegions(binary gocv.Mat, layout Layout, p Params) ([]geometry.RectInt, error) {
	var regions []geometry.RectInt
	err := guard("extract", func() error {
		var err error
		regions, err = extractRegions(binary, layout, p.normalized())
		return err
	})
	if err != nil {
		return nil, err
	}
	return regions, nil
}

func extractRegions(binary gocv.Mat, layout Layout, p Params) ([]geometry.RectInt, error) {
	if err := checkSize("extract", binary, p); err != nil {
		return nil, err
	}
	if binary.Channels() != 1 {
		return nil, newErrorf(KindProcessing, "extract", "expected a single-channel mask, got %d channels", binary.Channels())
	}

	merged := dilate(binary, p.KernelSize, p.iterations(layout))
	defer merged.Close()

	contours := gocv.FindContours(merged, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	boxes := make([]geometry.RectInt, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		boxes = append(boxes, geometry.FromImageRect(gocv.BoundingRect(contours.At(i))))
	}
	return FilterNoise(boxes, p.MinRegionSize), nil
}

// dilate grows foreground with a size×size rectangular element anchored at
// its center, repeated iterations times. The input is left untouched.
func dilate(mask gocv.Mat, size, iterations int) gocv.Mat {
	out := mask.Clone()
	if iterations <= 0 {
		return out
	}
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{size, size})
	defer kernel.Close()
	for i := 0; i < iterations; i++ {
		gocv.Dilate(out, &out, kernel)
	}
	return out
}

// FilterNoise drops boxes whose width or height is at most minSize.
func FilterNoise(boxes []geometry.RectInt, minSize int) []geometry.RectInt {
	kept := make([]geometry.RectInt, 0, len(boxes))
	for _, b := range boxes {
		if b.Width <= minSize || b.Height <= minSize {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}
