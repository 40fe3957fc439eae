package raster

import (
	"image"

	"golang.org/x/image/draw"
)

// Resize scales img to exactly w x h with Catmull-Rom interpolation. An
// image already at that size is returned unchanged.
func Resize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// ScaleFactors returns the per-axis factors that map coordinates on from onto to.
func ScaleFactors(from, to image.Rectangle) (sx, sy float64) {
	if from.Dx() == 0 || from.Dy() == 0 {
		return 1, 1
	}
	return float64(to.Dx()) / float64(from.Dx()), float64(to.Dy()) / float64(from.Dy())
}
