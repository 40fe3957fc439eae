// Package geometry provides the integer rectangle type shared by the
// segmentation, matching and reporting packages.
package geometry

import (
	"fmt"
	"image"
	"math"
)

// RectInt is an axis-aligned rectangle in image pixel coordinates.
// The right and bottom edges are exclusive: a rectangle at X with Width 3
// covers columns X, X+1 and X+2.
type RectInt struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// NewRectInt creates a new RectInt.
func NewRectInt(x, y, width, height int) RectInt {
	return RectInt{X: x, Y: y, Width: width, Height: height}
}

// FromImageRect converts a Go image.Rectangle (as returned by gocv.BoundingRect).
func FromImageRect(r image.Rectangle) RectInt {
	r = r.Canon()
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// ImageRect converts to a Go image.Rectangle.
func (r RectInt) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Valid reports whether the rectangle has positive width and height.
func (r RectInt) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Right returns the exclusive right edge.
func (r RectInt) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r RectInt) Bottom() int { return r.Y + r.Height }

// Area returns Width*Height, or 0 for a degenerate rectangle.
func (r RectInt) Area() int {
	if !r.Valid() {
		return 0
	}
	return r.Width * r.Height
}

// Intersect returns the overlapping rectangle, or the zero RectInt when the
// two rectangles do not overlap.
func (r RectInt) Intersect(other RectInt) RectInt {
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.Right(), other.Right())
	y1 := min(r.Bottom(), other.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return RectInt{}
	}
	return RectInt{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// IoU returns the intersection-over-union of two rectangles in [0, 1].
// Degenerate or disjoint rectangles score 0.
func (r RectInt) IoU(other RectInt) float64 {
	inter := r.Intersect(other).Area()
	if inter == 0 {
		return 0
	}
	union := r.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Contains reports whether other lies entirely within r. Edges are
// inclusive, so a rectangle contains itself.
func (r RectInt) Contains(other RectInt) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.Right() <= r.Right() && other.Bottom() <= r.Bottom()
}

// Clamp returns r clipped to a width×height image anchored at the origin.
func (r RectInt) Clamp(width, height int) RectInt {
	return r.Intersect(RectInt{Width: width, Height: height})
}

// Scale returns the rectangle scaled by independent x and y factors,
// rounding outward so the scaled box still covers the original content.
func (r RectInt) Scale(sx, sy float64) RectInt {
	x0 := int(math.Floor(float64(r.X) * sx))
	y0 := int(math.Floor(float64(r.Y) * sy))
	x1 := int(math.Ceil(float64(r.Right()) * sx))
	y1 := int(math.Ceil(float64(r.Bottom()) * sy))
	return RectInt{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (r RectInt) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}
