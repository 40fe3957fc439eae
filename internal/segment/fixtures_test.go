package segment

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"pagediff/pkg/geometry"

	"github.com/stretchr/testify/require"
)

const (
	pageW = 600
	pageH = 800

	// Every dilation iteration with the 5x5 element grows a blob by 2px per side.
	grow = 2 * 3
)

var (
	paper = color.Gray{Y: 255}
	ink   = color.Gray{Y: 0}
)

// blankPage returns a white page.
func blankPage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, pageW, pageH))
	draw.Draw(img, img.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)
	return img
}

// fillRect paints a solid block.
func fillRect(img *image.Gray, r geometry.RectInt, c color.Gray) {
	draw.Draw(img, r.ImageRect(), image.NewUniform(c), image.Point{}, draw.Src)
}

// textBlock paints a paragraph-like grid of 4x6 "glyphs" with 3px letter
// gaps and 4px line gaps, which dilation must fuse into one region.
func textBlock(img *image.Gray, r geometry.RectInt) {
	for y := r.Y; y+6 <= r.Bottom(); y += 10 {
		for x := r.X; x+4 <= r.Right(); x += 7 {
			fillRect(img, geometry.NewRectInt(x, y, 4, 6), ink)
		}
	}
}

// invert swaps paper and ink.
func invert(img *image.Gray) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// referencePages are four synthetic layouts with known region counts after
// deduplication.
func referencePages() []struct {
	name string
	img  *image.Gray
	want int
} {
	// Two blocks: heading and body.
	p1 := blankPage()
	textBlock(p1, geometry.NewRectInt(60, 60, 400, 30))
	textBlock(p1, geometry.NewRectInt(60, 150, 480, 500))

	// Six blocks: 2 columns x 3 rows.
	p2 := blankPage()
	for row := 0; row < 3; row++ {
		for col := 0; col < 2; col++ {
			textBlock(p2, geometry.NewRectInt(50+col*280, 60+row*240, 220, 160))
		}
	}

	// Eight blocks: seven paragraphs plus an L-shaped rule whose bounding
	// box swallows a separate caption, which deduplication must drop.
	p3 := blankPage()
	for i := 0; i < 4; i++ {
		textBlock(p3, geometry.NewRectInt(40+i*140, 40, 100, 80))
	}
	textBlock(p3, geometry.NewRectInt(40, 200, 240, 100))
	textBlock(p3, geometry.NewRectInt(330, 200, 230, 100))
	textBlock(p3, geometry.NewRectInt(330, 420, 230, 300))
	fillRect(p3, geometry.NewRectInt(50, 400, 20, 200), ink)
	fillRect(p3, geometry.NewRectInt(50, 580, 230, 20), ink)
	textBlock(p3, geometry.NewRectInt(150, 420, 80, 60))

	// Seventeen blocks: a banner and a 4x4 grid of cards.
	p4 := blankPage()
	textBlock(p4, geometry.NewRectInt(40, 30, 520, 40))
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			textBlock(p4, geometry.NewRectInt(40+col*140, 120+row*170, 100, 120))
		}
	}

	return []struct {
		name string
		img  *image.Gray
		want int
	}{
		{"two blocks", p1, 2},
		{"six blocks", p2, 6},
		{"eight blocks with nested caption", p3, 8},
		{"seventeen blocks", p4, 17},
	}
}
