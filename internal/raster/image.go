package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageDocument is a single decoded raster image presented as a one-page
// document.
type ImageDocument struct {
	Path   string
	Format string
	img    image.Image
}

// OpenImage decodes a PNG, JPEG, GIF, TIFF, BMP or WebP file.
func OpenImage(path string) (*ImageDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	doc, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// DecodeImage wraps in-memory image bytes.
func DecodeImage(data []byte) (*ImageDocument, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &ImageDocument{Format: format, img: img}, nil
}

// FromImage wraps an already decoded image.
func FromImage(img image.Image) *ImageDocument {
	return &ImageDocument{img: img}
}

func (d *ImageDocument) PageCount() int {
	if d.img == nil {
		return 0
	}
	return 1
}

func (d *ImageDocument) Page(ctx context.Context, index int) (image.Image, error) {
	if err := checkPage(ctx, index, d.PageCount()); err != nil {
		return nil, err
	}
	return d.img, nil
}

func (d *ImageDocument) Close() error {
	d.img = nil
	return nil
}
