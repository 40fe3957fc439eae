// Package raster turns input documents into page images: PDFs through
// MuPDF, single raster files through the standard and x/image decoders.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
)

// DefaultDPI is the rendering resolution for vector documents.
const DefaultDPI = 150

// ErrPageOutOfRange is returned for a page index outside [0, PageCount).
var ErrPageOutOfRange = errors.New("page index out of range")

// Document is a paged source of images. Page indexes are zero-based.
type Document interface {
	PageCount() int
	Page(ctx context.Context, index int) (image.Image, error)
	Close() error
}

// Options controls how documents are opened.
type Options struct {
	DPI float64 `yaml:"dpi" json:"dpi"`
}

// Open picks a Document implementation from the file extension.
func Open(path string, opts Options) (Document, error) {
	if path == "" {
		return nil, fmt.Errorf("open document: empty path")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".xps", ".epub", ".cbz":
		return OpenFitz(path, opts.DPI)
	default:
		return OpenImage(path)
	}
}

func checkPage(ctx context.Context, index, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if index < 0 || index >= count {
		return fmt.Errorf("page %d of %d: %w", index, count, ErrPageOutOfRange)
	}
	return nil
}
