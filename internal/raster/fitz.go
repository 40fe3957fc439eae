package raster

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// FitzDocument renders pages of a PDF (or any format MuPDF reads).
type FitzDocument struct {
	mu  sync.Mutex
	doc *fitz.Document
	dpi float64
}

// OpenFitz opens a document for rendering at dpi (DefaultDPI when <= 0).
func OpenFitz(path string, dpi float64) (*FitzDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document %s: %w", path, err)
	}
	return newFitzDocument(doc, dpi)
}

// OpenFitzBytes opens an in-memory document.
func OpenFitzBytes(data []byte, dpi float64) (*FitzDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return newFitzDocument(doc, dpi)
}

func newFitzDocument(doc *fitz.Document, dpi float64) (*FitzDocument, error) {
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, fmt.Errorf("document has no pages")
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &FitzDocument{doc: doc, dpi: dpi}, nil
}

// DPI returns the rendering resolution.
func (d *FitzDocument) DPI() float64 {
	return d.dpi
}

func (d *FitzDocument) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return 0
	}
	return d.doc.NumPage()
}

// Page renders one page. MuPDF contexts are not safe for concurrent use, so
// renders of the same document are serialised.
func (d *FitzDocument) Page(ctx context.Context, index int) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.doc == nil {
		return nil, fmt.Errorf("document is closed")
	}
	if err := checkPage(ctx, index, d.doc.NumPage()); err != nil {
		return nil, err
	}
	img, err := d.doc.ImageDPI(index, d.dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", index+1, err)
	}
	return img, nil
}

func (d *FitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
