// Command segtest runs region segmentation on a page image and prints the
// pipeline parameters, intermediate counts and the resulting regions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pagediff/internal/raster"
	"pagediff/internal/segment"

	"github.com/rs/zerolog"
)

func main() {
	imagePath := flag.String("image", "", "Path to page image or PDF")
	page := flag.Int("page", 1, "Page number for multi-page documents")
	dpi := flag.Float64("dpi", raster.DefaultDPI, "Rendering DPI for PDFs")
	polarity := flag.String("polarity", "auto", "Page polarity: auto, light or dark")
	layout := flag.String("layout", "normal", "Layout: normal or dense")
	defaults := segment.DefaultParams()
	minSize := flag.Int("min-size", defaults.MinRegionSize, "Noise cutoff in pixels")
	dilate := flag.Int("dilate", defaults.DilateIterations, "Dilation iterations for normal layout")
	denseDilate := flag.Int("dense-dilate", defaults.DenseDilateIterations, "Dilation iterations for dense layout")
	cropDir := flag.String("crops", "", "Write region crops to this directory")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: segtest -image <path> [-page 1] [-dpi 150] [-polarity auto|light|dark] [-layout normal|dense] [-dilate 3] [-crops dir]")
		os.Exit(1)
	}

	pol, ok := segment.ParsePolarity(*polarity)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown polarity %q\n", *polarity)
		os.Exit(1)
	}
	lay, ok := segment.ParseLayout(*layout)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown layout %q\n", *layout)
		os.Exit(1)
	}

	doc, err := raster.Open(*imagePath, raster.Options{DPI: *dpi})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open document: %v\n", err)
		os.Exit(1)
	}
	defer doc.Close()

	img, err := doc.Page(context.Background(), *page-1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render page %d: %v\n", *page, err)
		os.Exit(1)
	}

	bounds := img.Bounds()
	fmt.Printf("Loaded page %d of %d: %dx%d pixels\n", *page, doc.PageCount(), bounds.Dx(), bounds.Dy())

	params := defaults.WithMinRegionSize(*minSize).WithDilation(*dilate, *denseDilate)
	fmt.Printf("\nSegmentation parameters:\n")
	fmt.Printf("  Polarity: %s (auto light above mean %.0f)\n", pol, params.LightMeanThreshold)
	fmt.Printf("  Kernel: %dx%d rect, %d iterations (dense %d)\n",
		params.KernelSize, params.KernelSize, params.DilateIterations, params.DenseDilateIterations)
	fmt.Printf("  Layout: %s\n", lay)
	fmt.Printf("  Noise cutoff: %d px\n", params.MinRegionSize)
	fmt.Printf("  Limits: %d pixels, %d regions\n", params.MaxPixels, params.MaxRegions)

	fmt.Printf("\nSegmenting...\n")
	seg, err := segment.NewSegmenter(params, zerolog.Nop()).SegmentImage(img, segment.Options{Polarity: pol, Layout: lay})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Segmentation failed [%s]: %v\n", segment.KindOf(err), err)
		os.Exit(1)
	}

	fmt.Printf("  Mean gray: %.1f -> %s, Otsu threshold %.0f\n", seg.Mean, seg.Polarity, seg.Threshold)
	fmt.Printf("  Candidates: %d, after deduplication: %d\n", seg.Candidates, len(seg.Regions))

	fmt.Printf("\n%-6s %8s %8s %8s %8s %10s\n", "#", "X", "Y", "Width", "Height", "Area")
	fmt.Println(strings.Repeat("-", 54))
	for i, r := range seg.Regions {
		fmt.Printf("%-6d %8d %8d %8d %8d %10d\n", i, r.X, r.Y, r.Width, r.Height, r.Area())
	}

	if *cropDir != "" && len(seg.Regions) > 0 {
		crops, err := segment.CropRegionsFromImage(img, seg.Regions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crop failed: %v\n", err)
			os.Exit(1)
		}
		if err := os.MkdirAll(*cropDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *cropDir, err)
			os.Exit(1)
		}
		for i, data := range crops {
			name := filepath.Join(*cropDir, fmt.Sprintf("region_%03d.png", i))
			if err := os.WriteFile(name, data, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", name, err)
				os.Exit(1)
			}
		}
		fmt.Printf("\nWrote %d crops to %s\n", len(crops), *cropDir)
	}

	fmt.Printf("\nTotal: %d regions\n", len(seg.Regions))
}
