// Package segment decomposes a rendered page image into rectangular content
// regions: grayscale and Otsu binarization, morphological merging, outer
// contour extraction, nesting removal and reading-order sort.
package segment

import (
	"image"

	"pagediff/pkg/geometry"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// Options selects per-call behaviour.
type Options struct {
	Polarity Polarity
	Layout   Layout
}

// Segmentation is the result of segmenting one page image.
type Segmentation struct {
	Regions    []geometry.RectInt `json:"regions" yaml:"regions"` // Reading order
	Polarity   Polarity           `json:"polarity" yaml:"polarity"`
	Threshold  float64            `json:"threshold" yaml:"threshold"`
	Mean       float64            `json:"mean" yaml:"mean"`
	Width      int                `json:"width" yaml:"width"`
	Height     int                `json:"height" yaml:"height"`
	Candidates int                `json:"candidates" yaml:"candidates"`               // Boxes before deduplication
	Dropped    int                `json:"dropped,omitempty" yaml:"dropped,omitempty"` // Cut by Params.MaxRegions
}

// Segmenter runs the full region pipeline. It holds no mutable state, so a
// single value can serve concurrent calls.
type Segmenter struct {
	params Params
	logger zerolog.Logger
}

// NewSegmenter creates a Segmenter. Zero fields in params take defaults.
func NewSegmenter(params Params, logger zerolog.Logger) *Segmenter {
	return &Segmenter{params: params.normalized(), logger: logger}
}

// Default returns a Segmenter with DefaultParams and no logging.
func Default() *Segmenter {
	return NewSegmenter(DefaultParams(), zerolog.Nop())
}

// Params returns the effective parameters.
func (s *Segmenter) Params() Params {
	return s.params
}

// Segment runs the pipeline on an OpenCV Mat (BGR, BGRA or grayscale).
func (s *Segmenter) Segment(img gocv.Mat, opts Options) (Segmentation, error) {
	var seg Segmentation
	err := guard("segment", func() error {
		var err error
		seg, err = s.segment(img, opts)
		return err
	})
	if err != nil {
		s.logger.Debug().Err(err).Msg("segmentation unavailable")
		return Segmentation{}, err
	}
	return seg, nil
}

// SegmentImage runs the pipeline on a decoded Go image.
func (s *Segmenter) SegmentImage(img image.Image, opts Options) (Segmentation, error) {
	var seg Segmentation
	err := guard("segment", func() error {
		mat, err := imageToMat("segment", img)
		if err != nil {
			return err
		}
		defer mat.Close()
		seg, err = s.segment(mat, opts)
		return err
	})
	if err != nil {
		s.logger.Debug().Err(err).Msg("segmentation unavailable")
		return Segmentation{}, err
	}
	return seg, nil
}

// SegmentBytes decodes an encoded image and runs the pipeline on it.
func (s *Segmenter) SegmentBytes(data []byte, opts Options) (Segmentation, error) {
	var seg Segmentation
	err := guard("segment", func() error {
		mat, err := decodeMat(data)
		if err != nil {
			return err
		}
		defer mat.Close()
		seg, err = s.segment(mat, opts)
		return err
	})
	if err != nil {
		s.logger.Debug().Err(err).Msg("segmentation unavailable")
		return Segmentation{}, err
	}
	return seg, nil
}

// SegmentFile reads an image file and runs the pipeline on it.
func (s *Segmenter) SegmentFile(path string, opts Options) (Segmentation, error) {
	var seg Segmentation
	err := guard("segment", func() error {
		mat, err := readMat(path)
		if err != nil {
			return err
		}
		defer mat.Close()
		seg, err = s.segment(mat, opts)
		return err
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("path", path).Msg("segmentation unavailable")
		return Segmentation{}, err
	}
	return seg, nil
}

func (s *Segmenter) segment(img gocv.Mat, opts Options) (Segmentation, error) {
	bin, err := preprocess(img, opts.Polarity, s.params)
	if err != nil {
		return Segmentation{}, err
	}
	defer bin.Close()

	candidates, err := extractRegions(bin.Mask, opts.Layout, s.params)
	if err != nil {
		return Segmentation{}, err
	}
	kept, dropped := capRegions(Deduplicate(candidates), s.params.MaxRegions)
	regions := Order(kept)
	if dropped > 0 {
		s.logger.Debug().Int("dropped", dropped).Int("max_regions", s.params.MaxRegions).Msg("region cap reached")
	}

	s.logger.Debug().
		Int("width", img.Cols()).
		Int("height", img.Rows()).
		Str("polarity", bin.Polarity.String()).
		Float64("otsu", bin.Threshold).
		Int("candidates", len(candidates)).
		Int("regions", len(regions)).
		Msg("segmented page")

	return Segmentation{
		Regions:    regions,
		Polarity:   bin.Polarity,
		Threshold:  bin.Threshold,
		Mean:       bin.Mean,
		Width:      img.Cols(),
		Height:     img.Rows(),
		Candidates: len(candidates),
		Dropped:    dropped,
	}, nil
}
