package segment

import (
	"gocv.io/x/gocv"
)

// Binarized is a single-channel mask where content pixels are 255 and
// background pixels are 0, whatever the page polarity was. The caller owns
// Mask and must Close it.
type Binarized struct {
	Mask      gocv.Mat
	Polarity  Polarity // Resolved; never PolarityAuto
	Threshold float64  // Otsu level chosen on the grayscale histogram
	Mean      float64  // Mean gray intensity used for auto polarity
}

// Close releases the mask.
func (b *Binarized) Close() error {
	return b.Mask.Close()
}

// ResolvePolarity turns a requested polarity into a concrete one. Auto picks
// Light when the mean gray level is above the configured threshold.
func ResolvePolarity(requested Polarity, mean float64, p Params) Polarity {
	switch requested {
	case PolarityLight, PolarityDark:
		return requested
	}
	if mean > p.normalized().LightMeanThreshold {
		return PolarityLight
	}
	return PolarityDark
}

// thresholdType returns the OpenCV threshold mode that maps content to 255.
// Light pages have dark ink, so the comparison is inverted.
func thresholdType(polarity Polarity) gocv.ThresholdType {
	if polarity == PolarityLight {
		return gocv.ThresholdBinaryInv | gocv.ThresholdOtsu
	}
	return gocv.ThresholdBinary | gocv.ThresholdOtsu
}

// Preprocess converts img to grayscale, resolves polarity and binarizes it
// with Otsu's method.
func Preprocess(img gocv.Mat, polarity Polarity, p Params) (Binarized, error) {
	var out Binarized
	err := guard("preprocess", func() error {
		var err error
		out, err = preprocess(img, polarity, p.normalized())
		return err
	})
	if err != nil {
		return Binarized{Mask: gocv.NewMat()}, err
	}
	return out, nil
}

func preprocess(img gocv.Mat, polarity Polarity, p Params) (Binarized, error) {
	if err := checkSize("preprocess", img, p); err != nil {
		return Binarized{}, err
	}

	gray, err := toGray(img)
	if err != nil {
		return Binarized{}, err
	}
	defer gray.Close()

	mean := gray.Mean().Val1
	resolved := ResolvePolarity(polarity, mean, p)

	mask := gocv.NewMat()
	level := gocv.Threshold(gray, &mask, 0, 255, thresholdType(resolved))
	if mask.Empty() {
		mask.Close()
		return Binarized{}, newErrorf(KindProcessing, "preprocess", "threshold produced an empty mask")
	}

	return Binarized{
		Mask:      mask,
		Polarity:  resolved,
		Threshold: float64(level),
		Mean:      mean,
	}, nil
}

// toGray returns a single-channel 8-bit copy of img.
func toGray(img gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	switch img.Type() {
	case gocv.MatTypeCV8UC1:
		img.CopyTo(&gray)
	case gocv.MatTypeCV8UC3:
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	case gocv.MatTypeCV8UC4:
		gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
	default:
		gray.Close()
		return gocv.NewMat(), newErrorf(KindProcessing, "grayscale", "unsupported pixel format %v with %d channels", img.Type(), img.Channels())
	}
	return gray, nil
}
