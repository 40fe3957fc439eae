package segment

import "fmt"

// Polarity tells the preprocessor which way round ink and paper are.
type Polarity int

const (
	// PolarityAuto infers polarity from mean gray intensity.
	PolarityAuto Polarity = iota
	// PolarityLight is dark content on a light background (ordinary paper).
	PolarityLight
	// PolarityDark is light content on a dark background (slides, inverted themes).
	PolarityDark
)

func (p Polarity) String() string {
	switch p {
	case PolarityAuto:
		return "auto"
	case PolarityLight:
		return "light"
	case PolarityDark:
		return "dark"
	default:
		return "unknown"
	}
}

// ParsePolarity maps a config/CLI string to a Polarity.
func ParsePolarity(s string) (Polarity, bool) {
	switch s {
	case "", "auto":
		return PolarityAuto, true
	case "light":
		return PolarityLight, true
	case "dark":
		return PolarityDark, true
	}
	return PolarityAuto, false
}

// Layout selects how aggressively nearby marks are merged into blocks.
type Layout int

const (
	// LayoutNormal suits text documents.
	LayoutNormal Layout = iota
	// LayoutDense suits slide-style pages with large, widely spaced blocks.
	LayoutDense
)

func (l Layout) String() string {
	if l == LayoutDense {
		return "dense"
	}
	return "normal"
}

// ParseLayout maps a config/CLI string to a Layout.
func ParseLayout(s string) (Layout, bool) {
	switch s {
	case "", "normal":
		return LayoutNormal, true
	case "dense":
		return LayoutDense, true
	}
	return LayoutNormal, false
}

// Params holds the tunables of the segmentation pipeline.
type Params struct {
	// Mean gray level above which an Auto page is treated as light.
	LightMeanThreshold float64 `yaml:"light_mean_threshold" json:"light_mean_threshold"`

	// Morphological merge
	KernelSize            int `yaml:"kernel_size" json:"kernel_size"`                         // Square structuring element side
	DilateIterations      int `yaml:"dilate_iterations" json:"dilate_iterations"`             // LayoutNormal
	DenseDilateIterations int `yaml:"dense_dilate_iterations" json:"dense_dilate_iterations"` // LayoutDense

	// Boxes with width or height <= MinRegionSize are noise.
	MinRegionSize int `yaml:"min_region_size" json:"min_region_size"`

	// Resource caps
	MaxPixels  int `yaml:"max_pixels" json:"max_pixels"`   // 0 disables
	MaxRegions int `yaml:"max_regions" json:"max_regions"` // 0 disables
}

// DefaultParams returns the parameters the region engine was tuned with.
func DefaultParams() Params {
	return Params{
		LightMeanThreshold:    130,
		KernelSize:            5,
		DilateIterations:      3,
		DenseDilateIterations: 4,
		MinRegionSize:         10,
		MaxPixels:             100_000_000,
		MaxRegions:            500,
	}
}

// WithDilation returns a copy of params with custom dilation iteration counts.
func (p Params) WithDilation(normal, dense int) Params {
	p.DilateIterations = normal
	p.DenseDilateIterations = dense
	return p
}

// WithMinRegionSize returns a copy of params with a custom noise cutoff.
func (p Params) WithMinRegionSize(size int) Params {
	p.MinRegionSize = size
	return p
}

// WithLimits returns a copy of params with custom resource caps.
func (p Params) WithLimits(maxPixels, maxRegions int) Params {
	p.MaxPixels = maxPixels
	p.MaxRegions = maxRegions
	return p
}

// iterations returns the dilation count for a layout.
func (p Params) iterations(layout Layout) int {
	if layout == LayoutDense {
		return p.DenseDilateIterations
	}
	return p.DilateIterations
}

// normalized fills zero fields with defaults so a partially populated
// Params (e.g. from a sparse config file) still behaves.
func (p Params) normalized() Params {
	d := DefaultParams()
	if p == (Params{}) {
		return d
	}
	if p.LightMeanThreshold <= 0 {
		p.LightMeanThreshold = d.LightMeanThreshold
	}
	if p.KernelSize <= 0 {
		p.KernelSize = d.KernelSize
	}
	if p.DilateIterations < 0 {
		p.DilateIterations = d.DilateIterations
	}
	if p.DenseDilateIterations < 0 {
		p.DenseDilateIterations = d.DenseDilateIterations
	}
	if p.MinRegionSize < 0 {
		p.MinRegionSize = d.MinRegionSize
	}
	return p
}

// MarshalText renders the polarity by name in JSON and YAML.
func (p Polarity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts "auto", "light" or "dark".
func (p *Polarity) UnmarshalText(text []byte) error {
	v, ok := ParsePolarity(string(text))
	if !ok {
		return fmt.Errorf("unknown polarity %q", text)
	}
	*p = v
	return nil
}

// MarshalText renders the layout by name in JSON and YAML.
func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts "normal" or "dense".
func (l *Layout) UnmarshalText(text []byte) error {
	v, ok := ParseLayout(string(text))
	if !ok {
		return fmt.Errorf("unknown layout %q", text)
	}
	*l = v
	return nil
}
