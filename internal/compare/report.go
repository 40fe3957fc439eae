package compare

import (
	"pagediff/internal/match"
	"pagediff/internal/segment"
	"pagediff/pkg/geometry"
)

// Status says whether a page side produced a usable segmentation.
type Status string

const (
	// StatusOK means at least one region was found.
	StatusOK Status = "ok"
	// StatusNoContent means segmentation ran and found nothing.
	StatusNoContent Status = "no_content"
	// StatusUnavailable means the side could not be rendered or segmented.
	StatusUnavailable Status = "unavailable"
)

// SideReport describes one side of a page comparison.
type SideReport struct {
	Status    Status             `json:"status" yaml:"status"`
	Regions   []geometry.RectInt `json:"regions" yaml:"regions"`
	Polarity  segment.Polarity   `json:"polarity" yaml:"polarity"`
	Threshold float64            `json:"threshold" yaml:"threshold"`
	Width     int                `json:"width" yaml:"width"`
	Height    int                `json:"height" yaml:"height"`
	Dropped   int                `json:"dropped,omitempty" yaml:"dropped,omitempty"` // Regions over the cap
	ErrorKind segment.Kind       `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// TextCheck is the OCR agreement of one matched pair.
type TextCheck struct {
	Match     int     `json:"match" yaml:"match"` // Index into PageReport.Matches
	Original  string  `json:"original" yaml:"original"`
	Converted string  `json:"converted" yaml:"converted"`
	Agreement float64 `json:"agreement" yaml:"agreement"`
	Error     string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// PageReport is the outcome of comparing one page pair. Converted regions
// and match coordinates are in the original page's pixel space when the
// page sizes were normalised.
type PageReport struct {
	Page               int                `json:"page" yaml:"page"` // 1-based
	Original           SideReport         `json:"original" yaml:"original"`
	Converted          SideReport         `json:"converted" yaml:"converted"`
	Normalized         Normalize          `json:"normalized,omitempty" yaml:"normalized,omitempty"`
	Matches            []match.Match      `json:"matches" yaml:"matches"`
	UnmatchedOriginal  []geometry.RectInt `json:"unmatched_original" yaml:"unmatched_original"`
	UnmatchedConverted []geometry.RectInt `json:"unmatched_converted" yaml:"unmatched_converted"`
	MeanIoU            float64            `json:"mean_iou" yaml:"mean_iou"`
	TextChecks         []TextCheck        `json:"text_checks,omitempty" yaml:"text_checks,omitempty"`
	Warnings           []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Matched reports whether region matching ran for this page.
func (p PageReport) Matched() bool {
	return p.Original.Status != StatusUnavailable && p.Converted.Status != StatusUnavailable
}

// Report is the outcome of comparing two documents.
type Report struct {
	OriginalPages  int          `json:"original_pages" yaml:"original_pages"`
	ConvertedPages int          `json:"converted_pages" yaml:"converted_pages"`
	Pages          []PageReport `json:"pages" yaml:"pages"`
}

// PageCountMismatch reports whether the documents differ in length. Only
// the common prefix is compared.
func (r *Report) PageCountMismatch() bool {
	return r.OriginalPages != r.ConvertedPages
}

// Summary aggregates a Report. It carries counts only; deciding whether a
// conversion is acceptable is left to the caller.
type Summary struct {
	Pages              int     `json:"pages" yaml:"pages"`
	OriginalPages      int     `json:"original_pages" yaml:"original_pages"`
	ConvertedPages     int     `json:"converted_pages" yaml:"converted_pages"`
	PageCountMismatch  bool    `json:"page_count_mismatch" yaml:"page_count_mismatch"`
	Matches            int     `json:"matches" yaml:"matches"`
	UnmatchedOriginal  int     `json:"unmatched_original" yaml:"unmatched_original"`
	UnmatchedConverted int     `json:"unmatched_converted" yaml:"unmatched_converted"`
	NoContentSides     int     `json:"no_content_sides" yaml:"no_content_sides"`
	UnavailableSides   int     `json:"unavailable_sides" yaml:"unavailable_sides"`
	MeanIoU            float64 `json:"mean_iou" yaml:"mean_iou"` // Over all matches
	MeanTextAgreement  float64 `json:"mean_text_agreement,omitempty" yaml:"mean_text_agreement,omitempty"`
}

// Summary counts pages, matches, unmatched regions and failed sides.
func (r *Report) Summary() Summary {
	s := Summary{
		Pages:             len(r.Pages),
		OriginalPages:     r.OriginalPages,
		ConvertedPages:    r.ConvertedPages,
		PageCountMismatch: r.PageCountMismatch(),
	}

	var iouSum, textSum float64
	var textCount int
	for _, p := range r.Pages {
		for _, side := range []SideReport{p.Original, p.Converted} {
			switch side.Status {
			case StatusNoContent:
				s.NoContentSides++
			case StatusUnavailable:
				s.UnavailableSides++
			}
		}
		s.Matches += len(p.Matches)
		s.UnmatchedOriginal += len(p.UnmatchedOriginal)
		s.UnmatchedConverted += len(p.UnmatchedConverted)
		for _, m := range p.Matches {
			iouSum += m.IoU
		}
		for _, tc := range p.TextChecks {
			if tc.Error == "" {
				textSum += tc.Agreement
				textCount++
			}
		}
	}

	if s.Matches > 0 {
		s.MeanIoU = iouSum / float64(s.Matches)
	}
	if textCount > 0 {
		s.MeanTextAgreement = textSum / float64(textCount)
	}
	return s
}
