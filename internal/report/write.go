// Package report renders comparison results as JSON or YAML and keeps a
// history of runs in SQLite.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"pagediff/internal/compare"

	"gopkg.in/yaml.v3"
)

// Document is the serialised form of a run: the summary first, then the
// per-page detail.
type Document struct {
	Original  string               `json:"original,omitempty" yaml:"original,omitempty"`
	Converted string               `json:"converted,omitempty" yaml:"converted,omitempty"`
	Summary   compare.Summary      `json:"summary" yaml:"summary"`
	Pages     []compare.PageReport `json:"pages" yaml:"pages"`
}

// NewDocument pairs a report with its summary.
func NewDocument(meta RunMeta, rep *compare.Report) Document {
	return Document{
		Original:  meta.Original,
		Converted: meta.Converted,
		Summary:   rep.Summary(),
		Pages:     rep.Pages,
	}
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteYAML writes doc as YAML.
func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	return enc.Close()
}

// Write dispatches on format ("json" or "yaml").
func Write(w io.Writer, format string, doc Document) error {
	switch format {
	case "json", "":
		return WriteJSON(w, doc)
	case "yaml", "yml":
		return WriteYAML(w, doc)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
