// Package ocr reads the text of cropped page regions with Tesseract and
// scores how well the text of two regions agrees.
package ocr

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// minHeight is the smallest crop dimension handed to Tesseract; smaller
// crops are upscaled first.
const minHeight = 150

// Reader extracts text from a PNG buffer.
type Reader interface {
	ReadPNG(data []byte) (string, error)
}

// Config configures the Tesseract client.
type Config struct {
	Language  string `yaml:"language" json:"language"`
	Whitelist string `yaml:"whitelist" json:"whitelist"`
	// UseDictionary keeps Tesseract's word lists enabled. Turn it off for
	// part numbers, codes and other non-word text.
	UseDictionary bool `yaml:"use_dictionary" json:"use_dictionary"`
}

// DefaultConfig reads English prose.
func DefaultConfig() Config {
	return Config{Language: "eng", UseDictionary: true}
}

// Engine provides OCR using Tesseract. A gosseract client holds one image
// at a time, so calls are serialised.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewEngine creates a new OCR engine.
func NewEngine(cfg Config) (*Engine, error) {
	client := gosseract.NewClient()

	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if cfg.Whitelist != "" {
		if err := client.SetWhitelist(cfg.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}
	if !cfg.UseDictionary {
		_ = client.SetVariable("load_system_dawg", "false")
		_ = client.SetVariable("load_freq_dawg", "false")
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// ReadPNG returns the whitespace-normalised text of an encoded image.
func (e *Engine) ReadPNG(data []byte) (string, error) {
	prepared, err := prepare(data)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return "", fmt.Errorf("OCR engine is closed")
	}
	if err := e.client.SetImageFromBytes(prepared); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.Join(strings.Fields(text), " "), nil
}

// prepare upscales small crops, which Tesseract reads poorly.
func prepare(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("failed to decode image")
	}

	minDim := min(img.Rows(), img.Cols())
	if minDim >= minHeight {
		return data, nil
	}

	scale := float64(minHeight) / float64(minDim)
	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(img, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, scaled)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
