// Package config loads pagediff settings from a YAML file, a .env file and
// PAGEDIFF_* environment variables, in that order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pagediff/internal/compare"
	"pagediff/internal/match"
	"pagediff/internal/observability"
	"pagediff/internal/ocr"
	"pagediff/internal/raster"
	"pagediff/internal/segment"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PAGEDIFF_"

// Config holds all configuration.
type Config struct {
	Segment  SegmentConfig           `yaml:"segment"`
	Match    MatchConfig             `yaml:"match"`
	Raster   raster.Options          `yaml:"raster"`
	Pipeline PipelineConfig          `yaml:"pipeline"`
	OCR      OCRConfig               `yaml:"ocr"`
	Report   ReportConfig            `yaml:"report"`
	Log      observability.LogConfig `yaml:"log"`
}

// SegmentConfig holds region engine settings.
type SegmentConfig struct {
	Params   segment.Params   `yaml:",inline"`
	Polarity segment.Polarity `yaml:"polarity"`
	Layout   segment.Layout   `yaml:"layout"`
}

// Options returns the per-call segmentation options.
func (c SegmentConfig) Options() segment.Options {
	return segment.Options{Polarity: c.Polarity, Layout: c.Layout}
}

// MatchConfig selects the region matcher.
type MatchConfig struct {
	Strategy  match.Strategy `yaml:"strategy"`
	Threshold float64        `yaml:"threshold"`
}

// PipelineConfig holds document comparison settings.
type PipelineConfig struct {
	Workers   int               `yaml:"workers"`
	Normalize compare.Normalize `yaml:"normalize"`
}

// OCRConfig enables the optional text agreement check.
type OCRConfig struct {
	Enabled    bool `yaml:"enabled"`
	ocr.Config `yaml:",inline"`
}

// ReportConfig controls output.
type ReportConfig struct {
	Format string `yaml:"format"` // json or yaml
	Store  string `yaml:"store"`  // SQLite path; empty disables the run store
}

// Load reads configuration from path (optional) and applies environment
// overrides. A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// UserConfigPath returns the per-user config file, for example
// ~/.config/pagediff/config.yaml on Linux.
func UserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "pagediff", "config.yaml")
}

// Resolve picks the config file to load: path when given, otherwise the
// user config file if one exists, otherwise none.
func Resolve(path string) string {
	if path != "" {
		return path
	}
	if user := UserConfigPath(); fileExists(user) {
		return user
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Segment: SegmentConfig{
			Params: segment.DefaultParams(),
		},
		Match: MatchConfig{
			Strategy:  match.StrategyGreedy,
			Threshold: match.DefaultThreshold,
		},
		Raster: raster.Options{
			DPI: raster.DefaultDPI,
		},
		Pipeline: PipelineConfig{
			Workers:   4,
			Normalize: compare.NormalizeResample,
		},
		OCR: OCRConfig{
			Config: ocr.DefaultConfig(),
		},
		Report: ReportConfig{
			Format: "json",
		},
		Log: observability.LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	p := c.Segment.Params
	if p.KernelSize < 1 || p.KernelSize%2 == 0 {
		return fmt.Errorf("segment.kernel_size must be a positive odd number, got %d", p.KernelSize)
	}
	if p.DilateIterations < 0 || p.DenseDilateIterations < 0 {
		return fmt.Errorf("segment dilation iterations must not be negative")
	}
	if p.LightMeanThreshold <= 0 || p.LightMeanThreshold >= 255 {
		return fmt.Errorf("segment.light_mean_threshold must be in (0, 255), got %v", p.LightMeanThreshold)
	}
	if p.MinRegionSize < 0 || p.MaxPixels < 0 || p.MaxRegions < 0 {
		return fmt.Errorf("segment limits must not be negative")
	}

	if _, err := match.New(c.Match.Strategy, c.Match.Threshold); err != nil {
		return err
	}
	if c.Match.Threshold < 0 || c.Match.Threshold >= 1 {
		return fmt.Errorf("match.threshold must be in [0, 1), got %v", c.Match.Threshold)
	}

	if c.Raster.DPI < 0 || c.Raster.DPI > 1200 {
		return fmt.Errorf("raster.dpi must be in [0, 1200], got %v", c.Raster.DPI)
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	switch c.Pipeline.Normalize {
	case compare.NormalizeNone, compare.NormalizeResample, compare.NormalizeRegions:
	default:
		return fmt.Errorf("invalid pipeline.normalize: %s", c.Pipeline.Normalize)
	}

	if c.Report.Format != "json" && c.Report.Format != "yaml" {
		return fmt.Errorf("invalid report.format: %s", c.Report.Format)
	}

	return nil
}

// applyEnvOverrides applies PAGEDIFF_* variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	if v, ok := lookup("POLARITY"); ok {
		if err := cfg.Segment.Polarity.UnmarshalText([]byte(v)); err != nil {
			return err
		}
	}
	if v, ok := lookup("LAYOUT"); ok {
		if err := cfg.Segment.Layout.UnmarshalText([]byte(v)); err != nil {
			return err
		}
	}
	if v, ok := lookup("MATCH_STRATEGY"); ok {
		cfg.Match.Strategy = match.Strategy(v)
	}
	if err := envFloat("MATCH_THRESHOLD", &cfg.Match.Threshold); err != nil {
		return err
	}
	if err := envFloat("DPI", &cfg.Raster.DPI); err != nil {
		return err
	}
	if err := envInt("WORKERS", &cfg.Pipeline.Workers); err != nil {
		return err
	}
	if v, ok := lookup("NORMALIZE"); ok {
		cfg.Pipeline.Normalize = compare.Normalize(v)
	}
	if v, ok := lookup("OCR"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sOCR: %w", EnvPrefix, err)
		}
		cfg.OCR.Enabled = enabled
	}
	if v, ok := lookup("OCR_LANGUAGE"); ok {
		cfg.OCR.Language = v
	}
	if v, ok := lookup("REPORT_FORMAT"); ok {
		cfg.Report.Format = v
	}
	if v, ok := lookup("STORE"); ok {
		cfg.Report.Store = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func envInt(name string, dst *int) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = n
	return nil
}

func envFloat(name string, dst *float64) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = f
	return nil
}

// CompareOptions returns the per-run comparison options.
func (c *Config) CompareOptions() compare.Options {
	return compare.Options{
		Segment:   c.Segment.Options(),
		Normalize: c.Pipeline.Normalize,
		TextCheck: c.OCR.Enabled,
	}
}
