// Package config loads toolkit settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wudi/bookletscan/imgproc"
	"github.com/wudi/bookletscan/observability"
	"github.com/wudi/bookletscan/ocr"
	"github.com/wudi/bookletscan/regnum"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AssetsDir string `yaml:"assets_dir"`
	OutputDir string `yaml:"output_dir"`
	LogFile   string `yaml:"log_file"`
	LogLevel  string `yaml:"log_level"`

	OCR OCR `yaml:"ocr"`
	PDF PDF `yaml:"pdf"`
}

// OCR holds the registration number extraction settings.
type OCR struct {
	Region           regnum.Region `yaml:"region"`
	MinLength        int           `yaml:"min_length"`
	MinConfidence    float64       `yaml:"min_confidence"`
	ThresholdMode    string        `yaml:"threshold_mode"`
	FixedThreshold   int           `yaml:"fixed_threshold"`
	PageSegMode      int           `yaml:"page_seg_mode"`
	Whitelist        string        `yaml:"whitelist"`
	Languages        []string      `yaml:"languages"`
	TessdataPrefix   string        `yaml:"tessdata_prefix"`
	UniqueDiagnostic bool          `yaml:"unique_diagnostic"`
}

// PDF holds document assembly settings.
type PDF struct {
	DPI     float64 `yaml:"dpi"`
	Creator string  `yaml:"creator"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AssetsDir: "assets",
		OutputDir: "output",
		LogFile:   "scanning_log.txt",
		LogLevel:  observability.LevelInfo,
		OCR: OCR{
			Region:         regnum.Region{X: 60, Y: 140, Width: 280, Height: 40},
			MinLength:      regnum.DefaultMinLength,
			ThresholdMode:  imgproc.ThresholdOtsu.String(),
			FixedThreshold: int(imgproc.DefaultFixedThreshold),
			PageSegMode:    ocr.PSMSingleLine,
			Whitelist:      ocr.DigitWhitelist,
			Languages:      []string{"eng"},
		},
		PDF: PDF{DPI: 72, Creator: "bookletscan"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("BOOKLET_ASSETS_DIR", &c.AssetsDir)
	str("BOOKLET_OUTPUT_DIR", &c.OutputDir)
	str("BOOKLET_LOG_FILE", &c.LogFile)
	str("BOOKLET_LOG_LEVEL", &c.LogLevel)
	str("TESSDATA_PREFIX", &c.OCR.TessdataPrefix)
	if v, ok := lookup("BOOKLET_ROI"); ok && v != "" {
		r, err := ParseRegion(v)
		if err != nil {
			return fmt.Errorf("config: BOOKLET_ROI: %w", err)
		}
		c.OCR.Region = r
	}
	if v, ok := lookup("BOOKLET_MIN_LENGTH"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: BOOKLET_MIN_LENGTH: %w", err)
		}
		c.OCR.MinLength = n
	}
	return nil
}

// ParseRegion parses "x,y,width,height".
func ParseRegion(s string) (regnum.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return regnum.Region{}, fmt.Errorf("region %q: want x,y,width,height", s)
	}
	var vals [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return regnum.Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		vals[i] = n
	}
	return regnum.Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.AssetsDir == "" {
		errs = append(errs, errors.New("assets_dir is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if _, err := observability.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := c.OCR.Region.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ocr.region: %w", err))
	}
	if c.OCR.Region.X < 0 || c.OCR.Region.Y < 0 {
		errs = append(errs, fmt.Errorf("ocr.region: negative origin %d,%d", c.OCR.Region.X, c.OCR.Region.Y))
	}
	if c.OCR.MinLength < 1 {
		errs = append(errs, fmt.Errorf("ocr.min_length must be at least 1, got %d", c.OCR.MinLength))
	}
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("ocr.min_confidence must be within [0, 1], got %v", c.OCR.MinConfidence))
	}
	if _, err := imgproc.ParseThresholdMode(c.OCR.ThresholdMode); err != nil {
		errs = append(errs, fmt.Errorf("ocr.threshold_mode: %w", err))
	}
	if c.OCR.FixedThreshold < 0 || c.OCR.FixedThreshold > 255 {
		errs = append(errs, fmt.Errorf("ocr.fixed_threshold must be within [0, 255], got %d", c.OCR.FixedThreshold))
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		errs = append(errs, fmt.Errorf("ocr.page_seg_mode must be within [0, 13], got %d", c.OCR.PageSegMode))
	}
	if c.PDF.DPI < 0 {
		errs = append(errs, fmt.Errorf("pdf.dpi must not be negative, got %v", c.PDF.DPI))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// ExtractorOptions translates the OCR settings into regnum options.
func (c *Config) ExtractorOptions() ([]regnum.Option, error) {
	mode, err := imgproc.ParseThresholdMode(c.OCR.ThresholdMode)
	if err != nil {
		return nil, err
	}
	return []regnum.Option{
		regnum.WithMinLength(c.OCR.MinLength),
		regnum.WithMinConfidence(c.OCR.MinConfidence),
		regnum.WithThresholdMode(mode),
		regnum.WithFallbackThreshold(uint8(c.OCR.FixedThreshold)),
		regnum.WithPageSegMode(c.OCR.PageSegMode),
		regnum.WithWhitelist(c.OCR.Whitelist),
		regnum.WithLanguages(c.OCR.Languages...),
	}, nil
}
