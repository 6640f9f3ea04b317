// Package config provides configuration loading for the extraction service.
// Supports YAML files, environment variable overrides, and programmatic
// defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for the service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Limits        LimitsConfig        `yaml:"limits"`
	Raster        RasterConfig        `yaml:"raster"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Classifier    ClassifierConfig    `yaml:"classifier"`
	Cleanup       CleanupConfig       `yaml:"cleanup"`
	Recognition   RecognitionConfig   `yaml:"recognition"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	RateLimitEvery   time.Duration `yaml:"rate_limit_every"`
	RateLimitBurst   int           `yaml:"rate_limit_burst"`
	MaxConcurrent    int64         `yaml:"max_concurrent"`
}

// LimitsConfig holds the hard admission ceilings checked before any
// expensive work.
type LimitsConfig struct {
	MaxFileBytes int64 `yaml:"max_file_bytes"`
	MaxPages     int   `yaml:"max_pages"`
}

// RasterConfig holds page rendering settings.
type RasterConfig struct {
	DPI float64 `yaml:"dpi"`
	// MaxCropDim caps the longest side of a crop sent to OCR or a
	// recognition backend; larger crops are downscaled.
	MaxCropDim int `yaml:"max_crop_dim"`
}

// PipelineConfig holds extraction pipeline settings. The tolerances are
// empirically chosen; they are configuration, not derived values.
type PipelineConfig struct {
	PageWorkers    int   `yaml:"page_workers"`
	OCRConcurrency int64 `yaml:"ocr_concurrency"`
	// LineTolerance is the vertical rounding bucket for grouping words into
	// lines, in page units.
	LineTolerance float64 `yaml:"line_tolerance"`
	// MinRegionPixels rejects mapped image regions whose width or height is
	// at or below this many raster pixels.
	MinRegionPixels int `yaml:"min_region_pixels"`
	// OCRLanguage is the tesseract language spec, "+"-separated for
	// multiple languages.
	OCRLanguage string `yaml:"ocr_language"`
}

// ClassifierConfig holds the formula-detection thresholds.
type ClassifierConfig struct {
	SymbolRatio       float64 `yaml:"symbol_ratio"`
	AlphaRatioCeiling float64 `yaml:"alpha_ratio_ceiling"`
	ShortTextLen      int     `yaml:"short_text_len"`
	MinSymbols        int     `yaml:"min_symbols"`
	BlockHeightRatio  float64 `yaml:"block_height_ratio"`
}

// CleanupConfig holds the document-wide cleanup pass settings.
type CleanupConfig struct {
	// BoilerplatePatterns are regex patterns removed from the flattened
	// text, applied in order.
	BoilerplatePatterns []string `yaml:"boilerplate_patterns"`
	// SectionMarkerPattern locates the first real section heading; any
	// front matter before it (tables of contents, indexes) is dropped.
	SectionMarkerPattern string `yaml:"section_marker_pattern"`
	MinLineLength        int    `yaml:"min_line_length"`
}

// RecognitionConfig holds the formula-recognition backend chain settings.
type RecognitionConfig struct {
	Local   LocalModelConfig `yaml:"local"`
	Mathpix MathpixConfig    `yaml:"mathpix"`
	Relay   RelayConfig      `yaml:"relay"`
}

// LocalModelConfig points at the locally hosted recognition model service.
type LocalModelConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MathpixConfig holds MathPix credentials. Either APIKey or the
// AppID/AppKey pair enables the backend.
type MathpixConfig struct {
	APIKey  string        `yaml:"api_key"`
	AppID   string        `yaml:"app_id"`
	AppKey  string        `yaml:"app_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// RelayConfig points at another recognition service speaking the same
// predict API as the local model.
type RelayConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from an optional YAML file and applies
// environment overrides.
func Load(path string) (*Config, error) {
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

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the service defaults. Threshold values match the
// behavior the pipeline was tuned against; change them via config, not code.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      60 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   110 * time.Second,
			GracefulShutdown: 10 * time.Second,
			RateLimitEvery:   600 * time.Millisecond,
			RateLimitBurst:   20,
			MaxConcurrent:    16,
		},
		Limits: LimitsConfig{
			MaxFileBytes: 50 * 1024 * 1024,
			MaxPages:     80,
		},
		Raster: RasterConfig{
			DPI:        150,
			MaxCropDim: 2400,
		},
		Pipeline: PipelineConfig{
			PageWorkers:     4,
			OCRConcurrency:  2,
			LineTolerance:   1,
			MinRegionPixels: 4,
			OCRLanguage:     "eng",
		},
		Classifier: ClassifierConfig{
			SymbolRatio:       0.05,
			AlphaRatioCeiling: 0.9,
			ShortTextLen:      200,
			MinSymbols:        2,
			BlockHeightRatio:  0.08,
		},
		Cleanup: CleanupConfig{
			BoilerplatePatterns: []string{
				`(?i)copyright\s*©?\s*\d{4}[^\n]*`,
				`(?i)all rights reserved[^\n]*`,
				`(?i)no part of this (?:publication|book) may be reproduced[^\n]*`,
				`(?i)reprinted with permission[^\n]*`,
				`(?i)published by [A-Z][^\n]*`,
			},
			SectionMarkerPattern: `(?im)^\s*(?:lesson|chapter|unit)\s+\d+\b.*$`,
			MinLineLength:        25,
		},
		Recognition: RecognitionConfig{
			Local: LocalModelConfig{
				Endpoint: "http://localhost:8502",
				Timeout:  30 * time.Second,
			},
			Mathpix: MathpixConfig{
				Timeout: 20 * time.Second,
			},
			Relay: RelayConfig{
				Timeout: 30 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks invariants the pipeline depends on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0,65535]")
	}
	if c.Limits.MaxFileBytes <= 0 {
		return fmt.Errorf("limits.max_file_bytes must be positive")
	}
	if c.Limits.MaxPages <= 0 {
		return fmt.Errorf("limits.max_pages must be positive")
	}
	if c.Raster.DPI <= 0 {
		return fmt.Errorf("raster.dpi must be positive")
	}
	if c.Pipeline.PageWorkers <= 0 {
		return fmt.Errorf("pipeline.page_workers must be positive")
	}
	if c.Pipeline.OCRConcurrency <= 0 {
		return fmt.Errorf("pipeline.ocr_concurrency must be positive")
	}
	if c.Pipeline.LineTolerance <= 0 {
		return fmt.Errorf("pipeline.line_tolerance must be positive")
	}
	if c.Classifier.SymbolRatio <= 0 || c.Classifier.SymbolRatio >= 1 {
		return fmt.Errorf("classifier.symbol_ratio must be in (0,1)")
	}
	if c.Classifier.AlphaRatioCeiling <= 0 || c.Classifier.AlphaRatioCeiling > 1 {
		return fmt.Errorf("classifier.alpha_ratio_ceiling must be in (0,1]")
	}
	if c.Classifier.BlockHeightRatio <= 0 || c.Classifier.BlockHeightRatio >= 1 {
		return fmt.Errorf("classifier.block_height_ratio must be in (0,1)")
	}
	if c.Cleanup.MinLineLength < 0 {
		return fmt.Errorf("cleanup.min_line_length must not be negative")
	}
	return nil
}

// applyEnvOverrides maps well-known environment variables onto the config.
// The variable names are kept stable for deployment compatibility.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("MAX_FILE_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Limits.MaxFileBytes = n
		}
	}
	if v := os.Getenv("MAX_PDF_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.MaxPages = n
		}
	}
	if v := os.Getenv("PAGE_IMAGE_DPI"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Raster.DPI = n
		}
	}
	if v := os.Getenv("LATEX_OCR_URL"); v != "" {
		cfg.Recognition.Local.Endpoint = v
	}
	if v := os.Getenv("LATEX_OCR_RELAY_URL"); v != "" {
		cfg.Recognition.Relay.Endpoint = v
	}
	if v := os.Getenv("MATHPIX_API_KEY"); v != "" {
		cfg.Recognition.Mathpix.APIKey = v
	}
	if v := os.Getenv("MATHPIX_APP_ID"); v != "" {
		cfg.Recognition.Mathpix.AppID = v
	}
	if v := os.Getenv("MATHPIX_APP_KEY"); v != "" {
		cfg.Recognition.Mathpix.AppKey = v
	}
	if v := os.Getenv("TESSERACT_LANG"); v != "" {
		cfg.Pipeline.OCRLanguage = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
