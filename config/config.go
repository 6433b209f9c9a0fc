// Package config reads the viewer configuration from OXY_* environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the viewer configuration.
type Config struct {
	// MaxFileSize is the largest avatar file the viewer accepts, in bytes.
	MaxFileSize int64 `env:"OXY_MAX_FILE_SIZE" envDefault:"104857600"`

	DisposalBatch int `env:"OXY_DISPOSAL_BATCH" envDefault:"10"`
	ShadowBatch   int `env:"OXY_SHADOW_BATCH" envDefault:"500"`
	UploadBatch   int `env:"OXY_UPLOAD_BATCH" envDefault:"8"`
	DecodeWorkers int `env:"OXY_DECODE_WORKERS" envDefault:"2"`

	ClipDir string `env:"OXY_CLIP_DIR" envDefault:"animations"`
	ClipExt string `env:"OXY_CLIP_EXT" envDefault:".vrma"`
	// ClipBaseURL selects the HTTP clip source when set.
	ClipBaseURL string `env:"OXY_CLIP_BASE_URL"`

	TickRate  int  `env:"OXY_TICK_RATE" envDefault:"60"`
	Profiling bool `env:"OXY_PROFILING" envDefault:"false"`

	WindowWidth  int `env:"OXY_WINDOW_WIDTH" envDefault:"1280"`
	WindowHeight int `env:"OXY_WINDOW_HEIGHT" envDefault:"720"`
	// HeadlessGPU skips wgpu device creation.
	HeadlessGPU bool `env:"OXY_HEADLESS_GPU" envDefault:"false"`

	OTelEnabled     bool   `env:"OXY_OTEL_ENABLED" envDefault:"false"`
	OTelServiceName string `env:"OXY_OTEL_SERVICE_NAME" envDefault:"oxy-vrm"`
	// OTelEndpoint overrides the exporter endpoint; empty uses the OTLP environment defaults.
	OTelEndpoint string `env:"OXY_OTEL_ENDPOINT"`
}

// Load parses the environment into a Config and validates it.
//
// Returns:
//   - Config: the parsed configuration
//   - error: error if a variable cannot be parsed or a value is out of range
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every out-of-range value.
//
// Returns:
//   - error: the joined validation errors, or nil
func (c Config) Validate() error {
	var errs []error
	positive := []struct {
		name  string
		value int64
	}{
		{"OXY_MAX_FILE_SIZE", c.MaxFileSize},
		{"OXY_DISPOSAL_BATCH", int64(c.DisposalBatch)},
		{"OXY_SHADOW_BATCH", int64(c.ShadowBatch)},
		{"OXY_UPLOAD_BATCH", int64(c.UploadBatch)},
		{"OXY_DECODE_WORKERS", int64(c.DecodeWorkers)},
		{"OXY_TICK_RATE", int64(c.TickRate)},
		{"OXY_WINDOW_WIDTH", int64(c.WindowWidth)},
		{"OXY_WINDOW_HEIGHT", int64(c.WindowHeight)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}
	return errors.Join(errs...)
}
