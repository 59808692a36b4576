// Package config holds the thresholds, canvas geometry and pipeline options
// shared by every processing stage.
package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig is returned for any configuration that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

const (
	DefaultThresholdMin = 125
	DefaultThresholdMax = 250
	DefaultCanvasHeight = 224
	DefaultCanvasWidth  = 224
	DefaultBackground   = 255
)

// AlphaMode selects how the alpha channel is derived from intensity.
type AlphaMode string

const (
	AlphaNone         AlphaMode = "none"
	AlphaBinary       AlphaMode = "binary"
	AlphaBinaryRGB    AlphaMode = "binary_rgb"
	AlphaProportional AlphaMode = "proportional"
)

// Valid reports whether m is a known mode.
func (m AlphaMode) Valid() bool {
	switch m {
	case AlphaNone, AlphaBinary, AlphaBinaryRGB, AlphaProportional:
		return true
	}
	return false
}

// Thresholds split intensities into foreground (<= Min), transition band
// (Min, Max] and background (> Max).
type Thresholds struct {
	Min int `toml:"min"`
	Max int `toml:"max"`
}

// Validate enforces 0 <= Min < Max <= 255.
func (t Thresholds) Validate() error {
	if t.Min < 0 || t.Max > 255 || t.Min >= t.Max {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= min < max <= 255, got min=%d max=%d",
			ErrInvalidConfig, t.Min, t.Max)
	}
	return nil
}

// Canvas is the target geometry of normalized output.
type Canvas struct {
	Height     int `toml:"height"`
	Width      int `toml:"width"`
	Background int `toml:"background"`
}

// Validate rejects non-positive dimensions and out-of-range fill values.
func (c Canvas) Validate() error {
	if c.Height <= 0 || c.Width <= 0 {
		return fmt.Errorf("%w: canvas dimensions must be positive, got %dx%d",
			ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Background < 0 || c.Background > 255 {
		return fmt.Errorf("%w: canvas background %d out of range", ErrInvalidConfig, c.Background)
	}
	return nil
}

// Pipeline holds options for the batch driver.
type Pipeline struct {
	Refine    bool      `toml:"refine"`
	Alpha     AlphaMode `toml:"alpha"`
	Workers   int       `toml:"workers"`
	OutputDir string    `toml:"output_dir"`
}

// Config is the full configuration.
type Config struct {
	Thresholds Thresholds `toml:"thresholds"`
	Canvas     Canvas     `toml:"canvas"`
	Pipeline   Pipeline   `toml:"pipeline"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Thresholds: Thresholds{
			Min: DefaultThresholdMin,
			Max: DefaultThresholdMax,
		},
		Canvas: Canvas{
			Height:     DefaultCanvasHeight,
			Width:      DefaultCanvasWidth,
			Background: DefaultBackground,
		},
		Pipeline: Pipeline{
			Refine:    true,
			Alpha:     AlphaNone,
			Workers:   runtime.NumCPU(),
			OutputDir: "out",
		},
	}
}

// Load reads a TOML file on top of the defaults. Keys absent from the file
// keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if err := c.Canvas.Validate(); err != nil {
		return err
	}
	if !c.Pipeline.Alpha.Valid() {
		return fmt.Errorf("%w: unknown alpha mode %q", ErrInvalidConfig, c.Pipeline.Alpha)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Pipeline.Workers)
	}
	return nil
}
