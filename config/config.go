// Package config loads the pitch analyzer configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-pitch/algorithms/temporal"
	"github.com/RyanBlaney/sonido-pitch/crepe"
	"github.com/RyanBlaney/sonido-pitch/inference"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/notes"
	"github.com/RyanBlaney/sonido-pitch/transcode"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Unit is the output unit of the pitch curve
type Unit string

const (
	UnitHz   Unit = "hz"
	UnitMIDI Unit = "midi"
)

// IsValid reports whether u is a known unit
func (u Unit) IsValid() bool {
	return u == UnitHz || u == UnitMIDI
}

// Config is the root configuration
type Config struct {
	Pitch    crepe.Config             `yaml:"pitch"`
	Spectral inference.SpectralConfig `yaml:"spectral"`
	Slicer   temporal.SlicerConfig    `yaml:"slicer"`
	Analysis AnalysisConfig           `yaml:"analysis"`
	Notes    NotesConfig              `yaml:"notes"`
	Logging  LoggingConfig            `yaml:"logging"`
	Decoder  transcode.DecoderConfig  `yaml:"decoder"`
}

// AnalysisConfig controls how a recording is split and processed
type AnalysisConfig struct {
	EnableSlicing bool `yaml:"enable_slicing"`
	Workers       int  `yaml:"workers"` // chunks analyzed concurrently
	Unit          Unit `yaml:"unit"`
}

// NotesConfig controls note segmentation and the deviation curve
type NotesConfig struct {
	Enabled       bool                  `yaml:"enabled"`
	MinDurationMs float64               `yaml:"min_duration_ms"`
	Deviation     notes.DeviationConfig `yaml:"deviation"`
}

// LoggingConfig sets the log level
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Pitch:    crepe.DefaultConfig(),
		Spectral: inference.DefaultSpectralConfig(),
		Slicer:   temporal.DefaultSlicerConfig(),
		Analysis: AnalysisConfig{
			EnableSlicing: true,
			Workers:       4,
			Unit:          UnitHz,
		},
		Notes: NotesConfig{
			MinDurationMs: 60,
			Deviation:     notes.DefaultDeviationConfig(),
		},
		Logging: LoggingConfig{Level: "info"},
		Decoder: transcode.DefaultDecoderConfig(),
	}
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and validates the result
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns ErrInvalidConfig joined with every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if err := cfg.Pitch.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := inference.NewSpectral(cfg.Spectral); err != nil {
		errs = append(errs, fmt.Errorf("spectral: %w", err))
	}
	if cfg.Analysis.EnableSlicing {
		if err := cfg.Slicer.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Analysis.Workers < 1 {
		errs = append(errs, fmt.Errorf("analysis.workers must be positive, got %d", cfg.Analysis.Workers))
	}
	if !cfg.Analysis.Unit.IsValid() {
		errs = append(errs, fmt.Errorf("analysis.unit %q is invalid; valid values: hz, midi", cfg.Analysis.Unit))
	}
	if cfg.Notes.Enabled {
		if cfg.Notes.MinDurationMs < 0 {
			errs = append(errs, fmt.Errorf("notes.min_duration_ms must not be negative, got %v", cfg.Notes.MinDurationMs))
		}
		if err := cfg.Notes.Deviation.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if err := cfg.Decoder.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
