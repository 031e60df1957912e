package inference

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-pitch/crepe"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// SpectralConfig holds the parameters of the spectral engine
type SpectralConfig struct {
	FFTSize      int     `yaml:"fft_size" json:"fft_size"`             // zero-padded transform length
	Harmonics    int     `yaml:"harmonics" json:"harmonics"`           // harmonics summed per candidate
	Decay        float64 `yaml:"decay" json:"decay"`                   // weight ratio between successive harmonics
	Sharpness    float64 `yaml:"sharpness" json:"sharpness"`           // exponent applied to salience relative to the peak
	MinPeakRatio float64 `yaml:"min_peak_ratio" json:"min_peak_ratio"` // peak/mean salience at or below this is unpitched
}

// DefaultSpectralConfig returns parameters tuned for 16 kHz vocals
func DefaultSpectralConfig() SpectralConfig {
	return SpectralConfig{
		FFTSize:      4096,
		Harmonics:    5,
		Decay:        0.8,
		Sharpness:    2,
		MinPeakRatio: 3,
	}
}

// Spectral is a model-free crepe.Engine. Each frame is scored by harmonic
// summation at the centre frequency of every pitch bin and mapped to [0, 1]
// like a sigmoid model output: the most salient bin gets the frame's
// confidence, 1 - MinPeakRatio*mean/peak, and the others fall off as
// (score/peak)^Sharpness. Frames without a clear peak get a row of zeros.
type Spectral struct {
	config     SpectralConfig
	salience   *harmonic.Salience
	candidates []float64
	logger     logging.Logger
}

// NewSpectral creates a spectral engine
func NewSpectral(config SpectralConfig) (*Spectral, error) {
	if config.FFTSize < crepe.FrameSize {
		return nil, fmt.Errorf("fft_size must be at least %d, got %d", crepe.FrameSize, config.FFTSize)
	}
	if config.Harmonics < 1 {
		return nil, fmt.Errorf("harmonics must be positive, got %d", config.Harmonics)
	}
	if config.Decay <= 0 || config.Decay > 1 {
		return nil, fmt.Errorf("decay must be in (0, 1], got %v", config.Decay)
	}
	if config.Sharpness <= 0 {
		return nil, fmt.Errorf("sharpness must be positive, got %v", config.Sharpness)
	}
	if config.MinPeakRatio < 0 {
		return nil, fmt.Errorf("min_peak_ratio must not be negative, got %v", config.MinPeakRatio)
	}

	candidates := make([]float64, crepe.NumBins)
	for b := range candidates {
		candidates[b] = crepe.CentsToFrequency(crepe.BinToCents(b))
	}

	return &Spectral{
		config: config,
		salience: harmonic.NewSalience(crepe.ModelSampleRate, crepe.FrameSize,
			config.FFTSize, config.Harmonics, config.Decay),
		candidates: candidates,
		logger: logging.WithFields(logging.Fields{
			"component": "spectral_engine",
		}),
	}, nil
}

// Infer returns one row of crepe.NumBins scores in [0, 1] per frame
func (s *Spectral) Infer(ctx context.Context, frames [][]float32) ([][]float32, error) {
	out := make([][]float32, len(frames))
	frame := make([]float64, crepe.FrameSize)

	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(f) != crepe.FrameSize {
			return nil, fmt.Errorf("%w: frame %d has %d samples, want %d",
				crepe.ErrInvalidArgument, i, len(f), crepe.FrameSize)
		}

		for j, v := range f {
			frame[j] = float64(v)
		}

		scores, err := s.salience.Compute(frame, s.candidates)
		if err != nil {
			return nil, err
		}
		out[i] = s.activation(scores)
	}

	s.logger.Debug("Scored frames", logging.Fields{
		"frames": len(frames),
	})

	return out, nil
}

func (s *Spectral) activation(scores []float64) []float32 {
	row := make([]float32, len(scores))

	peak := floats.Max(scores)
	if !(peak > 0) || math.IsInf(peak, 0) {
		return row
	}
	confidence := 1 - s.config.MinPeakRatio*common.Mean(scores)/peak
	if !(confidence > 0) {
		return row
	}

	for b, v := range scores {
		row[b] = float32(confidence * math.Pow(v/peak, s.config.Sharpness))
	}
	return row
}
