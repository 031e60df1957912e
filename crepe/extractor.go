package crepe

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// Config holds the pitch extraction parameters
type Config struct {
	StepMs          float64 `yaml:"step_ms" json:"step_ms"`                   // time between frames
	Threshold       float64 `yaml:"threshold" json:"threshold"`               // confidence below this is unvoiced
	BatchSize       int     `yaml:"batch_size" json:"batch_size"`             // frames per Engine call, 0 for all
	TransitionWidth int     `yaml:"transition_width" json:"transition_width"` // decoder band half-width in bins
	CentroidRadius  int     `yaml:"centroid_radius" json:"centroid_radius"`   // bins either side of the decoded bin
}

// DefaultConfig returns the extraction parameters of the reference model
func DefaultConfig() Config {
	return Config{
		StepMs:          5,
		Threshold:       0.21,
		BatchSize:       512,
		TransitionWidth: 12,
		CentroidRadius:  4,
	}
}

// Validate checks the parameters are usable
func (c Config) Validate() error {
	switch {
	case HopSize(c.StepMs) < 1:
		return fmt.Errorf("pitch step_ms must give at least one sample at %d Hz, got %v", ModelSampleRate, c.StepMs)
	case c.Threshold < 0 || c.Threshold >= 1:
		return fmt.Errorf("pitch threshold must be in [0, 1), got %v", c.Threshold)
	case c.BatchSize < 0:
		return fmt.Errorf("pitch batch_size must not be negative, got %d", c.BatchSize)
	case c.TransitionWidth < 1:
		return fmt.Errorf("pitch transition_width must be positive, got %d", c.TransitionWidth)
	case c.CentroidRadius < 0:
		return fmt.Errorf("pitch centroid_radius must not be negative, got %d", c.CentroidRadius)
	}
	return nil
}

// Track is a pitch curve with one entry per frame
type Track struct {
	StepMs     float64   `json:"step_ms"`
	Frequency  []float64 `json:"frequency"` // Hz, unvoiced gaps filled unless every frame is unvoiced
	Voiced     []bool    `json:"voiced"`
	Confidence []float64 `json:"confidence"`
}

// Len returns the number of frames
func (t *Track) Len() int {
	return len(t.Frequency)
}

// MIDI returns the track as fractional MIDI notes. Frames at 0 Hz give -Inf.
func (t *Track) MIDI() []float64 {
	notes := make([]float64, len(t.Frequency))
	for i, f := range t.Frequency {
		notes[i] = FrequencyToMidiNote(f)
	}
	return notes
}

// Extractor computes a fundamental frequency track from a 16 kHz signal
type Extractor struct {
	config  Config
	engine  Engine
	frames  *FrameProcessor
	decoder *Decoder
	logger  logging.Logger
}

// NewExtractor creates an extractor that scores frames with engine
func NewExtractor(engine Engine, config Config) (*Extractor, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: nil inference engine", ErrInvalidArgument)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	frames, err := NewFrameProcessor(config.StepMs, config.BatchSize)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		config:  config,
		engine:  engine,
		frames:  frames,
		decoder: NewDecoder(NumBins, config.TransitionWidth),
		logger: logging.WithFields(logging.Fields{
			"component": "pitch_extractor",
		}),
	}, nil
}

// Config returns the extractor's parameters
func (e *Extractor) Config() Config {
	return e.config
}

// Activations runs every frame of signal through the engine and returns its
// raw output, one row of NumBins per frame
func (e *Extractor) Activations(ctx context.Context, signal []float64) ([][]float32, error) {
	activations := make([][]float32, 0, e.frames.NumFrames(len(signal)))

	err := e.frames.EachBatch(signal, func(start int, batch [][]float32) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := e.engine.Infer(ctx, batch)
		if err != nil {
			return fmt.Errorf("inference failed at frame %d: %w", start, err)
		}
		if len(raw) != len(batch) {
			return fmt.Errorf("%w: got %d rows for %d frames", ErrEngineOutput, len(raw), len(batch))
		}

		for i, row := range raw {
			if len(row) != NumBins {
				return fmt.Errorf("%w: frame %d has %d bins, want %d", ErrEngineOutput, start+i, len(row), NumBins)
			}
			activations = append(activations, row)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEngineOutput) {
			e.logger.Error(err, "Inference engine returned malformed output")
		}
		return nil, err
	}

	return activations, nil
}

// ComputeF0 extracts the pitch track of a 16 kHz mono signal. A signal
// shorter than one hop gives an empty track.
func (e *Extractor) ComputeF0(ctx context.Context, signal []float64) (*Track, error) {
	activations, err := e.Activations(ctx, signal)
	if err != nil {
		return nil, err
	}
	return e.Decode(activations)
}

// Decode turns raw engine activations into a pitch track. The decoder sees
// each row through Softmax; confidence and the centroid read the raw values.
func (e *Extractor) Decode(activations [][]float32) (*Track, error) {
	numFrames := len(activations)
	track := &Track{
		StepMs:     e.config.StepMs,
		Frequency:  make([]float64, numFrames),
		Voiced:     make([]bool, numFrames),
		Confidence: make([]float64, numFrames),
	}
	if numFrames == 0 {
		return track, nil
	}

	probabilities := make([][]float32, numFrames)
	for t, row := range activations {
		if len(row) != NumBins {
			return nil, fmt.Errorf("%w: frame %d has %d bins, want %d", ErrInvalidArgument, t, len(row), NumBins)
		}
		probabilities[t] = Softmax(row)
	}
	path := e.decoder.Decode(probabilities)

	unvoiced := make([]bool, numFrames)
	numUnvoiced := 0
	for t, bin := range path {
		if bin != Unvoiced {
			confidence := activations[t][bin]
			cents := e.centroid(activations[t], bin)
			if c := float64(confidence); !math.IsNaN(c) && !math.IsInf(c, 0) {
				track.Confidence[t] = c
			}

			if isNormal(cents) && isNormal32(confidence) && float64(confidence) > e.config.Threshold {
				track.Frequency[t] = CentsToFrequency(cents)
			}
		}

		unvoiced[t] = track.Frequency[t] == 0
		track.Voiced[t] = !unvoiced[t]
		if unvoiced[t] {
			numUnvoiced++
		}
	}

	switch numUnvoiced {
	case 0:
	case numFrames:
		e.logger.Debug("No voiced frames", logging.Fields{
			"frames": numFrames,
		})
	default:
		filled, err := common.FillGaps(track.Frequency, unvoiced)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		track.Frequency = filled
	}

	e.logger.Debug("Decoded pitch track", logging.Fields{
		"frames":   numFrames,
		"unvoiced": numUnvoiced,
	})

	return track, nil
}

// centroid returns the activation-weighted mean cents of the bins around bin
func (e *Extractor) centroid(activation []float32, bin int) float64 {
	last := len(activation) - 1
	lo := common.ClampInt(bin-e.config.CentroidRadius, 0, last)
	hi := common.ClampInt(bin+e.config.CentroidRadius, 0, last)

	var weighted, total float64
	for b := lo; b <= hi; b++ {
		w := float64(activation[b])
		weighted += w * BinToCents(b)
		total += w
	}
	return weighted / total
}

// isNormal reports whether x is finite, non-zero and not subnormal
func isNormal(x float64) bool {
	abs := math.Abs(x)
	return abs >= 0x1p-1022 && !math.IsInf(abs, 0)
}

func isNormal32(x float32) bool {
	abs := math.Abs(float64(x))
	return abs >= 0x1p-126 && !math.IsInf(abs, 0)
}
