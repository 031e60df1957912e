package temporal

import (
	"fmt"
	"slices"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// SlicerConfig holds the silence slicing parameters.
// Lengths below HopSize/WinSize are counted in RMS frames, not samples.
type SlicerConfig struct {
	SampleRate  int     `yaml:"sample_rate" json:"sample_rate"`
	Threshold   float64 `yaml:"threshold" json:"threshold"`       // RMS below this is silence
	HopSize     int     `yaml:"hop_size" json:"hop_size"`         // samples between RMS frames
	WinSize     int     `yaml:"win_size" json:"win_size"`         // samples per RMS frame
	MinLength   int     `yaml:"min_length" json:"min_length"`     // shortest chunk kept between cuts
	MinInterval int     `yaml:"min_interval" json:"min_interval"` // shortest silence worth cutting
	MaxSilKept  int     `yaml:"max_sil_kept" json:"max_sil_kept"` // silence left around a cut
}

// DefaultSlicerConfig returns the slicing parameters tuned for 44.1 kHz vocals
func DefaultSlicerConfig() SlicerConfig {
	return SlicerConfig{
		SampleRate:  44100,
		Threshold:   0.02,
		HopSize:     441,  // 10 ms
		WinSize:     1764, // 40 ms
		MinLength:   500,
		MinInterval: 30,
		MaxSilKept:  50,
	}
}

// Validate checks the parameters are usable
func (c SlicerConfig) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("slicer sample_rate must be positive, got %d", c.SampleRate)
	case c.HopSize <= 0:
		return fmt.Errorf("slicer hop_size must be positive, got %d", c.HopSize)
	case c.WinSize <= 0:
		return fmt.Errorf("slicer win_size must be positive, got %d", c.WinSize)
	case c.MinLength <= 0:
		return fmt.Errorf("slicer min_length must be positive, got %d", c.MinLength)
	case c.MinInterval <= 0:
		return fmt.Errorf("slicer min_interval must be positive, got %d", c.MinInterval)
	case c.MaxSilKept < 0:
		return fmt.Errorf("slicer max_sil_kept must not be negative, got %d", c.MaxSilKept)
	case c.MinInterval > c.MinLength:
		return fmt.Errorf("slicer min_interval (%d) must not exceed min_length (%d)", c.MinInterval, c.MinLength)
	}
	return nil
}

// Chunk is a contiguous non-silent span of the input and where it started
type Chunk struct {
	OffsetMs float64   `json:"offset_ms"`
	Start    int       `json:"start"` // first sample index in the source signal
	Samples  []float64 `json:"-"`
}

// End returns the sample index one past the chunk
func (c Chunk) End() int {
	return c.Start + len(c.Samples)
}

// silenceCut is a removed range of RMS frames, [start, end)
type silenceCut struct {
	start int
	end   int
}

// Slicer splits a long mono recording on silences
type Slicer struct {
	config   SlicerConfig
	envelope *Envelope
	logger   logging.Logger
}

// NewSlicer creates a slicer. The config is not validated here; see SlicerConfig.Validate.
func NewSlicer(config SlicerConfig) *Slicer {
	return &Slicer{
		config:   config,
		envelope: NewEnvelope(),
		logger: logging.WithFields(logging.Fields{
			"component": "audio_slicer",
		}),
	}
}

// Slice returns the non-silent chunks of samples in time order
func (s *Slicer) Slice(samples []float64) []Chunk {
	cfg := s.config

	if (len(samples)+cfg.HopSize-1)/cfg.HopSize <= cfg.MinLength {
		return []Chunk{s.chunk(samples, 0, len(samples))}
	}

	rms := s.envelope.ComputeRMS(samples, cfg.WinSize, cfg.HopSize)
	cuts := s.findCuts(rms)

	if len(cuts) == 0 {
		s.logger.Debug("No silence to cut", logging.Fields{
			"rms_frames": len(rms),
		})
		return []Chunk{s.chunk(samples, 0, len(samples))}
	}

	totalFrames := len(rms)
	chunks := make([]Chunk, 0, len(cuts)+1)
	appendSpan := func(startFrame, endFrame int) {
		start := min(startFrame*cfg.HopSize, len(samples))
		end := min(endFrame*cfg.HopSize, len(samples))
		if end > start {
			chunks = append(chunks, s.chunk(samples, start, end))
		}
	}

	if cuts[0].start > 0 {
		appendSpan(0, cuts[0].start)
	}
	for i := 0; i < len(cuts)-1; i++ {
		appendSpan(cuts[i].end, cuts[i+1].start)
	}
	if last := cuts[len(cuts)-1]; last.end < totalFrames {
		appendSpan(last.end, totalFrames)
	}

	s.logger.Debug("Sliced audio", logging.Fields{
		"rms_frames": totalFrames,
		"cuts":       len(cuts),
		"chunks":     len(chunks),
	})

	return chunks
}

// findCuts scans the RMS envelope for silences long enough to remove
func (s *Slicer) findCuts(rms []float64) []silenceCut {
	cfg := s.config
	maxKept := cfg.MaxSilKept

	var cuts []silenceCut
	silenceStart := -1
	clipStart := 0

	for i, level := range rms {
		if level < cfg.Threshold {
			if silenceStart < 0 {
				silenceStart = i
			}
			continue
		}
		if silenceStart < 0 {
			continue
		}

		isLeadingSilence := silenceStart == 0 && i > maxKept
		needSliceMiddle := i-silenceStart >= cfg.MinInterval && i-clipStart >= cfg.MinLength
		if !isLeadingSilence && !needSliceMiddle {
			silenceStart = -1
			continue
		}

		switch {
		case i-silenceStart <= maxKept:
			pos := argMinIn(rms, silenceStart, i+1)
			if silenceStart == 0 {
				cuts = append(cuts, silenceCut{0, pos})
			} else {
				cuts = append(cuts, silenceCut{pos, pos})
			}
			clipStart = pos

		case i-silenceStart <= maxKept*2:
			pos := argMinIn(rms, i-maxKept, silenceStart+maxKept+1)
			posL := argMinIn(rms, silenceStart, silenceStart+maxKept+1)
			posR := argMinIn(rms, i-maxKept, i+1)
			if silenceStart == 0 {
				cuts = append(cuts, silenceCut{0, posR})
				clipStart = posR
			} else {
				cuts = append(cuts, silenceCut{min(posL, pos), max(posR, pos)})
				clipStart = max(posR, pos)
			}

		default:
			posL := argMinIn(rms, silenceStart, silenceStart+maxKept+1)
			posR := argMinIn(rms, i-maxKept, i+1)
			if silenceStart == 0 {
				cuts = append(cuts, silenceCut{0, posR})
			} else {
				cuts = append(cuts, silenceCut{posL, posR})
			}
			clipStart = posR
		}
		silenceStart = -1
	}

	totalFrames := len(rms)
	if silenceStart >= 0 && totalFrames-silenceStart >= cfg.MinInterval {
		silenceEnd := min(totalFrames, silenceStart+maxKept)
		pos := argMinIn(rms, silenceStart, silenceEnd+1)
		cuts = append(cuts, silenceCut{pos, totalFrames + 1})
	}

	return cuts
}

func (s *Slicer) chunk(samples []float64, start, end int) Chunk {
	return Chunk{
		OffsetMs: float64(start) * 1000.0 / float64(s.config.SampleRate),
		Start:    start,
		Samples:  slices.Clone(samples[start:end]),
	}
}

// argMinIn returns the absolute index of the first minimum of rms[lo:hi], hi clamped to len(rms)
func argMinIn(rms []float64, lo, hi int) int {
	hi = min(hi, len(rms))
	return common.ArgMin(rms[lo:hi]) + lo
}
