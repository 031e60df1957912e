package notes

import (
	"fmt"
	"math"
)

// DeviationConfig bounds the pitch deviation curve
type DeviationConfig struct {
	MinCents float64 `yaml:"min_cents" json:"min_cents"` // values at or below are dropped
	MaxCents float64 `yaml:"max_cents" json:"max_cents"`
}

// DefaultDeviationConfig returns one octave either way
func DefaultDeviationConfig() DeviationConfig {
	return DeviationConfig{
		MinCents: -1200,
		MaxCents: 1200,
	}
}

// Validate checks the bounds are ordered
func (c DeviationConfig) Validate() error {
	if !(c.MinCents < c.MaxCents) {
		return fmt.Errorf("deviation min_cents (%v) must be below max_cents (%v)", c.MinCents, c.MaxCents)
	}
	return nil
}

// DeviationPoint is the pitch offset from the sounding note at one frame
type DeviationPoint struct {
	TimeMs float64 `json:"time_ms"`
	Cents  float64 `json:"cents"`
	Valid  bool    `json:"valid"`
}

// Deviation returns one point per frame of midi, a pitch curve in fractional
// MIDI notes sampled every stepMs. A point is invalid where the curve is not
// finite (unvoiced), where no note sounds, or where the offset is at or below
// MinCents. Valid offsets are clamped to MaxCents.
func Deviation(events []Event, midi []float64, stepMs float64, config DeviationConfig) []DeviationPoint {
	points := make([]DeviationPoint, len(midi))
	for i, m := range midi {
		t := float64(i) * stepMs
		points[i].TimeMs = t

		if math.IsNaN(m) || math.IsInf(m, 0) {
			continue
		}
		note, ok := At(events, t)
		if !ok {
			continue
		}

		cents := (m - float64(note.Tone)) * 100
		if cents <= config.MinCents {
			continue
		}
		points[i].Cents = min(cents, config.MaxCents)
		points[i].Valid = true
	}
	return points
}
