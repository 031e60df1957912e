package analysis

import (
	"math"

	"github.com/RyanBlaney/sonido-pitch/crepe"
)

// Curve is the pitch curve of a whole recording, one entry every StepMs
// starting at time zero
type Curve struct {
	StepMs     float64   `json:"step_ms"`
	Hz         []float64 `json:"hz"` // 0 where no chunk covers the frame or the chunk is unvoiced throughout
	Voiced     []bool    `json:"voiced"`
	Confidence []float64 `json:"confidence"`
}

func newCurve(stepMs float64, frames int) *Curve {
	return &Curve{
		StepMs:     stepMs,
		Hz:         make([]float64, frames),
		Voiced:     make([]bool, frames),
		Confidence: make([]float64, frames),
	}
}

// Len returns the number of frames
func (c *Curve) Len() int {
	return len(c.Hz)
}

// TimeMs returns the centre time of frame i
func (c *Curve) TimeMs(i int) float64 {
	return float64(i) * c.StepMs
}

// MIDI returns the curve in fractional MIDI notes, NaN where Hz is 0
func (c *Curve) MIDI() []float64 {
	notes := make([]float64, len(c.Hz))
	for i, f := range c.Hz {
		if f <= 0 {
			notes[i] = math.NaN()
			continue
		}
		notes[i] = crepe.FrequencyToMidiNote(f)
	}
	return notes
}

// UnvoicedFrames counts frames without a reliable pitch
func (c *Curve) UnvoicedFrames() int {
	n := 0
	for _, v := range c.Voiced {
		if !v {
			n++
		}
	}
	return n
}

// place copies a chunk track into the curve starting at frame base
func (c *Curve) place(base int, track *crepe.Track) {
	for k := range track.Len() {
		i := base + k
		if i < 0 {
			continue
		}
		if i >= c.Len() {
			return
		}
		c.Hz[i] = track.Frequency[k]
		c.Voiced[i] = track.Voiced[k]
		c.Confidence[i] = track.Confidence[k]
	}
}
