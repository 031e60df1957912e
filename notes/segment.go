package notes

import "math"

// Segmenter derives notes directly from a pitch curve. It stands in for a
// note model: voiced runs are split wherever the rounded pitch changes, and
// runs shorter than MinDurationMs are absorbed by the previous note or
// dropped.
type Segmenter struct {
	MinDurationMs float64
}

// NewSegmenter creates a segmenter that keeps notes of at least minDurationMs
func NewSegmenter(minDurationMs float64) *Segmenter {
	return &Segmenter{MinDurationMs: minDurationMs}
}

// Segment returns events for a MIDI curve sampled every stepMs. Non-finite
// values are unvoiced and end the current note.
func (s *Segmenter) Segment(midi []float64, stepMs float64) []Event {
	var events []Event
	start := -1
	tone := 0

	flush := func(end int) {
		if start < 0 {
			return
		}
		ev := Event{
			StartMs: float64(start) * stepMs,
			EndMs:   float64(end) * stepMs,
			Tone:    tone,
		}
		switch {
		case ev.EndMs-ev.StartMs >= s.MinDurationMs:
			events = append(events, ev)
		case len(events) > 0 && events[len(events)-1].EndMs == ev.StartMs:
			events[len(events)-1].EndMs = ev.EndMs
		}
		start = -1
	}

	for i, m := range midi {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			flush(i)
			continue
		}

		rounded := int(math.Round(m))
		if start >= 0 && rounded != tone {
			flush(i)
		}
		if start < 0 {
			start = i
			tone = rounded
		}
	}
	flush(len(midi))

	return events
}
