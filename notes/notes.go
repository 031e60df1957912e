// Package notes merges note segmentation with a pitch curve.
//
// A note model predicts, for each sliced chunk, a run of notes and rests with
// durations. Flatten places those runs on the absolute timeline, and
// Deviation expresses a pitch curve as the offset in cents from the note
// sounding at each frame, which is what a piano-roll editor stores as pitch
// bend.
package notes

import (
	"context"
	"math"
	"slices"
)

// Note is one predicted note or rest
type Note struct {
	MIDI     float64 `json:"midi"`     // fractional note number
	Duration float64 `json:"duration"` // seconds
	Rest     bool    `json:"rest"`
}

// Sequence is the prediction for one chunk, starting OffsetMs into the signal
type Sequence struct {
	OffsetMs float64 `json:"offset_ms"`
	Notes    []Note  `json:"notes"`
}

// Predictor is the note segmentation model
type Predictor interface {
	Predict(ctx context.Context, samples []float64) ([]Note, error)
}

// Event is a sounding note on the absolute timeline
type Event struct {
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
	Tone    int     `json:"tone"` // nearest MIDI note
}

// Flatten converts per-chunk predictions to absolute events in time order.
// Rests advance time but produce no event.
func Flatten(sequences []Sequence) []Event {
	var events []Event
	for _, seq := range sequences {
		cursor := seq.OffsetMs
		for _, n := range seq.Notes {
			durMs := n.Duration * 1000
			if !n.Rest && durMs > 0 {
				events = append(events, Event{
					StartMs: cursor,
					EndMs:   cursor + durMs,
					Tone:    int(math.Round(n.MIDI)),
				})
			}
			cursor += durMs
		}
	}

	slices.SortStableFunc(events, func(a, b Event) int {
		switch {
		case a.StartMs < b.StartMs:
			return -1
		case a.StartMs > b.StartMs:
			return 1
		}
		return 0
	})
	return events
}

// At returns the event sounding at ms, if any. events must be sorted by
// StartMs; where events overlap the later one wins.
func At(events []Event, ms float64) (Event, bool) {
	i, _ := slices.BinarySearchFunc(events, ms, func(e Event, t float64) int {
		if e.StartMs <= t {
			return -1
		}
		return 1
	})
	// events[i-1] is the last one starting at or before ms
	for j := i - 1; j >= 0; j-- {
		if ms < events[j].EndMs {
			return events[j], true
		}
	}
	return Event{}, false
}
