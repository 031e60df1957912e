package harmonic

import (
	"math"
	"testing"
)

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func TestSaliencePrefersFundamental(t *testing.T) {
	s := NewSalience(16000, 1024, 4096, 5, 0.8)

	// harmonics 1..4 of 200 Hz
	frame := make([]float64, 1024)
	for h := 1; h <= 4; h++ {
		for i, v := range sine(200*float64(h), 16000, 1024) {
			frame[i] += v / float64(h)
		}
	}

	scores, err := s.Compute(frame, []float64{100, 200, 300, 400})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	best := 0
	for i, v := range scores {
		if v > scores[best] {
			best = i
		}
	}
	if best != 1 {
		t.Errorf("most salient candidate = %d (scores %v), want 200 Hz", best, scores)
	}
}

func TestSalienceAtIgnoresHarmonicsAboveNyquist(t *testing.T) {
	s := NewSalience(16000, 1024, 1024, 3, 1)
	magnitude := make([]float64, 513)
	for i := range magnitude {
		magnitude[i] = 1
	}

	tests := []struct {
		f0   float64
		want float64
	}{
		{1000, 3},
		{3000, 2}, // 9 kHz is past Nyquist
		{9000, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := s.At(magnitude, tt.f0); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("At(%v) = %v, want %v", tt.f0, got, tt.want)
		}
	}
}

func TestSalienceRejectsWrongFrameSize(t *testing.T) {
	s := NewSalience(16000, 1024, 2048, 5, 0.8)
	if _, err := s.Compute(make([]float64, 512), []float64{440}); err == nil {
		t.Error("expected error for short frame")
	}
}
