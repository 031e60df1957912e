package windowing

import (
	"math"
	"testing"
)

func TestHann(t *testing.T) {
	h := NewHann(5)

	want := []float64{0, 0.5, 1, 0.5, 0}
	got, err := h.Apply([]float64{1, 1, 1, 1, 1})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("w[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	coeffs := h.Coefficients()
	coeffs[2] = 7
	if h.Coefficients()[2] != 1 {
		t.Error("Coefficients exposed internal state")
	}

	if _, err := h.Apply(make([]float64, 4)); err == nil {
		t.Error("expected error for length mismatch")
	}
}
