package common

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when parallel slices differ in length
var ErrLengthMismatch = errors.New("parallel slices differ in length")

// Interpolator provides linear sample interpolation and resampling
type Interpolator struct{}

// NewInterpolator creates a new interpolator
func NewInterpolator() *Interpolator {
	return &Interpolator{}
}

// Interpolate performs linear interpolation at a fractional index, holding the edges
func (interp *Interpolator) Interpolate(data []float64, index float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	if index <= 0 {
		return data[0]
	}
	if index >= float64(len(data)-1) {
		return data[len(data)-1]
	}

	i := int(index)
	frac := index - float64(i)

	return Lerp(data[i], data[i+1], frac)
}

// ResampleSignal resamples a signal to a new sample rate.
// No anti-alias filter is applied; prefer decoding at the target rate when possible.
func (interp *Interpolator) ResampleSignal(signal []float64, originalRate, targetRate int) []float64 {
	if len(signal) == 0 || originalRate <= 0 || targetRate <= 0 {
		return signal
	}
	if originalRate == targetRate {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}

	ratio := float64(originalRate) / float64(targetRate)
	newLength := int(float64(len(signal)) / ratio)

	if newLength <= 0 {
		return []float64{}
	}

	resampled := make([]float64, newLength)

	for i := range resampled {
		sourceIndex := float64(i) * ratio
		resampled[i] = interp.Interpolate(signal, sourceIndex)
	}

	return resampled
}

// FillGaps returns a copy of values with every run of unvoiced positions filled.
//
// A run touching the start takes the first voiced value after it, a run
// touching the end takes the last voiced value before it, and an interior run
// is linearly interpolated between its bounding voiced values. When nothing is
// voiced the values come back unchanged.
func FillGaps(values []float64, unvoiced []bool) ([]float64, error) {
	if len(values) != len(unvoiced) {
		return nil, fmt.Errorf("fill gaps: %d values, %d flags: %w", len(values), len(unvoiced), ErrLengthMismatch)
	}

	filled := make([]float64, len(values))
	copy(filled, values)

	length := len(filled)
	i := 0
	for i < length {
		if !unvoiced[i] {
			i++
			continue
		}

		left := i - 1
		right := i
		for right < length && unvoiced[right] {
			right++
		}

		switch {
		case left < 0 && right >= length:
			// nothing voiced anywhere
			return filled, nil
		case left < 0:
			for j := 0; j < right; j++ {
				filled[j] = filled[right]
			}
		case right >= length:
			for j := left + 1; j < length; j++ {
				filled[j] = filled[left]
			}
		default:
			span := float64(right - left)
			for j := left + 1; j < right; j++ {
				t := float64(j-left) / span
				filled[j] = Lerp(filled[left], filled[right], t)
			}
		}

		i = right
	}

	return filled, nil
}
