package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT computes magnitude spectra of real frames, zero-padding each frame to
// a fixed transform size
type FFT struct {
	size int
}

// NewFFT creates a transform of the given size. Frames longer than size are
// truncated.
func NewFFT(size int) *FFT {
	return &FFT{size: max(size, 1)}
}

// Size returns the transform length
func (f *FFT) Size() int {
	return f.size
}

// Compute returns the complex spectrum of x zero-padded to Size
func (f *FFT) Compute(x []float64) []complex128 {
	padded := make([]float64, f.size)
	copy(padded, x)
	return fft.FFTReal(padded)
}

// Magnitude returns |X[k]| for k in [0, Size/2]
func (f *FFT) Magnitude(x []float64) []float64 {
	spectrum := f.Compute(x)

	magnitude := make([]float64, f.size/2+1)
	for k := range magnitude {
		magnitude[k] = cmplx.Abs(spectrum[k])
	}
	return magnitude
}

// BinFrequency returns the centre frequency of spectrum bin k
func (f *FFT) BinFrequency(k int, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(f.size)
}
