package harmonic

import (
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	"github.com/RyanBlaney/sonido-pitch/algorithms/windowing"
)

// Salience scores candidate fundamentals by weighted harmonic summation over
// the magnitude spectrum of a Hann-windowed frame
type Salience struct {
	sampleRate   int
	numHarmonics int
	decay        float64 // weight of harmonic h is decay^(h-1)
	window       *windowing.Hann
	fft          *spectral.FFT
	interp       *common.Interpolator
}

// NewSalience creates a harmonic salience analyzer for frames of frameSize
// samples, zero-padded to fftSize
func NewSalience(sampleRate, frameSize, fftSize, numHarmonics int, decay float64) *Salience {
	return &Salience{
		sampleRate:   sampleRate,
		numHarmonics: max(numHarmonics, 1),
		decay:        decay,
		window:       windowing.NewHann(frameSize),
		fft:          spectral.NewFFT(max(fftSize, frameSize)),
		interp:       common.NewInterpolator(),
	}
}

// Spectrum returns the magnitude spectrum of the windowed frame
func (s *Salience) Spectrum(frame []float64) ([]float64, error) {
	windowed, err := s.window.Apply(frame)
	if err != nil {
		return nil, err
	}
	return s.fft.Magnitude(windowed), nil
}

// At returns the salience of f0 given a magnitude spectrum from Spectrum.
// Harmonics at or above Nyquist are ignored.
func (s *Salience) At(magnitude []float64, f0 float64) float64 {
	if f0 <= 0 || len(magnitude) == 0 {
		return 0
	}

	nyquist := float64(s.sampleRate) / 2
	binWidth := float64(s.sampleRate) / float64(s.fft.Size())

	var sum float64
	weight := 1.0
	for h := 1; h <= s.numHarmonics; h++ {
		freq := float64(h) * f0
		if freq >= nyquist {
			break
		}
		sum += weight * s.interp.Interpolate(magnitude, freq/binWidth)
		weight *= s.decay
	}
	return sum
}

// Compute returns the salience of every candidate frequency for frame
func (s *Salience) Compute(frame []float64, candidates []float64) ([]float64, error) {
	magnitude, err := s.Spectrum(frame)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(candidates))
	for i, f0 := range candidates {
		scores[i] = s.At(magnitude, f0)
		if math.IsNaN(scores[i]) {
			scores[i] = 0
		}
	}
	return scores, nil
}
