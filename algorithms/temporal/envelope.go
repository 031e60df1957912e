package temporal

import "github.com/RyanBlaney/sonido-pitch/algorithms/common"

// Envelope provides amplitude envelope extraction
type Envelope struct {
	// No state needed - stateless calculation
}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes a centered short-time RMS envelope.
//
// The signal is zero-padded by frameSize/2 at the head (and implicitly at the
// tail) so frame i is centered on sample i*hopSize. It returns
// len(signal)/hopSize frames.
func (e *Envelope) ComputeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) == 0 || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	padded := common.ZeroPad(signal, frameSize/2, frameSize-frameSize/2)

	numFrames := len(signal) / hopSize
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		envelope[i] = common.RMS(common.Window(padded, i, hopSize, frameSize))
	}

	return envelope
}
