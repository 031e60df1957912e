// Package crepe turns per-frame pitch-class activations into a fundamental
// frequency track.
//
// The pipeline is: slice the 16 kHz signal into normalized 1024-sample frames,
// run them through an Engine that returns raw scores over 360 pitch bins,
// softmax each frame, decode the most likely bin sequence with a banded
// Viterbi pass, refine each decoded bin with a local weighted centroid, gate
// on confidence and fill unvoiced gaps.
package crepe

import (
	"context"
	"errors"
)

const (
	ModelSampleRate = 16000 // Hz expected by the pitch model
	FrameSize       = 1024  // samples per model frame
	NumBins         = 360   // pitch classes per frame
	CentsPerBin     = 20.0
	CentsOffset     = 1997.3794084376191 // cents of bin 0 above ReferenceHz
	ReferenceHz     = 10.0

	// Unvoiced marks a decoded frame with no reliable pitch
	Unvoiced = -1
)

var (
	// ErrInvalidArgument reports malformed input such as mismatched slice lengths
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEngineOutput reports an Engine result that breaks the frame/bin contract
	ErrEngineOutput = errors.New("inference engine output does not match input")
)

// Engine is the pitch model. Given a batch of normalized frames, each
// FrameSize long, it returns one raw (pre-softmax) score vector of NumBins
// values per frame. Implementations used by more than one goroutine must be
// safe for concurrent use.
type Engine interface {
	Infer(ctx context.Context, frames [][]float32) ([][]float32, error)
}
