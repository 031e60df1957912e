package crepe

import (
	"fmt"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// HopSize returns the number of 16 kHz samples between frames for stepMs
func HopSize(stepMs float64) int {
	return int(ModelSampleRate * stepMs / 1000.0)
}

// FrameProcessor cuts a 16 kHz signal into overlapping, normalized model frames
type FrameProcessor struct {
	hopSize   int
	batchSize int
}

// NewFrameProcessor creates a processor emitting one frame every stepMs.
// A batchSize of zero or less hands every frame over in a single batch.
func NewFrameProcessor(stepMs float64, batchSize int) (*FrameProcessor, error) {
	hop := HopSize(stepMs)
	if hop < 1 {
		return nil, fmt.Errorf("%w: step %v ms is shorter than one sample at %d Hz",
			ErrInvalidArgument, stepMs, ModelSampleRate)
	}

	return &FrameProcessor{
		hopSize:   hop,
		batchSize: batchSize,
	}, nil
}

// HopSize returns the distance between frames in samples
func (fp *FrameProcessor) HopSize() int {
	return fp.hopSize
}

// NumFrames returns how many frames a signal of n samples produces
func (fp *FrameProcessor) NumFrames(n int) int {
	return n / fp.hopSize
}

// Frames returns every frame of signal. Frame i is centered on sample i*hop.
func (fp *FrameProcessor) Frames(signal []float64) [][]float32 {
	padded := fp.pad(signal)
	n := fp.NumFrames(len(signal))

	frames := make([][]float32, n)
	for i := range frames {
		frames[i] = fp.frame(padded, i)
	}
	return frames
}

// EachBatch calls fn with consecutive batches of frames in order. start is
// the index of the first frame in the batch. Iteration stops at the first
// error fn returns.
func (fp *FrameProcessor) EachBatch(signal []float64, fn func(start int, frames [][]float32) error) error {
	padded := fp.pad(signal)
	n := fp.NumFrames(len(signal))

	size := fp.batchSize
	if size <= 0 {
		size = max(n, 1)
	}

	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batch := make([][]float32, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, fp.frame(padded, i))
		}
		if err := fn(start, batch); err != nil {
			return err
		}
	}
	return nil
}

func (fp *FrameProcessor) pad(signal []float64) []float64 {
	return common.ZeroPad(signal, FrameSize/2, FrameSize/2)
}

func (fp *FrameProcessor) frame(padded []float64, index int) []float32 {
	return common.ZScoreFloat32(common.Window(padded, index, fp.hopSize, FrameSize))
}
