// Package inference provides pitch model backends for crepe.Extractor.
package inference

import (
	"context"

	"github.com/RyanBlaney/sonido-pitch/crepe"
)

// Func adapts a plain function to crepe.Engine, which is handy for wrapping
// an external runtime or for scripted test engines
type Func func(ctx context.Context, frames [][]float32) ([][]float32, error)

// Infer calls f
func (f Func) Infer(ctx context.Context, frames [][]float32) ([][]float32, error) {
	return f(ctx, frames)
}

var (
	_ crepe.Engine = Func(nil)
	_ crepe.Engine = (*Spectral)(nil)
)
