package notes

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-pitch/algorithms/temporal"
)

// Transcribe runs the predictor over each chunk in order
func Transcribe(ctx context.Context, predictor Predictor, chunks []temporal.Chunk) ([]Sequence, error) {
	sequences := make([]Sequence, 0, len(chunks))
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		predicted, err := predictor.Predict(ctx, chunk.Samples)
		if err != nil {
			return nil, fmt.Errorf("note prediction failed for chunk at %.0f ms: %w", chunk.OffsetMs, err)
		}
		sequences = append(sequences, Sequence{
			OffsetMs: chunk.OffsetMs,
			Notes:    predicted,
		})
	}
	return sequences, nil
}
