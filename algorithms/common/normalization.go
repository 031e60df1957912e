package common

// ZScore returns a new slice with zero mean and unit population variance.
//
// Constant input has zero variance and produces NaN values. Callers that feed
// the result to a model are expected to absorb those downstream.
func ZScore(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	if len(signal) == 0 {
		return normalized
	}

	mean, std := PopMeanStdDev(signal)
	for i, val := range signal {
		normalized[i] = (val - mean) / std
	}

	return normalized
}

// ZScoreFloat32 is ZScore with the result narrowed to float32 model input
func ZScoreFloat32(signal []float64) []float32 {
	normalized := make([]float32, len(signal))
	if len(signal) == 0 {
		return normalized
	}

	mean, std := PopMeanStdDev(signal)
	for i, val := range signal {
		normalized[i] = float32((val - mean) / std)
	}

	return normalized
}
