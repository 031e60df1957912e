package crepe

import "math"

// Softmax converts raw scores to a probability vector.
//
// NaN scores count as zero. If any score is +Inf the result is one-hot on the
// first such position. When nothing survives exponentiation (every score is
// -Inf, for example) the result is uniform.
func Softmax(logits []float32) []float32 {
	n := len(logits)
	out := make([]float32, n)
	if n == 0 {
		return out
	}

	safe := make([]float64, n)
	maxVal := math.Inf(-1)
	for i, v := range logits {
		x := float64(v)
		if math.IsNaN(x) {
			x = 0
		}
		safe[i] = x
		if x > maxVal {
			maxVal = x
		}
	}

	if math.IsInf(maxVal, 1) {
		for i, x := range safe {
			if math.IsInf(x, 1) {
				out[i] = 1
				break
			}
		}
		return out
	}

	exps := make([]float64, n)
	var sum float64
	for i, x := range safe {
		d := x - maxVal
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		exps[i] = math.Exp(d)
		sum += exps[i]
	}

	if !(sum > 0) {
		uniform := float32(1.0 / float64(n))
		for i := range out {
			out[i] = uniform
		}
		return out
	}

	for i, e := range exps {
		out[i] = float32(e / sum)
	}
	return out
}
