package common

// ZeroPad returns a copy of signal with head zeros before it and tail zeros after it
func ZeroPad(signal []float64, head, tail int) []float64 {
	head = max(head, 0)
	tail = max(tail, 0)

	padded := make([]float64, head+len(signal)+tail)
	copy(padded[head:], signal)
	return padded
}

// Window returns the length-size view of padded that starts at hop*index.
// The view aliases padded; callers that keep it must copy.
func Window(padded []float64, index, hop, size int) []float64 {
	start := index * hop
	end := start + size
	if start < 0 || end > len(padded) {
		return nil
	}
	return padded[start:end]
}
