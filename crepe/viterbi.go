package crepe

import "math"

// Decoder finds the most likely bin sequence through a matrix of per-frame
// activations. Transitions are limited to a band of bins around the current
// state and weighted by a triangular kernel, so the decoder prefers small
// pitch movements and cannot jump further than the band in one frame.
type Decoder struct {
	numStates int
	width     int

	// logTrans[i][k] is the log transition probability from state i to
	// state i+k-width
	logTrans [][]float64
	logInit  float64
}

// NewDecoder creates a decoder over numStates states with transitions allowed
// while |i-j| <= width. Raw weights are width-|i-j|, so a jump of exactly
// width bins has zero probability.
func NewDecoder(numStates, width int) *Decoder {
	numStates = max(numStates, 1)
	width = max(width, 1)

	logTrans := make([][]float64, numStates)
	for i := range logTrans {
		row := make([]float64, 2*width+1)

		var sum float64
		for k := range row {
			j := i + k - width
			if j < 0 || j >= numStates {
				continue
			}
			row[k] = float64(width - abs(k-width))
			sum += row[k]
		}

		for k := range row {
			if sum > 0 && row[k] > 0 {
				row[k] = math.Log(row[k] / sum)
			} else {
				row[k] = math.Inf(-1)
			}
		}
		logTrans[i] = row
	}

	return &Decoder{
		numStates: numStates,
		width:     width,
		logTrans:  logTrans,
		logInit:   math.Log(1.0 / float64(numStates)),
	}
}

// NumStates returns the size of the state space
func (d *Decoder) NumStates() int {
	return d.numStates
}

// TransitionLogProb returns log P(to | from), -Inf outside the band
func (d *Decoder) TransitionLogProb(from, to int) float64 {
	if from < 0 || from >= d.numStates {
		return math.Inf(-1)
	}
	k := to - from + d.width
	if k < 0 || k >= len(d.logTrans[from]) {
		return math.Inf(-1)
	}
	return d.logTrans[from][k]
}

// Decode returns one state per activation row. Rows are read as
// probabilities; missing or non-positive entries are impossible emissions.
// When every path has zero probability each frame is marked Unvoiced.
func (d *Decoder) Decode(activations [][]float32) []int {
	numFrames := len(activations)
	path := make([]int, numFrames)
	if numFrames == 0 {
		return path
	}

	n := d.numStates
	prev := make([]float64, n)
	curr := make([]float64, n)
	back := make([]int32, numFrames*n)

	for j := range prev {
		prev[j] = d.logInit + emission(activations[0], j)
	}

	negInf := math.Inf(-1)
	for t := 1; t < numFrames; t++ {
		row := activations[t]
		for j := 0; j < n; j++ {
			best := negInf
			arg := -1
			for i := max(0, j-d.width); i <= min(n-1, j+d.width); i++ {
				score := prev[i] + d.logTrans[i][j-i+d.width]
				if score > best {
					best = score
					arg = i
				}
			}

			if arg < 0 {
				curr[j] = negInf
				back[t*n+j] = int32(j)
				continue
			}
			curr[j] = best + emission(row, j)
			back[t*n+j] = int32(arg)
		}
		prev, curr = curr, prev
	}

	last := 0
	for j := 1; j < n; j++ {
		if prev[j] > prev[last] {
			last = j
		}
	}
	if math.IsInf(prev[last], -1) || math.IsNaN(prev[last]) {
		for t := range path {
			path[t] = Unvoiced
		}
		return path
	}

	path[numFrames-1] = last
	for t := numFrames - 1; t > 0; t-- {
		path[t-1] = int(back[t*n+path[t]])
	}
	return path
}

// emission returns log(p) for state j, -Inf for p at or below float32 epsilon
func emission(row []float32, j int) float64 {
	if j >= len(row) {
		return math.Inf(-1)
	}
	p := row[j]
	if !(p > math.SmallestNonzeroFloat32) {
		return math.Inf(-1)
	}
	return math.Log(float64(p))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
