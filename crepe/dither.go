package crepe

import (
	"math/rand/v2"
	"sync"
)

// Dither adds triangular noise one bin wide when discrete bins are turned
// back into continuous cents. A nil *Dither adds nothing.
type Dither struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDither returns a reproducible dither source
func NewDither(seed uint64) *Dither {
	return NewDitherFromSource(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewDitherFromSource wraps an existing random source
func NewDitherFromSource(src rand.Source) *Dither {
	return &Dither{rng: rand.New(src)}
}

// Noise returns (u - v) * CentsPerBin for independent uniform u, v in [0, 1)
func (d *Dither) Noise() float64 {
	if d == nil {
		return 0
	}

	d.mu.Lock()
	u := d.rng.Float64()
	v := d.rng.Float64()
	d.mu.Unlock()

	return (u - v) * CentsPerBin
}

// Apply returns cents plus one draw of Noise
func (d *Dither) Apply(cents float64) float64 {
	return cents + d.Noise()
}
