package crepe

import "math"

// QuantizeMode selects how a fractional bin is turned into an index
type QuantizeMode int

const (
	Floor QuantizeMode = iota
	Round // half to even
	Ceil
)

// CentsToBin converts cents to a bin index
func CentsToBin(cents float64, mode QuantizeMode) int {
	rawBin := (cents - CentsOffset) / CentsPerBin

	switch mode {
	case Round:
		return int(math.RoundToEven(rawBin))
	case Ceil:
		return int(math.Ceil(rawBin))
	default:
		return int(math.Floor(rawBin))
	}
}

// CentsToBins converts each cents value to a bin index
func CentsToBins(cents []float64, mode QuantizeMode) []int {
	bins := make([]int, len(cents))
	for i, c := range cents {
		bins[i] = CentsToBin(c, mode)
	}
	return bins
}

// BinToCents returns the cents value at the lower edge of bin
func BinToCents(bin int) float64 {
	return CentsPerBin*float64(bin) + CentsOffset
}

// BinsToCents converts bins to cents, adding triangular dither when d is not nil
func BinsToCents(bins []int, d *Dither) []float64 {
	cents := make([]float64, len(bins))
	for i, b := range bins {
		cents[i] = d.Apply(BinToCents(b))
	}
	return cents
}

// BinsToFrequency converts bins to Hz, adding dither in the cents domain when d is not nil
func BinsToFrequency(bins []int, d *Dither) []float64 {
	return CentsToFrequencies(BinsToCents(bins, d))
}

// CentsToFrequency converts cents above ReferenceHz to Hz
func CentsToFrequency(cents float64) float64 {
	return ReferenceHz * math.Pow(2.0, cents/1200.0)
}

// CentsToFrequencies converts each cents value to Hz
func CentsToFrequencies(cents []float64) []float64 {
	freqs := make([]float64, len(cents))
	for i, c := range cents {
		freqs[i] = CentsToFrequency(c)
	}
	return freqs
}

// FrequencyToCents converts Hz to cents above ReferenceHz
func FrequencyToCents(freq float64) float64 {
	return 1200 * math.Log2(freq/ReferenceHz)
}

// FrequenciesToCents converts each frequency to cents
func FrequenciesToCents(freqs []float64) []float64 {
	cents := make([]float64, len(freqs))
	for i, f := range freqs {
		cents[i] = FrequencyToCents(f)
	}
	return cents
}

// FrequencyToBins converts each frequency to a bin index
func FrequencyToBins(freqs []float64, mode QuantizeMode) []int {
	return CentsToBins(FrequenciesToCents(freqs), mode)
}

// FrequencyToMidiNote converts Hz to a fractional MIDI note number (A4 = 69).
// Non-positive frequencies give a non-finite result; check before use.
func FrequencyToMidiNote(freq float64) float64 {
	return 69 + 12*math.Log2(freq/440.0)
}

// MidiNoteToFrequency converts a fractional MIDI note number to Hz
func MidiNoteToFrequency(note float64) float64 {
	return 440.0 * math.Pow(2.0, (note-69)/12.0)
}
