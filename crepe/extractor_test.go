package crepe

import (
	"context"
	"errors"
	"math"
	"testing"
)

// scriptedEngine returns a one-hot row at a preset bin for each frame, in
// call order. A bin of Unvoiced produces an all-zero row.
type scriptedEngine struct {
	bins  []int
	next  int
	calls int
}

func (e *scriptedEngine) Infer(_ context.Context, frames [][]float32) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(frames))
	for i := range frames {
		out[i] = make([]float32, NumBins)
		if b := e.bins[e.next]; b != Unvoiced {
			out[i][b] = 1
		}
		e.next++
	}
	return out, nil
}

type engineFunc func(ctx context.Context, frames [][]float32) ([][]float32, error)

func (f engineFunc) Infer(ctx context.Context, frames [][]float32) ([][]float32, error) {
	return f(ctx, frames)
}

func sine(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / ModelSampleRate)
	}
	return out
}

func newTestExtractor(t *testing.T, engine Engine, batchSize int) *Extractor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BatchSize = batchSize
	extractor, err := NewExtractor(engine, cfg)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return extractor
}

func TestComputeF0FollowsSineSweep(t *testing.T) {
	// one second, 220 Hz to 440 Hz exponentially
	const n = ModelSampleRate
	signal := make([]float64, n)
	for i := range signal {
		sec := float64(i) / ModelSampleRate
		phase := 2 * math.Pi * 220 * (math.Exp2(sec) - 1) / math.Ln2
		signal[i] = 0.8 * math.Sin(phase)
	}

	hop := HopSize(5)
	numFrames := n / hop
	trueCents := make([]float64, numFrames)
	bins := make([]int, numFrames)
	for i := range bins {
		sec := float64(i*hop) / ModelSampleRate
		trueCents[i] = FrequencyToCents(220 * math.Exp2(sec))
		bins[i] = CentsToBin(trueCents[i], Round)
	}

	engine := &scriptedEngine{bins: bins}
	track, err := newTestExtractor(t, engine, 64).ComputeF0(context.Background(), signal)
	if err != nil {
		t.Fatalf("ComputeF0: %v", err)
	}

	if track.Len() != numFrames {
		t.Fatalf("frames = %d, want %d", track.Len(), numFrames)
	}
	if engine.calls != 4 {
		t.Errorf("engine called %d times, want 4", engine.calls)
	}
	for i := range bins {
		if !track.Voiced[i] {
			t.Fatalf("frame %d unvoiced", i)
		}
		if got := FrequencyToCents(track.Frequency[i]); math.Abs(got-trueCents[i]) > CentsPerBin {
			t.Errorf("frame %d = %.1f cents, want %.1f", i, got, trueCents[i])
		}
		if track.Confidence[i] != 1 {
			t.Errorf("frame %d confidence = %v, want 1", i, track.Confidence[i])
		}
	}
}

func TestComputeF0FillsUnvoicedGap(t *testing.T) {
	bins := make([]int, 25)
	for i := range bins {
		switch {
		case i < 10:
			bins[i] = 100
		case i < 15:
			bins[i] = Unvoiced
		default:
			bins[i] = 104
		}
	}

	track, err := newTestExtractor(t, &scriptedEngine{bins: bins}, 0).
		ComputeF0(context.Background(), sine(440, 25*HopSize(5)))
	if err != nil {
		t.Fatalf("ComputeF0: %v", err)
	}

	low := CentsToFrequency(BinToCents(100))
	high := CentsToFrequency(BinToCents(104))
	for i := 10; i < 15; i++ {
		if track.Voiced[i] {
			t.Errorf("frame %d should be unvoiced", i)
		}
		want := low + (high-low)*float64(i-9)/6
		if math.Abs(track.Frequency[i]-want) > 1e-9 {
			t.Errorf("frame %d = %v Hz, want %v", i, track.Frequency[i], want)
		}
	}
	if math.Abs(track.Frequency[0]-low) > 1e-9 || math.Abs(track.Frequency[24]-high) > 1e-9 {
		t.Errorf("voiced edges = %v, %v", track.Frequency[0], track.Frequency[24])
	}
}

func TestComputeF0AllUnvoiced(t *testing.T) {
	bins := make([]int, 10)
	for i := range bins {
		bins[i] = Unvoiced
	}

	track, err := newTestExtractor(t, &scriptedEngine{bins: bins}, 0).
		ComputeF0(context.Background(), sine(440, 10*HopSize(5)))
	if err != nil {
		t.Fatalf("ComputeF0: %v", err)
	}

	for i := range bins {
		if track.Voiced[i] || track.Frequency[i] != 0 {
			t.Errorf("frame %d = %v Hz voiced=%v, want 0 Hz unvoiced", i, track.Frequency[i], track.Voiced[i])
		}
	}
	for i, m := range track.MIDI() {
		if !math.IsInf(m, -1) {
			t.Errorf("midi[%d] = %v, want -Inf", i, m)
		}
	}
}

func TestComputeF0ShortSignalIsEmpty(t *testing.T) {
	engine := &scriptedEngine{}
	track, err := newTestExtractor(t, engine, 0).ComputeF0(context.Background(), make([]float64, HopSize(5)-1))
	if err != nil {
		t.Fatalf("ComputeF0: %v", err)
	}
	if track.Len() != 0 {
		t.Errorf("frames = %d, want 0", track.Len())
	}
	if engine.calls != 0 {
		t.Errorf("engine called %d times for an empty signal", engine.calls)
	}
}

func TestComputeF0EngineErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		engine Engine
		want   error
	}{
		{
			name: "engine failure",
			engine: engineFunc(func(context.Context, [][]float32) ([][]float32, error) {
				return nil, boom
			}),
			want: boom,
		},
		{
			name: "row count",
			engine: engineFunc(func(_ context.Context, frames [][]float32) ([][]float32, error) {
				return make([][]float32, len(frames)-1), nil
			}),
			want: ErrEngineOutput,
		},
		{
			name: "bin count",
			engine: engineFunc(func(_ context.Context, frames [][]float32) ([][]float32, error) {
				out := make([][]float32, len(frames))
				for i := range out {
					out[i] = make([]float32, NumBins-1)
				}
				return out, nil
			}),
			want: ErrEngineOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestExtractor(t, tt.engine, 0).ComputeF0(context.Background(), sine(440, 4000))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestComputeF0Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &scriptedEngine{bins: make([]int, 100)}
	_, err := newTestExtractor(t, engine, 0).ComputeF0(ctx, sine(440, 4000))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if engine.calls != 0 {
		t.Errorf("engine called %d times after cancellation", engine.calls)
	}
}

func TestNewExtractorRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StepMs = 0.01
	if _, err := NewExtractor(&scriptedEngine{}, cfg); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
	if _, err := NewExtractor(nil, DefaultConfig()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil engine err = %v, want ErrInvalidArgument", err)
	}
}

func TestCentroidClampsAtRangeEdge(t *testing.T) {
	e := newTestExtractor(t, &scriptedEngine{}, 0)

	row := make([]float32, NumBins)
	row[0] = 0.5
	row[1] = 0.5
	got := e.centroid(row, 0)
	want := (BinToCents(0) + BinToCents(1)) / 2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("centroid = %v, want %v", got, want)
	}
}

func TestComputeF0CentroidOnSigmoidRows(t *testing.T) {
	const bin = 150
	// neighbours weighted 0.3 above and 0.1 below pull the estimate up
	// by 20 * (0.3 - 0.1) / 1.3 cents
	engine := engineFunc(func(_ context.Context, frames [][]float32) ([][]float32, error) {
		out := make([][]float32, len(frames))
		for i := range out {
			out[i] = make([]float32, NumBins)
			out[i][bin-1] = 0.1
			out[i][bin] = 0.9
			out[i][bin+1] = 0.3
		}
		return out, nil
	})

	track, err := newTestExtractor(t, engine, 0).ComputeF0(context.Background(), sine(440, 20*HopSize(5)))
	if err != nil {
		t.Fatalf("ComputeF0: %v", err)
	}

	w := []float64{float64(float32(0.1)), float64(float32(0.9)), float64(float32(0.3))}
	cents := (w[0]*BinToCents(bin-1) + w[1]*BinToCents(bin) + w[2]*BinToCents(bin+1)) / (w[0] + w[1] + w[2])
	want := CentsToFrequency(cents)

	if track.Len() != 20 {
		t.Fatalf("frames = %d, want 20", track.Len())
	}
	for i := range track.Len() {
		if !track.Voiced[i] {
			t.Fatalf("frame %d unvoiced", i)
		}
		if math.Abs(track.Frequency[i]-want) > 1e-9 {
			t.Errorf("frame %d = %v Hz, want %v", i, track.Frequency[i], want)
		}
		if math.Abs(track.Confidence[i]-0.9) > 1e-6 {
			t.Errorf("frame %d confidence = %v, want 0.9", i, track.Confidence[i])
		}
	}
	if got := FrequencyToCents(want) - BinToCents(bin); math.Abs(got-40.0/13) > 1e-3 {
		t.Errorf("centroid offset = %v cents, want %v", got, 40.0/13)
	}
}

func TestComputeF0GatesLowConfidence(t *testing.T) {
	// below the default 0.21 threshold everywhere
	engine := engineFunc(func(_ context.Context, frames [][]float32) ([][]float32, error) {
		out := make([][]float32, len(frames))
		for i := range out {
			out[i] = make([]float32, NumBins)
			out[i][200] = 0.2
		}
		return out, nil
	})

	track, err := newTestExtractor(t, engine, 0).ComputeF0(context.Background(), sine(440, 10*HopSize(5)))
	if err != nil {
		t.Fatalf("ComputeF0: %v", err)
	}
	for i := range track.Len() {
		if track.Voiced[i] || track.Frequency[i] != 0 {
			t.Errorf("frame %d = %v Hz voiced=%v, want gated", i, track.Frequency[i], track.Voiced[i])
		}
		if math.Abs(track.Confidence[i]-0.2) > 1e-6 {
			t.Errorf("frame %d confidence = %v, want 0.2", i, track.Confidence[i])
		}
	}
}

func TestDecodeRejectsWrongRowWidth(t *testing.T) {
	e := newTestExtractor(t, &scriptedEngine{}, 0)
	if _, err := e.Decode([][]float32{make([]float32, NumBins-1)}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}
