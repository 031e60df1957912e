// Package analysis runs pitch extraction over a whole recording: it slices
// the recording on silences, extracts each chunk concurrently and assembles
// the chunk tracks into one curve.
package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/temporal"
	"github.com/RyanBlaney/sonido-pitch/crepe"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/observe"
)

// Signal is mono audio at a sample rate
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the length of the signal in milliseconds
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) * 1000 / float64(s.SampleRate)
}

// Input is one recording. Slicing is the signal silence detection runs on,
// usually at the slicer's sample rate. Pitch is the same recording at
// crepe.ModelSampleRate; when empty it is resampled from Slicing.
type Input struct {
	Slicing Signal
	Pitch   Signal
}

// Config holds the analyzer parameters
type Config struct {
	Pitch         crepe.Config
	Slicer        temporal.SlicerConfig
	EnableSlicing bool
	Workers       int
}

// Analyzer extracts the pitch curve of a recording
type Analyzer struct {
	config    Config
	extractor *crepe.Extractor
	slicer    *temporal.Slicer
	interp    *common.Interpolator
	metrics   *observe.Metrics
	logger    logging.Logger
}

// span is a sliced chunk mapped onto the pitch signal
type span struct {
	offsetMs float64
	start    int
	end      int
}

// NewAnalyzer creates an analyzer scoring frames with engine. A nil metrics
// uses observe.DefaultMetrics.
func NewAnalyzer(engine crepe.Engine, config Config, metrics *observe.Metrics) (*Analyzer, error) {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	if config.Workers < 1 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", crepe.ErrInvalidArgument, config.Workers)
	}

	extractor, err := crepe.NewExtractor(observe.InstrumentEngine(engine, metrics), config.Pitch)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		config:    config,
		extractor: extractor,
		interp:    common.NewInterpolator(),
		metrics:   metrics,
		logger: logging.WithFields(logging.Fields{
			"component": "pitch_analyzer",
		}),
	}
	if config.EnableSlicing {
		if err := config.Slicer.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", crepe.ErrInvalidArgument, err)
		}
		a.slicer = temporal.NewSlicer(config.Slicer)
	}
	return a, nil
}

// Analyze returns the pitch curve of in. Chunks are extracted concurrently;
// the first failure or a cancelled ctx abandons the remaining chunks. A
// non-empty signal without a positive sample rate is rejected with
// crepe.ErrInvalidArgument.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Curve, error) {
	pitch, err := a.pitchSignal(in)
	if err != nil {
		return nil, err
	}
	stepMs := a.config.Pitch.StepMs
	hop := crepe.HopSize(stepMs)
	curve := newCurve(stepMs, len(pitch)/hop)

	spans := a.spans(in.Slicing, len(pitch))
	if len(spans) == 0 || curve.Len() == 0 {
		a.logger.Debug("Nothing to analyze", logging.Fields{
			"samples": len(pitch),
			"chunks":  len(spans),
		})
		return curve, nil
	}

	tracks := make([]*crepe.Track, len(spans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)

	for i, sp := range spans {
		g.Go(func() error {
			started := time.Now()
			track, err := a.extractor.ComputeF0(gctx, pitch[sp.start:sp.end])
			if err != nil {
				return fmt.Errorf("chunk at %.0f ms: %w", sp.offsetMs, err)
			}

			unvoiced := 0
			for _, v := range track.Voiced {
				if !v {
					unvoiced++
				}
			}
			a.metrics.RecordChunk(gctx, time.Since(started), track.Len()-unvoiced, unvoiced)

			tracks[i] = track
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.metrics.RecordError(ctx, "analysis")
		a.logger.Error(err, "Pitch analysis failed", logging.Fields{
			"chunks": len(spans),
		})
		return nil, err
	}

	for i, sp := range spans {
		curve.place(int(math.Round(sp.offsetMs/stepMs)), tracks[i])
	}

	a.logger.Info("Analyzed recording", logging.Fields{
		"chunks":          len(spans),
		"frames":          curve.Len(),
		"unvoiced_frames": curve.UnvoicedFrames(),
	})

	return curve, nil
}

// pitchSignal returns the recording at the model sample rate
func (a *Analyzer) pitchSignal(in Input) ([]float64, error) {
	if err := checkRate("pitch", in.Pitch); err != nil {
		return nil, err
	}
	if err := checkRate("slicing", in.Slicing); err != nil {
		return nil, err
	}

	if len(in.Pitch.Samples) > 0 {
		if in.Pitch.SampleRate == crepe.ModelSampleRate {
			return in.Pitch.Samples, nil
		}
		return a.interp.ResampleSignal(in.Pitch.Samples, in.Pitch.SampleRate, crepe.ModelSampleRate), nil
	}
	return a.interp.ResampleSignal(in.Slicing.Samples, in.Slicing.SampleRate, crepe.ModelSampleRate), nil
}

func checkRate(name string, sig Signal) error {
	if len(sig.Samples) > 0 && sig.SampleRate <= 0 {
		return fmt.Errorf("%w: %s signal sample rate must be positive, got %d",
			crepe.ErrInvalidArgument, name, sig.SampleRate)
	}
	return nil
}

// spans maps the sliced chunks onto the pitch signal
func (a *Analyzer) spans(slicing Signal, pitchLen int) []span {
	if pitchLen == 0 {
		return nil
	}
	if a.slicer == nil || len(slicing.Samples) == 0 || slicing.SampleRate <= 0 {
		return []span{{offsetMs: 0, start: 0, end: pitchLen}}
	}

	if slicing.SampleRate != a.config.Slicer.SampleRate {
		a.logger.Warn("Slicing signal rate differs from slicer config", logging.Fields{
			"signal_rate": slicing.SampleRate,
			"slicer_rate": a.config.Slicer.SampleRate,
		})
	}

	chunks := a.slicer.Slice(slicing.Samples)
	perMs := float64(crepe.ModelSampleRate) / 1000

	spans := make([]span, 0, len(chunks))
	for _, chunk := range chunks {
		startMs := float64(chunk.Start) * 1000 / float64(slicing.SampleRate)
		endMs := float64(chunk.End()) * 1000 / float64(slicing.SampleRate)
		start := min(int(math.Round(startMs*perMs)), pitchLen)
		end := min(int(math.Round(endMs*perMs)), pitchLen)
		if end > start {
			spans = append(spans, span{offsetMs: startMs, start: start, end: end})
		}
	}
	return spans
}
