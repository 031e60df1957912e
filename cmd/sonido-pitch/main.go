// Command sonido-pitch extracts the pitch curve of an audio file and writes
// it as JSON or CSV.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/RyanBlaney/sonido-pitch/analysis"
	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/crepe"
	"github.com/RyanBlaney/sonido-pitch/inference"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/notes"
	"github.com/RyanBlaney/sonido-pitch/transcode"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

type options struct {
	input     string
	config    string
	format    string
	stepMs    float64
	threshold float64
	workers   int
	unit      string
	noSlice   bool
	notes     bool
	logLevel  string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("sonido-pitch", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.input, "input", "", "audio file to analyze (required)")
	fs.StringVar(&o.config, "config", "", "path to a YAML configuration file")
	fs.StringVar(&o.format, "format", "json", "output format: json or csv")
	fs.Float64Var(&o.stepMs, "step-ms", 0, "frame step in milliseconds (overrides config)")
	fs.Float64Var(&o.threshold, "threshold", -1, "voicing threshold (overrides config)")
	fs.IntVar(&o.workers, "workers", 0, "chunks analyzed concurrently (overrides config)")
	fs.StringVar(&o.unit, "unit", "", "output unit: hz or midi (overrides config)")
	fs.BoolVar(&o.noSlice, "no-slice", false, "analyze the recording as a single chunk")
	fs.BoolVar(&o.notes, "notes", false, "segment notes and report the deviation curve")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if o.input == "" {
		return nil, errors.New("-input is required")
	}
	if o.format != "json" && o.format != "csv" {
		return nil, fmt.Errorf("-format %q is invalid; valid values: json, csv", o.format)
	}
	return o, nil
}

// loadConfig reads the config file, if any, and applies the flag overrides
func loadConfig(o *options) (*config.Config, error) {
	cfg := config.Default()
	if o.config != "" {
		loaded, err := config.Load(o.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.stepMs > 0 {
		cfg.Pitch.StepMs = o.stepMs
	}
	if o.threshold >= 0 {
		cfg.Pitch.Threshold = o.threshold
	}
	if o.workers > 0 {
		cfg.Analysis.Workers = o.workers
	}
	if o.unit != "" {
		cfg.Analysis.Unit = config.Unit(o.unit)
	}
	if o.noSlice {
		cfg.Analysis.EnableSlicing = false
	}
	if o.notes {
		cfg.Notes.Enabled = true
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(args []string, stdout io.Writer) int {
	o, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "sonido-pitch: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonido-pitch: %v\n", err)
		return 1
	}

	// stdout carries the result
	logger := logging.NewDefaultLoggerWithWriters(os.Stderr, os.Stderr)
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := analyze(ctx, o.input, cfg)
	if err != nil {
		logging.Error(err, "Pitch extraction failed", logging.Fields{"input": o.input})
		return 1
	}

	switch o.format {
	case "csv":
		err = writeCSV(stdout, res)
	default:
		err = writeJSON(stdout, res)
	}
	if err != nil {
		logging.Error(err, "Failed to write output")
		return 1
	}
	return 0
}

// result is everything written for one input
type result struct {
	StepMs    float64                `json:"step_ms"`
	Unit      config.Unit            `json:"unit"`
	Frames    []frame                `json:"frames"`
	Notes     []notes.Event          `json:"notes,omitempty"`
	Deviation []notes.DeviationPoint `json:"deviation,omitempty"`
}

type frame struct {
	TimeMs     float64  `json:"time_ms"`
	Value      *float64 `json:"value"` // null when unvoiced
	Voiced     bool     `json:"voiced"`
	Confidence float64  `json:"confidence"`
}

func analyze(ctx context.Context, input string, cfg *config.Config) (*result, error) {
	decoder := transcode.NewDecoder(cfg.Decoder)

	pitch, err := decoder.DecodeFile(ctx, input, crepe.ModelSampleRate)
	if err != nil {
		return nil, err
	}

	in := analysis.Input{
		Pitch: analysis.Signal{Samples: pitch.PCM, SampleRate: pitch.SampleRate},
	}
	if cfg.Analysis.EnableSlicing {
		slicing, err := decoder.DecodeFile(ctx, input, cfg.Slicer.SampleRate)
		if err != nil {
			return nil, err
		}
		in.Slicing = analysis.Signal{Samples: slicing.PCM, SampleRate: slicing.SampleRate}
	}

	engine, err := inference.NewSpectral(cfg.Spectral)
	if err != nil {
		return nil, err
	}
	analyzer, err := analysis.NewAnalyzer(engine, analysis.Config{
		Pitch:         cfg.Pitch,
		Slicer:        cfg.Slicer,
		EnableSlicing: cfg.Analysis.EnableSlicing,
		Workers:       cfg.Analysis.Workers,
	}, nil)
	if err != nil {
		return nil, err
	}

	curve, err := analyzer.Analyze(ctx, in)
	if err != nil {
		return nil, err
	}

	return buildResult(curve, cfg), nil
}

func buildResult(curve *analysis.Curve, cfg *config.Config) *result {
	midi := curve.MIDI()
	values := curve.Hz
	if cfg.Analysis.Unit == config.UnitMIDI {
		values = midi
	}

	res := &result{
		StepMs: curve.StepMs,
		Unit:   cfg.Analysis.Unit,
		Frames: make([]frame, curve.Len()),
	}
	for i := range res.Frames {
		f := frame{
			TimeMs:     curve.TimeMs(i),
			Voiced:     curve.Voiced[i],
			Confidence: curve.Confidence[i],
		}
		if v := values[i]; curve.Voiced[i] && !math.IsNaN(v) && !math.IsInf(v, 0) {
			f.Value = &v
		}
		res.Frames[i] = f
	}

	if cfg.Notes.Enabled {
		res.Notes = notes.NewSegmenter(cfg.Notes.MinDurationMs).Segment(midi, curve.StepMs)
		res.Deviation = notes.Deviation(res.Notes, midi, curve.StepMs, cfg.Notes.Deviation)
	}
	return res
}

func writeJSON(w io.Writer, res *result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// writeCSV writes one row per frame; unvoiced frames have an empty value
func writeCSV(w io.Writer, res *result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_ms", string(res.Unit), "voiced", "confidence"}); err != nil {
		return err
	}
	for _, f := range res.Frames {
		value := ""
		if f.Value != nil {
			value = strconv.FormatFloat(*f.Value, 'f', 4, 64)
		}
		row := []string{
			strconv.FormatFloat(f.TimeMs, 'f', 1, 64),
			value,
			strconv.FormatBool(f.Voiced),
			strconv.FormatFloat(f.Confidence, 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
