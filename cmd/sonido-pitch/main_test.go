package main

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/RyanBlaney/sonido-pitch/analysis"
	"github.com/RyanBlaney/sonido-pitch/config"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"minimal", []string{"-input", "a.wav"}, false},
		{"csv", []string{"-input", "a.wav", "-format", "csv"}, false},
		{"missing input", []string{"-format", "csv"}, true},
		{"bad format", []string{"-input", "a.wav", "-format", "xml"}, true},
		{"unknown flag", []string{"-input", "a.wav", "-bogus"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseFlags(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	o, err := parseFlags([]string{
		"-input", "a.wav",
		"-step-ms", "10",
		"-threshold", "0.5",
		"-workers", "8",
		"-unit", "midi",
		"-no-slice",
		"-notes",
		"-log-level", "debug",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	cfg, err := loadConfig(o)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Pitch.StepMs != 10 || cfg.Pitch.Threshold != 0.5 || cfg.Analysis.Workers != 8 {
		t.Errorf("pitch/analysis overrides not applied: %+v %+v", cfg.Pitch, cfg.Analysis)
	}
	if cfg.Analysis.Unit != config.UnitMIDI || cfg.Analysis.EnableSlicing || !cfg.Notes.Enabled {
		t.Errorf("analysis overrides not applied: %+v", cfg.Analysis)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}

	o.unit = "cents"
	if _, err := loadConfig(o); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func testCurve() *analysis.Curve {
	// A4 for 6 frames then silence
	c := &analysis.Curve{StepMs: 10}
	for i := range 8 {
		voiced := i < 6
		hz := 0.0
		if voiced {
			hz = 440
		}
		c.Hz = append(c.Hz, hz)
		c.Voiced = append(c.Voiced, voiced)
		c.Confidence = append(c.Confidence, 0.9)
	}
	return c
}

func TestBuildResult(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Unit = config.UnitMIDI
	cfg.Notes.Enabled = true
	cfg.Notes.MinDurationMs = 20

	res := buildResult(testCurve(), cfg)

	if len(res.Frames) != 8 {
		t.Fatalf("frames = %d, want 8", len(res.Frames))
	}
	if v := res.Frames[0].Value; v == nil || math.Abs(*v-69) > 1e-9 {
		t.Errorf("frame 0 value = %v, want 69", v)
	}
	if res.Frames[7].Value != nil {
		t.Errorf("unvoiced frame value = %v, want nil", *res.Frames[7].Value)
	}
	if res.Frames[3].TimeMs != 30 {
		t.Errorf("frame 3 time = %v, want 30", res.Frames[3].TimeMs)
	}

	if len(res.Notes) != 1 || res.Notes[0].Tone != 69 || res.Notes[0].EndMs != 60 {
		t.Errorf("notes = %+v", res.Notes)
	}
	if len(res.Deviation) != 8 || !res.Deviation[0].Valid || res.Deviation[7].Valid {
		t.Errorf("deviation = %+v", res.Deviation)
	}
}

func TestWriteOutputs(t *testing.T) {
	res := buildResult(testCurve(), config.Default())

	var buf bytes.Buffer
	if err := writeCSV(&buf, res); err != nil {
		t.Fatalf("writeCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 9 {
		t.Fatalf("csv has %d lines, want 9", len(lines))
	}
	if lines[0] != "time_ms,hz,voiced,confidence" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "0.0,440.0000,true,0.9000" {
		t.Errorf("first row = %q", lines[1])
	}
	if lines[8] != "70.0,,false,0.9000" {
		t.Errorf("last row = %q", lines[8])
	}

	buf.Reset()
	if err := writeJSON(&buf, res); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	var decoded struct {
		Unit   string `json:"unit"`
		Frames []struct {
			Value *float64 `json:"value"`
		} `json:"frames"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Unit != "hz" || len(decoded.Frames) != 8 || decoded.Frames[7].Value != nil {
		t.Errorf("decoded = %+v", decoded)
	}
}
