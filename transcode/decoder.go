package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-pitch/logging"
)

// ErrFFmpegUnavailable is returned when the ffmpeg or ffprobe binary cannot be found
var ErrFFmpegUnavailable = errors.New("ffmpeg not available")

// AudioData represents decoded mono audio
type AudioData struct {
	PCM        []float64      `json:"-"`
	SampleRate int            `json:"sample_rate"`
	Duration   time.Duration  `json:"duration"`
	Metadata   *AudioMetadata `json:"metadata,omitempty"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	FFmpegPath      string        `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	FFprobePath     string        `yaml:"ffprobe_path" json:"ffprobe_path"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`                   // per ffmpeg/ffprobe run, 0 for none
	ResampleQuality string        `yaml:"resample_quality" json:"resample_quality"` // "fast", "medium", "high" or "" for ffmpeg's default
	MaxDuration     time.Duration `yaml:"max_duration" json:"max_duration"`         // 0 for no limit
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		FFmpegPath:      "ffmpeg",  // Assume in PATH
		FFprobePath:     "ffprobe", // Assume in PATH
		Timeout:         2 * time.Minute,
		ResampleQuality: "high",
	}
}

// Validate checks the configuration is usable
func (c DecoderConfig) Validate() error {
	switch {
	case c.FFmpegPath == "":
		return fmt.Errorf("decoder ffmpeg_path is required")
	case c.FFprobePath == "":
		return fmt.Errorf("decoder ffprobe_path is required")
	case c.Timeout < 0:
		return fmt.Errorf("decoder timeout must not be negative, got %v", c.Timeout)
	case c.MaxDuration < 0:
		return fmt.Errorf("decoder max_duration must not be negative, got %v", c.MaxDuration)
	}
	switch c.ResampleQuality {
	case "", "fast", "medium", "high":
	default:
		return fmt.Errorf("decoder resample_quality %q is invalid; valid values: fast, medium, high", c.ResampleQuality)
	}
	return nil
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// Decoder decodes audio files to mono float64 PCM using FFmpeg
type Decoder struct {
	config DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder
func NewDecoder(config DecoderConfig) *Decoder {
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		}),
	}
}

// Probe returns the properties of the first audio stream in filename
func (d *Decoder) Probe(ctx context.Context, filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0", // First audio stream only
		filename,
	}

	output, err := d.run(ctx, d.config.FFprobePath, args, nil)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseFFprobeOutput(output)
}

// DecodeFile decodes filename to mono PCM at sampleRate
func (d *Decoder) DecodeFile(ctx context.Context, filename string, sampleRate int) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function":    "DecodeFile",
		"filename":    filename,
		"sample_rate": sampleRate,
	})

	metadata, err := d.Probe(ctx, filename)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	args := append([]string{"-i", filename}, d.buildFFmpegArgs(metadata, sampleRate)...)
	return d.decode(ctx, args, nil, metadata, sampleRate, logger)
}

// DecodeBytes decodes an in-memory audio file to mono PCM at sampleRate
func (d *Decoder) DecodeBytes(ctx context.Context, data []byte, sampleRate int) (*AudioData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}

	logger := d.logger.WithFields(logging.Fields{
		"function":    "DecodeBytes",
		"data_size":   len(data),
		"sample_rate": sampleRate,
	})

	args := append([]string{"-i", "pipe:0"}, d.buildFFmpegArgs(nil, sampleRate)...)
	return d.decode(ctx, args, data, nil, sampleRate, logger)
}

func (d *Decoder) decode(ctx context.Context, args []string, stdin []byte, metadata *AudioMetadata,
	sampleRate int, logger logging.Logger) (*AudioData, error) {
	args = append(args, "pipe:1") // Output to stdout

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := d.run(ctx, d.config.FFmpegPath, args, stdin)
	if err != nil {
		logger.Error(err, "FFmpeg decode failed")
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	duration := time.Duration(float64(len(samples)) / float64(sampleRate) * float64(time.Second))
	logger.Debug("Decoded audio", logging.Fields{
		"samples":  len(samples),
		"duration": duration.String(),
	})

	return &AudioData{
		PCM:        samples,
		SampleRate: sampleRate,
		Duration:   duration,
		Metadata:   metadata,
	}, nil
}

// run executes a binary with the configured timeout and returns its stdout
func (d *Decoder) run(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error) {
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFFmpegUnavailable, binary, err)
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("%w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, err
	}
	return output, nil
}

// buildFFmpegArgs returns the output options for mono float64 PCM at sampleRate
func (d *Decoder) buildFFmpegArgs(metadata *AudioMetadata, sampleRate int) []string {
	args := []string{
		"-vn",         // No video
		"-f", "f64le", // Output raw float64 little-endian
		"-ac", "1",    // Downmix to mono
		"-ar", strconv.Itoa(sampleRate),
	}

	needsResample := metadata == nil || metadata.SampleRate != sampleRate
	if needsResample {
		switch d.config.ResampleQuality {
		case "fast":
			args = append(args, "-af", "aresample=resampler=soxr:precision=16")
		case "medium":
			args = append(args, "-af", "aresample=resampler=soxr:precision=20")
		case "high":
			args = append(args, "-af", "aresample=resampler=soxr:precision=28")
		}
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	// Suppress ffmpeg output
	args = append(args, "-v", "error")

	return args
}

func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("invalid sample rate %q: %w", stream.SampleRate, err)
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration = 0
	}

	bitrate, err := strconv.Atoi(stream.BitRate)
	if err != nil {
		bitrate = 0
	}

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// bytesToFloat64 converts little-endian f64 samples, dropping a trailing partial sample
func bytesToFloat64(data []byte) []float64 {
	sampleCount := len(data) / 8
	if sampleCount == 0 {
		return nil
	}

	samples := make([]float64, sampleCount)
	for i := range sampleCount {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}
