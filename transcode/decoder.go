package transcode

import (
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

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

// DecoderConfig holds ffmpeg decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate" mapstructure:"target_sample_rate" yaml:"target_sample_rate"` // 0 keeps the native rate
	TargetChannels   int           `json:"target_channels" mapstructure:"target_channels" yaml:"target_channels"`       // 0 keeps every channel
	MaxDuration      time.Duration `json:"max_duration" mapstructure:"max_duration" yaml:"max_duration"`
	ResampleQuality  string        `json:"resample_quality" mapstructure:"resample_quality" yaml:"resample_quality"` // "fast", "medium", "high"
	FFmpegPath       string        `json:"ffmpeg_path" mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path" mapstructure:"ffprobe_path" yaml:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout" mapstructure:"timeout" yaml:"timeout"`
	// Normalization options
	EnableNormalization bool    `json:"enable_normalization" mapstructure:"enable_normalization" yaml:"enable_normalization"`
	NormalizationMethod string  `json:"normalization_method" mapstructure:"normalization_method" yaml:"normalization_method"` // "loudnorm", "dynaudnorm", "compand"
	TargetLUFS          float64 `json:"target_lufs" mapstructure:"target_lufs" yaml:"target_lufs"`
	TargetPeak          float64 `json:"target_peak" mapstructure:"target_peak" yaml:"target_peak"`
	LoudnessRange       float64 `json:"loudness_range" mapstructure:"loudness_range" yaml:"loudness_range"`
}

// DefaultDecoderConfig decodes at the native rate and channel layout
// without any processing.
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate:    0,
		TargetChannels:      0,
		MaxDuration:         0, // No limit
		ResampleQuality:     "high",
		FFmpegPath:          "ffmpeg",  // Assume in PATH
		FFprobePath:         "ffprobe", // Assume in PATH
		Timeout:             60 * time.Second,
		EnableNormalization: false,
		NormalizationMethod: "loudnorm",
		TargetLUFS:          -23.0, // EBU R128
		TargetPeak:          -2.0,
		LoudnessRange:       7.0,
	}
}

// Validate checks the configuration without touching the filesystem
func (c *DecoderConfig) Validate() error {
	if c.TargetSampleRate < 0 {
		return common.NewInvalidParameter("target_sample_rate", c.TargetSampleRate, "must not be negative")
	}
	if c.TargetChannels < 0 || c.TargetChannels > maxChannels {
		return common.NewInvalidParameter("target_channels", c.TargetChannels, fmt.Sprintf("must be between 0 and %d", maxChannels))
	}
	if c.Timeout <= 0 {
		return common.NewInvalidParameter("timeout", c.Timeout, "must be positive")
	}
	switch c.ResampleQuality {
	case "", "fast", "medium", "high":
	default:
		return common.NewInvalidParameter("resample_quality", c.ResampleQuality, "must be fast, medium or high")
	}
	if c.EnableNormalization {
		switch c.NormalizationMethod {
		case "loudnorm", "dynaudnorm", "compand":
		default:
			return common.NewInvalidParameter("normalization_method", c.NormalizationMethod, "unsupported normalization method")
		}
	}
	return nil
}

const maxChannels = 8

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// FFmpegSource decodes any container ffmpeg understands into a
// multi-channel SampleBuffer
type FFmpegSource struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewFFmpegSource creates a new ffmpeg-backed audio source
func NewFFmpegSource(config *DecoderConfig) *FFmpegSource {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &FFmpegSource{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		}),
	}
}

// Config returns the decoder configuration
func (d *FFmpegSource) Config() *DecoderConfig {
	return d.config
}

// Load implements analysis.AudioSource
func (d *FFmpegSource) Load(ctx context.Context, path string) (*analysis.SampleBuffer, error) {
	logger := d.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Load",
		"filename": path,
	})

	if err := checkFile(path); err != nil {
		logger.Error(err, "Cannot open audio file")
		return nil, err
	}

	logger.Debug("Starting audio file decode")

	metadata, err := d.Probe(ctx, path)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, common.NewDecodeError(path, err)
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
		"input_bitrate":     metadata.Bitrate,
	})

	sampleRate, channels := d.outputLayout(metadata)
	args := append([]string{"-i", path}, d.buildFFmpegArgs(metadata)...)
	args = append(args, "pipe:1")

	output, err := d.run(ctx, d.config.FFmpegPath, args, logger)
	if err != nil {
		return nil, common.NewDecodeError(path, fmt.Errorf("ffmpeg decode failed: %w", err))
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, common.NewDecodeError(path, errors.New("no audio samples decoded"))
	}

	buffer, err := analysis.NewSampleBuffer(sampleRate, Deinterleave(samples, channels))
	if err != nil {
		return nil, common.NewDecodeError(path, err)
	}

	logger.Debug("FFmpeg decode completed successfully", logging.Fields{
		"output_sample_rate": sampleRate,
		"output_channels":    channels,
		"output_samples":     buffer.Len(),
		"output_duration":    buffer.Duration(),
	})

	return buffer, nil
}

// Probe uses ffprobe to read the first audio stream's properties
func (d *FFmpegSource) Probe(ctx context.Context, path string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0", // First audio stream only
		path,
	}

	output, err := d.run(ctx, d.config.FFprobePath, args, d.logger)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

func (d *FFmpegSource) run(ctx context.Context, binary string, args []string, logger logging.Logger) ([]byte, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)

	logger.Debug("Running command", logging.Fields{
		"command": binary,
		"args":    strings.Join(args, " "),
	})

	startTime := time.Now()
	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			logger.Error(err, "Command failed", logging.Fields{
				"command": binary,
				"stderr":  string(exitError.Stderr),
			})
			return nil, fmt.Errorf("%w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, err
	}

	logger.Debug("Command completed", logging.Fields{
		"command":      binary,
		"output_bytes": len(output),
		"elapsed":      time.Since(startTime).Seconds(),
	})

	return output, nil
}

// outputLayout resolves the configured targets against the probed input
func (d *FFmpegSource) outputLayout(metadata *AudioMetadata) (sampleRate, channels int) {
	sampleRate = metadata.SampleRate
	if d.config.TargetSampleRate > 0 {
		sampleRate = d.config.TargetSampleRate
	}
	channels = metadata.Channels
	if d.config.TargetChannels > 0 {
		channels = d.config.TargetChannels
	}
	return sampleRate, channels
}

// buildFFmpegArgs builds the ffmpeg output arguments for the probed input
func (d *FFmpegSource) buildFFmpegArgs(metadata *AudioMetadata) []string {
	sampleRate, channels := d.outputLayout(metadata)

	args := []string{
		"-map", "0:a:0",
		"-vn",
		"-f", "f64le", // Output raw float64 little-endian
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
	}

	var filters []string
	if sampleRate != metadata.SampleRate {
		switch d.config.ResampleQuality {
		case "fast":
			filters = append(filters, "aresample=resampler=soxr:precision=16")
		case "medium":
			filters = append(filters, "aresample=resampler=soxr:precision=20")
		case "high":
			filters = append(filters, "aresample=resampler=soxr:precision=28")
		}
	}
	if d.config.EnableNormalization {
		if normFilter := d.buildNormalizationFilter(); normFilter != "" {
			filters = append(filters, normFilter)
		}
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", d.config.MaxDuration.Seconds()))
	}

	// Suppress ffmpeg output
	args = append(args, "-v", "error")

	return args
}

// buildNormalizationFilter returns the ffmpeg filter for the configured method
func (d *FFmpegSource) buildNormalizationFilter() string {
	switch d.config.NormalizationMethod {
	case "loudnorm":
		// EBU R128 loudness normalization
		return fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f:LRA=%.1f",
			d.config.TargetLUFS,
			d.config.TargetPeak,
			d.config.LoudnessRange)
	case "dynaudnorm":
		return "dynaudnorm=p=0.95:m=10:s=12"
	case "compand":
		return fmt.Sprintf("compand=0.1,0.3:-90/-90,-%.1f/-%.1f,0/0:6:0:-90:0.1",
			math.Abs(d.config.TargetPeak),
			math.Abs(d.config.TargetPeak))
	default:
		return ""
	}
}

// Available reports whether the configured ffmpeg and ffprobe binaries exist
func (d *FFmpegSource) Available() error {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := exec.LookPath(d.config.FFprobePath); err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	return nil
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
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
		return nil, errors.New("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %q", stream.SampleRate)
	}

	if stream.Channels <= 0 || stream.Channels > maxChannels {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	// Duration and bitrate are informational only
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// bytesToFloat64 converts raw little-endian float64 bytes, dropping any
// trailing partial sample
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
