package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/algorithms/spectral"
	"github.com/RyanBlaney/sonido-spectra/algorithms/windowing"
	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/logging"
	"github.com/RyanBlaney/sonido-spectra/render"
	"github.com/RyanBlaney/sonido-spectra/transcode"
)

const (
	// AppName is used for the config file name and search paths
	AppName = "sonido-spectra"
	// EnvPrefix prefixes every environment override, e.g. SONIDO_SPECTRA_ANALYSIS_FFT_SIZE
	EnvPrefix = "SONIDO_SPECTRA"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose" yaml:"verbose"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`

	Analysis AnalysisConfig          `mapstructure:"analysis" yaml:"analysis"`
	Phase    PhaseConfig             `mapstructure:"phase" yaml:"phase"`
	Decoder  transcode.DecoderConfig `mapstructure:"decoder" yaml:"decoder"`
	Render   RenderConfig            `mapstructure:"render" yaml:"render"`
}

// AnalysisConfig contains the spectrogram parameters
type AnalysisConfig struct {
	FFTSize          int    `mapstructure:"fft_size" yaml:"fft_size"`
	Hop              int    `mapstructure:"hop" yaml:"hop"`
	Overlap          int    `mapstructure:"overlap" yaml:"overlap"` // when > 0, hop = fft_size - overlap
	IntegrationCount int    `mapstructure:"integration_count" yaml:"integration_count"`
	Window           string `mapstructure:"window" yaml:"window"`
	Mode             string `mapstructure:"mode" yaml:"mode"`
	Backend          string `mapstructure:"backend" yaml:"backend"`
	CacheEntries     int    `mapstructure:"cache_entries" yaml:"cache_entries"`
}

// PhaseConfig selects the optional phase differential
type PhaseConfig struct {
	Enabled  bool `mapstructure:"enabled" yaml:"enabled"`
	ChannelA int  `mapstructure:"channel_a" yaml:"channel_a"`
	ChannelB int  `mapstructure:"channel_b" yaml:"channel_b"`
}

// RenderConfig controls where and how results are written
type RenderConfig struct {
	OutputDir string   `mapstructure:"output_dir" yaml:"output_dir"`
	Prefix    string   `mapstructure:"prefix" yaml:"prefix"`
	Formats   []string `mapstructure:"formats" yaml:"formats"` // png, csv, json, yaml
	Scale     int      `mapstructure:"scale" yaml:"scale"`
}

// SetDefaults registers default values for every key
func SetDefaults(v *viper.Viper) {
	defaults := analysis.DefaultParams()

	// Application defaults
	v.SetDefault("verbose", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("output_format", "table")

	// Analysis defaults
	v.SetDefault("analysis.fft_size", defaults.FFTSize)
	v.SetDefault("analysis.hop", defaults.Hop)
	v.SetDefault("analysis.overlap", 0)
	v.SetDefault("analysis.integration_count", defaults.IntegrationCount)
	v.SetDefault("analysis.window", string(defaults.Window))
	v.SetDefault("analysis.mode", string(defaults.Mode))
	v.SetDefault("analysis.backend", string(spectral.BackendGoDSP))
	v.SetDefault("analysis.cache_entries", 8)

	// Phase differential is off unless asked for
	v.SetDefault("phase.enabled", false)
	v.SetDefault("phase.channel_a", 0)
	v.SetDefault("phase.channel_b", 1)

	// Decoder defaults
	decoder := transcode.DefaultDecoderConfig()
	v.SetDefault("decoder.target_sample_rate", decoder.TargetSampleRate)
	v.SetDefault("decoder.target_channels", decoder.TargetChannels)
	v.SetDefault("decoder.max_duration", decoder.MaxDuration)
	v.SetDefault("decoder.resample_quality", decoder.ResampleQuality)
	v.SetDefault("decoder.ffmpeg_path", decoder.FFmpegPath)
	v.SetDefault("decoder.ffprobe_path", decoder.FFprobePath)
	v.SetDefault("decoder.timeout", decoder.Timeout)
	v.SetDefault("decoder.enable_normalization", decoder.EnableNormalization)
	v.SetDefault("decoder.normalization_method", decoder.NormalizationMethod)
	v.SetDefault("decoder.target_lufs", decoder.TargetLUFS)
	v.SetDefault("decoder.target_peak", decoder.TargetPeak)
	v.SetDefault("decoder.loudness_range", decoder.LoudnessRange)

	// Render defaults
	v.SetDefault("render.output_dir", ".")
	v.SetDefault("render.prefix", "")
	v.SetDefault("render.formats", []string{"png"})
	v.SetDefault("render.scale", 1)
}

// Configure points v at the config file (or the default search paths) and
// environment, registers defaults and reads the file if one is found.
func Configure(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
		v.AddConfigPath(filepath.Join("/etc", AppName))
		v.AddConfigPath(".")
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	logging.Debug("Using config file", logging.Fields{"path": v.ConfigFileUsed()})
	return nil
}

// Load decodes the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	config := &Config{}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// Validate checks the values that can be checked without a recording
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return common.NewInvalidParameter("log_level", c.LogLevel, err.Error())
	}

	switch c.OutputFormat {
	case "table", "json", "yaml":
	default:
		return common.NewInvalidParameter("output_format", c.OutputFormat, "must be table, json or yaml")
	}

	if _, err := c.Params(); err != nil {
		return err
	}
	if _, err := c.Backend(); err != nil {
		return err
	}
	if c.Analysis.CacheEntries < 0 {
		return common.NewInvalidParameter("cache_entries", c.Analysis.CacheEntries, "must not be negative")
	}

	if err := c.Decoder.Validate(); err != nil {
		return err
	}

	if len(c.Render.Formats) == 0 {
		return common.NewInvalidParameter("formats", c.Render.Formats, "at least one output format is required")
	}
	for _, f := range c.Render.Formats {
		if strings.EqualFold(f, "png") {
			continue
		}
		if _, err := render.ParseFormat(f); err != nil {
			return common.NewInvalidParameter("formats", f, "must be png, csv, json or yaml")
		}
	}
	if c.Render.Scale <= 0 {
		return common.NewInvalidParameter("scale", c.Render.Scale, "must be positive")
	}

	return nil
}

// Params converts the analysis and phase sections into a parameter tuple.
// Checks that need the recording are left to Params.Validate.
func (c *Config) Params() (analysis.Params, error) {
	a := c.Analysis

	window, err := windowing.ParseKind(a.Window)
	if err != nil {
		return analysis.Params{}, err
	}
	mode, err := spectral.ParseMode(a.Mode)
	if err != nil {
		return analysis.Params{}, err
	}

	hop := a.Hop
	if a.Overlap != 0 && a.FFTSize > 0 {
		if hop, err = analysis.HopFromOverlap(a.FFTSize, a.Overlap); err != nil {
			return analysis.Params{}, err
		}
	}

	params := analysis.Params{
		FFTSize:          a.FFTSize,
		Hop:              hop,
		IntegrationCount: a.IntegrationCount,
		Window:           window,
		Mode:             mode,
	}
	if c.Phase.Enabled {
		params.PhaseDifferential = &analysis.ChannelPair{A: c.Phase.ChannelA, B: c.Phase.ChannelB}
	}

	// Without a recording Validate stops at ErrNotComputed once the
	// scalar parameters have passed
	if err := params.Validate(nil); err != nil && !errors.Is(err, common.ErrNotComputed) {
		return params, err
	}
	if pair := params.PhaseDifferential; pair != nil && pair.A == pair.B {
		return params, common.NewInvalidChannelPair(pair.A)
	}

	return params, nil
}

// Backend returns the configured FFT backend
func (c *Config) Backend() (spectral.Backend, error) {
	return spectral.ParseBackend(c.Analysis.Backend)
}

// Level returns the effective log level; verbose forces debug
func (c *Config) Level() logging.Level {
	if c.Verbose {
		return logging.DebugLevel
	}
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}

// WriteExample writes the default configuration as YAML
func WriteExample(w io.Writer) error {
	v := viper.New()
	SetDefaults(v)

	config, err := Load(v)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(exampleDocument(config)); err != nil {
		return err
	}
	return enc.Close()
}

// exampleDocument re-renders durations as strings so the example reads
// "60s" rather than nanoseconds
func exampleDocument(c *Config) map[string]any {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	if decoder, ok := doc["decoder"].(map[string]any); ok {
		decoder["timeout"] = c.Decoder.Timeout.String()
		decoder["max_duration"] = c.Decoder.MaxDuration.String()
	}
	return doc
}
