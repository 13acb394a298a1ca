package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/config"
	"github.com/RyanBlaney/sonido-spectra/logging"
	"github.com/RyanBlaney/sonido-spectra/transcode"
)

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	"verbose":     "verbose",
	"log-level":   "log_level",
	"output":      "output_format",
	"output-dir":  "render.output_dir",
	"prefix":      "render.prefix",
	"format":      "render.formats",
	"scale":       "render.scale",
	"fft-size":    "analysis.fft_size",
	"hop":         "analysis.hop",
	"overlap":     "analysis.overlap",
	"integration": "analysis.integration_count",
	"window":      "analysis.window",
	"mode":        "analysis.mode",
	"backend":     "analysis.backend",
	"cache":       "analysis.cache_entries",
	"phase":       "phase.enabled",
	"channel-a":   "phase.channel_a",
	"channel-b":   "phase.channel_b",
	"sample-rate": "decoder.target_sample_rate",
	"timeout":     "decoder.timeout",
}

// app carries the state shared by one command invocation
type app struct {
	v          *viper.Viper
	configFile string
	config     *config.Config
}

// NewRootCmd builds the command tree around a fresh viper instance
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	defaults := analysis.DefaultParams()
	decoder := transcode.DefaultDecoderConfig()

	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Multi-channel spectrogram analysis",
		Long: `Computes short-time Fourier spectrograms for every channel of a recording,
with optional coherent integration of adjacent frames and an inter-channel
phase differential.

Results are rendered as PNG heatmaps and can be exported as CSV, JSON or YAML.
Every flag can also be set in the config file or through SONIDO_SPECTRA_*
environment variables, e.g. SONIDO_SPECTRA_ANALYSIS_FFT_SIZE=1024.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initializeConfig(cmd)
		},
	}

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "",
		"config file (default is $HOME/.config/sonido-spectra/sonido-spectra.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.StringP("output", "o", "table", "summary format (table, json, yaml)")

	// Analysis flags shared by every analysis command
	flags.Int("fft-size", defaults.FFTSize, "FFT size in samples")
	flags.Int("hop", defaults.Hop, "hop between frames in samples")
	flags.Int("overlap", 0, "overlap between frames in samples (overrides --hop)")
	flags.Int("integration", defaults.IntegrationCount, "number of adjacent frames summed coherently")
	flags.String("window", string(defaults.Window), "window (rectangular, hanning, hamming, blackman)")
	flags.String("mode", string(defaults.Mode), "spectrum mode (amplitude_db, amplitude_linear, phase_rad, phase_deg)")
	flags.String("backend", "go-dsp", "FFT backend (go-dsp, gonum)")
	flags.Int("cache", 8, "memoized recomputes kept in memory (0 disables)")
	flags.Int("sample-rate", decoder.TargetSampleRate, "resample to this rate when decoding through ffmpeg (0 keeps the native rate)")
	flags.Duration("timeout", decoder.Timeout, "ffmpeg decode timeout")

	rootCmd.AddCommand(
		newAnalyzeCmd(a),
		newSpectrumCmd(a),
		newPhaseCmd(a),
		newInfoCmd(a),
		newConfigCmd(a),
	)

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// addRenderFlags registers the output flags of commands that write files
func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().String("output-dir", ".", "directory results are written to")
	cmd.Flags().String("prefix", "", "prefix for every written file")
	cmd.Flags().StringSlice("format", []string{"png"}, "result formats (png, csv, json, yaml)")
	cmd.Flags().Int("scale", 1, "PNG pixels per time-frequency cell")
}

// initializeConfig reads file and environment, then binds the flags of the
// executing command so explicitly set flags take precedence
func (a *app) initializeConfig(cmd *cobra.Command) error {
	if err := config.Configure(a.v, a.configFile); err != nil {
		return err
	}
	if err := bindFlags(cmd, a.v); err != nil {
		return err
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetLevel(cfg.Level())
	a.config = cfg
	return nil
}

// bindFlags binds each known cobra flag to its configuration key
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}
	})

	return lastErr
}
