package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/algorithms/spectral"
	"github.com/RyanBlaney/sonido-spectra/algorithms/windowing"
	"github.com/RyanBlaney/sonido-spectra/logging"
	"github.com/RyanBlaney/sonido-spectra/transcode"
)

type fileInfo struct {
	Path       string  `json:"path" yaml:"path"`
	SampleRate int     `json:"sample_rate" yaml:"sample_rate"`
	Channels   int     `json:"channels" yaml:"channels"`
	Samples    int     `json:"samples" yaml:"samples"`
	TimeMaxS   float64 `json:"time_max_s" yaml:"time_max_s"`
	FreqMaxKHz float64 `json:"freq_max_khz" yaml:"freq_max_khz"`
	Bins       int     `json:"bins" yaml:"bins"`
	Frames     int     `json:"frames" yaml:"frames"`
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]",
		Short: "Show recording properties and the supported analysis options",
		Long: `Without a file, lists the supported windows, spectrum modes and FFT backends.
With a file, decodes it and prints its sample rate, channel count and the
axis bounds and grid size the configured parameters would produce.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return printOptions(cmd)
			}
			return a.runInfo(cmd, args[0])
		},
	}
}

func printOptions(cmd *cobra.Command) error {
	var rows [][]string
	for _, kind := range windowing.Kinds() {
		rows = append(rows, []string{"window", string(kind), displayName(string(kind))})
	}
	for _, mode := range spectral.Modes() {
		rows = append(rows, []string{"mode", string(mode), displayName(string(mode))})
	}
	for _, backend := range []spectral.Backend{spectral.BackendGoDSP, spectral.BackendGonum} {
		rows = append(rows, []string{"backend", string(backend), displayName(string(backend))})
	}
	return writeTable(cmd.OutOrStdout(), []string{"OPTION", "VALUE", "NAME"}, rows)
}

func (a *app) runInfo(cmd *cobra.Command, path string) error {
	ctx := logging.ContextWithFields(cmd.Context(), logging.Fields{"command": "info"})

	decoderConfig := a.config.Decoder
	buffer, err := transcode.NewSource(&decoderConfig).Load(ctx, path)
	if err != nil {
		return err
	}

	info := fileInfo{
		Path:       path,
		SampleRate: buffer.SampleRate,
		Channels:   buffer.ChannelCount(),
		Samples:    buffer.Len(),
		TimeMaxS:   buffer.Duration(),
		FreqMaxKHz: float64(buffer.SampleRate) / 2000,
	}

	params, err := a.config.Params()
	if err != nil {
		return err
	}
	if err := params.Validate(buffer); err != nil {
		logging.Warn("Configured parameters do not fit this recording", logging.Fields{"error": err.Error()})
	} else {
		info.Bins = params.FFTSize/2 + 1
		frames := spectral.FrameCount(buffer.Len(), params.FFTSize, params.Hop)
		info.Frames = common.CeilDiv(frames, params.IntegrationCount)
	}

	out := cmd.OutOrStdout()
	if a.config.OutputFormat != "table" {
		return writeStructured(out, a.config.OutputFormat, info)
	}

	return writeTable(out, []string{"PROPERTY", "VALUE"}, [][]string{
		{"path", info.Path},
		{"sample rate", strconv.Itoa(info.SampleRate) + " Hz"},
		{"channels", strconv.Itoa(info.Channels)},
		{"samples", strconv.Itoa(info.Samples)},
		{"time max", fmt.Sprintf("%.3f s", info.TimeMaxS)},
		{"frequency max", fmt.Sprintf("%.3f kHz", info.FreqMaxKHz)},
		{"grid", fmt.Sprintf("%d bins x %d frames", info.Bins, info.Frames)},
	})
}
