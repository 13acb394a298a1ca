package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-spectra/algorithms/spectral"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

type spectrumReport struct {
	Channel    int     `json:"channel" yaml:"channel"`
	Time       float64 `json:"time_s" yaml:"time_s"`
	Frame      int     `json:"frame" yaml:"frame"`
	PeakBin    int     `json:"peak_bin" yaml:"peak_bin"`
	PeakHz     float64 `json:"peak_hz" yaml:"peak_hz"`
	PeakValue  float64 `json:"peak_value" yaml:"peak_value"`
	ValueLabel string  `json:"value_label" yaml:"value_label"`
	FrameTime  float64 `json:"frame_time_s" yaml:"frame_time_s"`
	BinCount   int     `json:"bins" yaml:"bins"`
	FrameCount int     `json:"frames" yaml:"frames"`

	Shape *spectral.Shape `json:"shape,omitempty" yaml:"shape,omitempty"`
}

func newSpectrumCmd(a *app) *cobra.Command {
	var (
		channel int
		seconds float64
	)

	cmd := &cobra.Command{
		Use:   "spectrum <file>",
		Short: "Render the spectrum of one channel at a point in time",
		Long: `Computes the spectrogram of the file, picks the frame under --time and
writes that column as a spectrum plot. The peak bin of the column is printed,
with the centroid, bandwidth, rolloff, flatness and crest in amplitude modes.

Example:
  spectrum recording.wav --channel 1 --time 2.5 --format png,json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSpectrum(cmd, args[0], channel, seconds)
		},
	}

	cmd.Flags().IntVar(&channel, "channel", 0, "channel to slice")
	cmd.Flags().Float64Var(&seconds, "time", 0, "time in seconds")
	addRenderFlags(cmd)
	return cmd
}

func (a *app) runSpectrum(cmd *cobra.Command, path string, channel int, seconds float64) error {
	ctx := logging.ContextWithFields(cmd.Context(), logging.Fields{"command": "spectrum"})

	orchestrator, err := analyzeFile(ctx, a.config, path)
	if err != nil {
		return err
	}

	points, frame, err := orchestrator.SpectrumAtTime(channel, seconds)
	if err != nil {
		return err
	}
	peak, err := orchestrator.PeakBin(channel, frame)
	if err != nil {
		return err
	}
	result, err := orchestrator.Result(channel)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(a.config)
	if err != nil {
		return err
	}
	if err := orchestrator.RenderSpectrum(ctx, renderer, channel, seconds); err != nil {
		return err
	}

	report := spectrumReport{
		Channel:    channel,
		Time:       seconds,
		Frame:      frame,
		PeakBin:    peak,
		PeakHz:     points[peak].FrequencyHz,
		PeakValue:  points[peak].Value,
		ValueLabel: result.Mode.Unit(),
		FrameTime:  result.FrameTime(frame),
		BinCount:   result.Bins(),
		FrameCount: result.Frames(),
	}

	if !result.Mode.IsPhase() {
		shape, err := orchestrator.SpectrumShape(channel, frame)
		if err != nil {
			return err
		}
		report.Shape = &shape
	}

	out := cmd.OutOrStdout()
	if a.config.OutputFormat != "table" {
		return writeStructured(out, a.config.OutputFormat, report)
	}

	fmt.Fprintf(out, "Channel %d at %.3fs -> frame %d of %d (starts %.3fs)\n",
		report.Channel, report.Time, report.Frame, report.FrameCount, report.FrameTime)
	fmt.Fprintf(out, "Peak bin %d of %d: %.1f Hz, %s %s\n",
		report.PeakBin, report.BinCount, report.PeakHz, formatValue(report.PeakValue), report.ValueLabel)
	if shape := report.Shape; shape != nil {
		fmt.Fprintf(out, "Centroid %.1f Hz, bandwidth %.1f Hz, rolloff %.1f Hz, flatness %.4f, crest %.2f\n",
			shape.CentroidHz, shape.BandwidthHz, shape.RolloffHz, shape.Flatness, shape.Crest)
	}
	return nil
}
