package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Compute and render spectrograms for every channel",
		Long: `Decodes the file, computes one spectrogram per channel and writes the
results in every requested format. A per-channel summary is printed.

Examples:
  # Hann window, 75% overlap, PNG and CSV output
  analyze recording.wav --window hanning --fft-size 1024 --overlap 768 --format png,csv

  # Phase in degrees with the phase differential between channels 0 and 1
  analyze recording.flac --mode phase_deg --phase --channel-a 0 --channel-b 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args[0])
		},
	}

	addRenderFlags(cmd)
	addPhaseFlags(cmd)
	return cmd
}

// addPhaseFlags registers the flags selecting the phase differential pair
func addPhaseFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("phase", false, "compute the phase differential between --channel-a and --channel-b")
	cmd.Flags().Int("channel-a", 0, "first channel of the phase differential")
	cmd.Flags().Int("channel-b", 1, "second channel of the phase differential")
}

func (a *app) runAnalyze(cmd *cobra.Command, path string) error {
	ctx := logging.ContextWithFields(cmd.Context(), logging.Fields{"command": "analyze"})

	orchestrator, err := analyzeFile(ctx, a.config, path)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(a.config)
	if err != nil {
		return err
	}
	if err := orchestrator.Render(ctx, renderer); err != nil {
		return err
	}

	results, err := orchestrator.Results()
	if err != nil {
		return err
	}

	summaries := make([]analysis.Summary, len(results))
	for i, result := range results {
		if summaries[i], err = orchestrator.Summary(result.Channel); err != nil {
			return err
		}
	}

	return a.printSummaries(cmd, results, summaries)
}

func (a *app) printSummaries(cmd *cobra.Command, results []*analysis.ChannelResult, summaries []analysis.Summary) error {
	out := cmd.OutOrStdout()
	if a.config.OutputFormat != "table" {
		return writeStructured(out, a.config.OutputFormat, summaries)
	}

	rows := make([][]string, len(results))
	for i, result := range results {
		s := summaries[i]
		rows[i] = []string{
			strconv.Itoa(result.Channel),
			fmt.Sprintf("%dx%d", result.Bins(), result.Frames()),
			formatValue(s.Min),
			formatValue(s.Max),
			formatValue(s.Mean),
			formatValue(s.StdDev),
			strconv.Itoa(s.NonFinite),
		}
	}

	if len(results) > 0 {
		labels := analysis.LabelsFor(results[0].Mode)
		fmt.Fprintf(out, "%s (%s window)\n", labels.Value, displayName(string(results[0].Window)))
	}
	return writeTable(out, []string{"CHANNEL", "BINSxFRAMES", "MIN", "MAX", "MEAN", "STDDEV", "NON-FINITE"}, rows)
}
