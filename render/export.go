package render

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

// Format is a data export format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses an export format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", common.NewInvalidParameter("output_format", s, "must be csv, json or yaml")
	}
}

// vector encodes to JSON with null in place of NaN and infinities
type vector []float64

func (v vector) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		if common.IsFinite(x) {
			b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		} else {
			b.WriteString("null")
		}
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

func matrix(data [][]float64) []vector {
	out := make([]vector, len(data))
	for i, row := range data {
		out[i] = row
	}
	return out
}

type spectrogramDocument struct {
	Kind             string          `json:"kind" yaml:"kind"`
	Channel          int             `json:"channel" yaml:"channel"`
	Mode             string          `json:"mode" yaml:"mode"`
	Window           string          `json:"window" yaml:"window"`
	SampleRate       int             `json:"sample_rate" yaml:"sample_rate"`
	FFTSize          int             `json:"fft_size" yaml:"fft_size"`
	Hop              int             `json:"hop" yaml:"hop"`
	IntegrationCount int             `json:"integration_count" yaml:"integration_count"`
	FreqMaxKHz       float64         `json:"freq_max_khz" yaml:"freq_max_khz"`
	TimeMaxS         float64         `json:"time_max_s" yaml:"time_max_s"`
	Labels           analysis.Labels `json:"labels" yaml:"labels"`
	Data             []vector        `json:"data" yaml:"data"`
}

type spectrumDocument struct {
	Kind        string          `json:"kind" yaml:"kind"`
	Channel     int             `json:"channel" yaml:"channel"`
	Frame       int             `json:"frame" yaml:"frame"`
	Labels      analysis.Labels `json:"labels" yaml:"labels"`
	FrequencyHz vector          `json:"frequency_hz" yaml:"frequency_hz"`
	Values      vector          `json:"values" yaml:"values"`
}

type phaseDocument struct {
	Kind       string   `json:"kind" yaml:"kind"`
	ChannelA   int      `json:"channel_a" yaml:"channel_a"`
	ChannelB   int      `json:"channel_b" yaml:"channel_b"`
	SampleRate int      `json:"sample_rate" yaml:"sample_rate"`
	FFTSize    int      `json:"fft_size" yaml:"fft_size"`
	Hop        int      `json:"hop" yaml:"hop"`
	FreqMaxKHz float64  `json:"freq_max_khz" yaml:"freq_max_khz"`
	TimeMaxS   float64  `json:"time_max_s" yaml:"time_max_s"`
	DisplayMin float64  `json:"display_min" yaml:"display_min"`
	DisplayMax float64  `json:"display_max" yaml:"display_max"`
	Data       []vector `json:"data" yaml:"data"`
}

// Exporter writes results as data files rather than images. It implements
// analysis.Renderer.
type Exporter struct {
	Dir    string
	Prefix string
	Format Format

	logger logging.Logger
}

// NewExporter creates an exporter writing files of the given format into dir
func NewExporter(dir, prefix string, format Format) *Exporter {
	return &Exporter{
		Dir:    dir,
		Prefix: prefix,
		Format: format,
		logger: logging.WithFields(logging.Fields{
			"component": "data_exporter",
			"format":    format,
		}),
	}
}

func (e *Exporter) path(name string) string {
	return filepath.Join(e.Dir, fmt.Sprintf("%s%s.%s", e.Prefix, name, e.Format))
}

// RenderSpectrogram implements analysis.Renderer
func (e *Exporter) RenderSpectrogram(ctx context.Context, result *analysis.ChannelResult, labels analysis.Labels) error {
	path := e.path(fmt.Sprintf("spectrogram_ch%d", result.Channel))

	return e.write(path, func(w io.Writer) error {
		if e.Format == FormatCSV {
			header := make([]string, 0, result.Frames()+1)
			header = append(header, "frequency_hz")
			for j := range result.Frames() {
				header = append(header, formatFloat(result.FrameTime(j)))
			}
			rows := make([][]float64, result.Bins())
			for k, row := range result.Data {
				rows[k] = append([]float64{result.BinFrequency(k)}, row...)
			}
			return writeCSV(w, header, rows)
		}

		return e.encode(w, spectrogramDocument{
			Kind:             "spectrogram",
			Channel:          result.Channel,
			Mode:             string(result.Mode),
			Window:           string(result.Window),
			SampleRate:       result.SampleRate,
			FFTSize:          result.FFTSize,
			Hop:              result.Hop,
			IntegrationCount: result.IntegrationCount,
			FreqMaxKHz:       result.FreqMaxKHz,
			TimeMaxS:         result.TimeMaxS,
			Labels:           labels,
			Data:             matrix(result.Data),
		})
	})
}

// RenderSpectrum implements analysis.Renderer
func (e *Exporter) RenderSpectrum(ctx context.Context, channel, frame int, points []analysis.SpectrumPoint, labels analysis.Labels) error {
	path := e.path(fmt.Sprintf("spectrum_ch%d_frame%d", channel, frame))

	frequencies := make(vector, len(points))
	values := make(vector, len(points))
	for i, p := range points {
		frequencies[i] = p.FrequencyHz
		values[i] = p.Value
	}

	return e.write(path, func(w io.Writer) error {
		if e.Format == FormatCSV {
			rows := make([][]float64, len(points))
			for i := range points {
				rows[i] = []float64{frequencies[i], values[i]}
			}
			return writeCSV(w, []string{"frequency_hz", "value"}, rows)
		}

		return e.encode(w, spectrumDocument{
			Kind:        "spectrum",
			Channel:     channel,
			Frame:       frame,
			Labels:      labels,
			FrequencyHz: frequencies,
			Values:      values,
		})
	})
}

// RenderPhaseDifferential implements analysis.Renderer
func (e *Exporter) RenderPhaseDifferential(ctx context.Context, result *analysis.PhaseDifferentialResult) error {
	path := e.path(fmt.Sprintf("phase_ch%d_ch%d", result.ChannelA, result.ChannelB))

	return e.write(path, func(w io.Writer) error {
		if e.Format == FormatCSV {
			header := make([]string, 0, result.Frames()+1)
			header = append(header, "frequency_hz")
			for j := range result.Frames() {
				header = append(header, formatFloat(float64(j*result.Hop)/float64(result.SampleRate)))
			}
			rows := make([][]float64, result.Bins())
			for k, row := range result.Data {
				freq := float64(k) * float64(result.SampleRate) / float64(result.FFTSize)
				rows[k] = append([]float64{freq}, row...)
			}
			return writeCSV(w, header, rows)
		}

		return e.encode(w, phaseDocument{
			Kind:       "phase_differential",
			ChannelA:   result.ChannelA,
			ChannelB:   result.ChannelB,
			SampleRate: result.SampleRate,
			FFTSize:    result.FFTSize,
			Hop:        result.Hop,
			FreqMaxKHz: result.FreqMaxKHz,
			TimeMaxS:   result.TimeMaxS,
			DisplayMin: result.DisplayMin,
			DisplayMax: result.DisplayMax,
			Data:       matrix(result.Data),
		})
	})
}

func (e *Exporter) encode(w io.Writer, doc any) error {
	switch e.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return common.NewInvalidParameter("output_format", string(e.Format), "must be csv, json or yaml")
	}
}

func (e *Exporter) write(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := fill(&buf); err != nil {
		e.logger.Error(err, "Failed to encode export", logging.Fields{"path": path})
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		e.logger.Error(err, "Failed to write export", logging.Fields{"path": path})
		return fmt.Errorf("write %s: %w", path, err)
	}

	e.logger.Debug("Export written", logging.Fields{
		"path":  path,
		"bytes": buf.Len(),
	})
	return nil
}

func writeCSV(w io.Writer, header []string, rows [][]float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, formatFloat(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
