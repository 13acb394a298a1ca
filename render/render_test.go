package render

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/algorithms/spectral"
	"github.com/RyanBlaney/sonido-spectra/analysis"
)

func testResult() *analysis.ChannelResult {
	// 3 bins x 4 frames, bin 0 loudest, one silent cell
	return &analysis.ChannelResult{
		Channel:          1,
		Mode:             spectral.AmplitudeDB,
		Window:           "hanning",
		SampleRate:       8000,
		FFTSize:          4,
		Hop:              4,
		IntegrationCount: 1,
		FreqMaxKHz:       4,
		TimeMaxS:         0.002,
		Data: [][]float64{
			{0, 0, 0, 0},
			{-20, -20, -20, -20},
			{-40, -40, math.Inf(-1), -40},
		},
	}
}

func testPhase() *analysis.PhaseDifferentialResult {
	return &analysis.PhaseDifferentialResult{
		ChannelA:   0,
		ChannelB:   1,
		SampleRate: 8000,
		FFTSize:    4,
		Hop:        2,
		FreqMaxKHz: 4,
		TimeMaxS:   0.001,
		DisplayMin: -180,
		DisplayMax: 180,
		Data: [][]float64{
			{-90, 340},
			{0, -180},
			{180, 90},
		},
	}
}

func decodePNG(t *testing.T, path string) (w, h int, at func(x, y int) [3]uint32) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy(), func(x, y int) [3]uint32 {
		r, g, bl, _ := img.At(x, y).RGBA()
		return [3]uint32{r >> 8, g >> 8, bl >> 8}
	}
}

func TestPNGSpectrogramLayout(t *testing.T) {
	dir := t.TempDir()
	r := NewPNGRenderer(dir, "run_")
	r.Scale = 2

	result := testResult()
	require.NoError(t, r.RenderSpectrogram(context.Background(), result, analysis.LabelsFor(result.Mode)))

	path := r.SpectrogramPath(1)
	assert.Equal(t, filepath.Join(dir, "run_spectrogram_ch1.png"), path)

	w, h, at := decodePNG(t, path)
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, h)

	top := viridisStops[len(viridisStops)-1]
	bottom := viridisStops[0]
	// bin 0 (loudest) is drawn on the bottom rows
	assert.Equal(t, [3]uint32{uint32(top.R), uint32(top.G), uint32(top.B)}, at(0, 5))
	assert.Equal(t, [3]uint32{uint32(bottom.R), uint32(bottom.G), uint32(bottom.B)}, at(0, 0))
	// -Inf is black
	assert.Equal(t, [3]uint32{0, 0, 0}, at(4, 0))
}

func TestPNGPhaseUsesFixedBounds(t *testing.T) {
	r := NewPNGRenderer(t.TempDir(), "")
	require.NoError(t, r.RenderPhaseDifferential(context.Background(), testPhase()))

	w, h, at := decodePNG(t, r.PhasePath(0, 1))
	assert.Equal(t, 2, w)
	assert.Equal(t, 3, h)

	top := viridisStops[len(viridisStops)-1]
	want := [3]uint32{uint32(top.R), uint32(top.G), uint32(top.B)}
	assert.Equal(t, want, at(1, 2), "340 saturates at the upper bound")
	assert.Equal(t, want, at(0, 0), "180 maps to the upper bound")
}

func TestPNGSpectrum(t *testing.T) {
	r := NewPNGRenderer(t.TempDir(), "")
	points := []analysis.SpectrumPoint{
		{FrequencyHz: 0, Value: math.Inf(-1)},
		{FrequencyHz: 100, Value: -10},
		{FrequencyHz: 200, Value: 0},
	}
	require.NoError(t, r.RenderSpectrum(context.Background(), 0, 3, points, analysis.LabelsFor(spectral.AmplitudeDB)))

	w, h, at := decodePNG(t, r.SpectrumPath(0, 3))
	assert.Equal(t, defaultSpectrumWidth, w)
	assert.Equal(t, defaultSpectrumHeight, h)
	assert.Equal(t, [3]uint32{31, 119, 180}, at(w-1, 0), "maximum at the top right")
	assert.Equal(t, [3]uint32{255, 255, 255}, at(0, h-1), "non-finite point not drawn")
}

func TestColorScale(t *testing.T) {
	s := colorScale{lo: -1, hi: 1}
	assert.Equal(t, viridisStops[0], s.at(-5))
	assert.Equal(t, viridisStops[len(viridisStops)-1], s.at(1))
	assert.Equal(t, nonFiniteColor, s.at(math.NaN()))

	flat := colorScale{lo: 2, hi: 2}
	assert.Equal(t, viridisStops[0], flat.at(2))
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, "", FormatCSV)
	result := testResult()
	require.NoError(t, e.RenderSpectrogram(context.Background(), result, analysis.LabelsFor(result.Mode)))

	f, err := os.Open(filepath.Join(dir, "spectrogram_ch1.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"frequency_hz", "0", "0.0005", "0.001", "0.0015"}, records[0])
	assert.Equal(t, []string{"4000", "-40", "-40", "-Inf", "-40"}, records[3])
}

func TestExportJSONWritesNullForNonFinite(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, "x_", FormatJSON)
	result := testResult()
	require.NoError(t, e.RenderSpectrogram(context.Background(), result, analysis.LabelsFor(result.Mode)))

	raw, err := os.ReadFile(filepath.Join(dir, "x_spectrogram_ch1.json"))
	require.NoError(t, err)

	var doc struct {
		Kind   string          `json:"kind"`
		Labels analysis.Labels `json:"labels"`
		Data   [][]*float64    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "spectrogram", doc.Kind)
	assert.Equal(t, "Intensity [dB]", doc.Labels.Value)
	assert.Nil(t, doc.Data[2][2])
	require.NotNil(t, doc.Data[1][0])
	assert.Equal(t, -20.0, *doc.Data[1][0])
}

func TestExportYAMLSpectrumAndPhase(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, "", FormatYAML)
	ctx := context.Background()

	points := []analysis.SpectrumPoint{{FrequencyHz: 0, Value: 1.5}, {FrequencyHz: 2000, Value: 0.25}}
	require.NoError(t, e.RenderSpectrum(ctx, 0, 7, points, analysis.LabelsFor(spectral.AmplitudeLinear)))
	require.NoError(t, e.RenderPhaseDifferential(ctx, testPhase()))

	raw, err := os.ReadFile(filepath.Join(dir, "spectrum_ch0_frame7.yaml"))
	require.NoError(t, err)
	var spectrum struct {
		Frame       int       `yaml:"frame"`
		FrequencyHz []float64 `yaml:"frequency_hz"`
		Values      []float64 `yaml:"values"`
	}
	require.NoError(t, yaml.Unmarshal(raw, &spectrum))
	assert.Equal(t, 7, spectrum.Frame)
	assert.Equal(t, []float64{0, 2000}, spectrum.FrequencyHz)
	assert.Equal(t, []float64{1.5, 0.25}, spectrum.Values)

	raw, err = os.ReadFile(filepath.Join(dir, "phase_ch0_ch1.yaml"))
	require.NoError(t, err)
	var phase struct {
		DisplayMax float64     `yaml:"display_max"`
		Data       [][]float64 `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal(raw, &phase))
	assert.Equal(t, 180.0, phase.DisplayMax)
	assert.Equal(t, 340.0, phase.Data[0][1])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}

type failingRenderer struct{ err error }

func (f failingRenderer) RenderSpectrogram(context.Context, *analysis.ChannelResult, analysis.Labels) error {
	return f.err
}

func (f failingRenderer) RenderSpectrum(context.Context, int, int, []analysis.SpectrumPoint, analysis.Labels) error {
	return f.err
}

func (f failingRenderer) RenderPhaseDifferential(context.Context, *analysis.PhaseDifferentialResult) error {
	return f.err
}

func TestMultiRunsEveryRenderer(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")
	m := Multi{failingRenderer{err: boom}, NewExporter(dir, "", FormatJSON)}

	err := m.RenderPhaseDifferential(context.Background(), testPhase())
	assert.ErrorIs(t, err, boom)
	assert.FileExists(t, filepath.Join(dir, "phase_ch0_ch1.json"))
}
