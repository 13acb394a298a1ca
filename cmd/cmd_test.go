package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	os.Exit(m.Run())
}

// writeQuadratureWAV writes one second of a 1 kHz tone at 8 kHz: sine on
// channel 0, cosine on channel 1
func writeQuadratureWAV(t *testing.T, path string) {
	t.Helper()

	const sampleRate, frames = 8000, 8000
	data := make([]int, 0, 2*frames)
	for i := range frames {
		phase := 2 * math.Pi * 1000 * float64(i) / sampleRate
		data = append(data,
			int(math.Round(16384*math.Sin(phase))),
			int(math.Round(16384*math.Cos(phase))),
		)
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	encoder := wav.NewEncoder(f, sampleRate, 16, 2, 1)
	require.NoError(t, encoder.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, encoder.Close())
}

type fixture struct {
	dir    string
	wav    string
	config string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	f := fixture{
		dir:    dir,
		wav:    filepath.Join(dir, "tone.wav"),
		config: filepath.Join(dir, "config.yaml"),
	}
	writeQuadratureWAV(t, f.wav)
	require.NoError(t, os.WriteFile(f.config, []byte("log_level: info\n"), 0o644))
	return f
}

func run(t *testing.T, f fixture, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", f.config))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyzeWritesEveryFormat(t *testing.T) {
	f := newFixture(t)
	outDir := filepath.Join(f.dir, "out")

	out, err := run(t, f, "analyze", f.wav,
		"--output-dir", outDir,
		"--format", "png,csv",
		"--fft-size", "256",
		"-o", "json",
	)
	require.NoError(t, err, out)

	var summaries []analysis.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries), out)
	require.Len(t, summaries, 2)
	for ch, s := range summaries {
		assert.Equal(t, ch, s.Channel)
		assert.Equal(t, 129*31, s.Finite+s.NonFinite)
		assert.Greater(t, s.Max, s.Mean)
	}

	for _, name := range []string{
		"spectrogram_ch0.png", "spectrogram_ch1.png",
		"spectrogram_ch0.csv", "spectrogram_ch1.csv",
	} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
	assert.NoFileExists(t, filepath.Join(outDir, "phase_ch0_ch1.png"))
}

func TestAnalyzeTableOutput(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, f, "analyze", f.wav, "--output-dir", f.dir, "--window", "hann", "--overlap", "128")
	require.NoError(t, err, out)

	assert.Contains(t, out, "Intensity [dB] (Hanning window)")
	assert.Contains(t, out, "CHANNEL")
	assert.Contains(t, out, "129x61")
}

func TestAnalyzeRejectsInvalidParameters(t *testing.T) {
	f := newFixture(t)

	_, err := run(t, f, "analyze", f.wav, "--output-dir", f.dir, "--hop", "0")
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	_, err = run(t, f, "analyze", f.wav, "--output-dir", f.dir, "--phase", "--channel-a", "1", "--channel-b", "1")
	assert.ErrorIs(t, err, common.ErrInvalidChannelPair)

	_, err = run(t, f, "analyze", f.wav, "--output-dir", f.dir, "--phase", "--channel-b", "4")
	assert.ErrorIs(t, err, common.ErrChannelIndexOutOfRange)

	_, err = run(t, f, "analyze", filepath.Join(f.dir, "missing.wav"), "--output-dir", f.dir)
	assert.ErrorIs(t, err, common.ErrFileNotFound)
}

func TestSpectrumReportsPeak(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, f, "spectrum", f.wav,
		"--output-dir", f.dir,
		"--channel", "1",
		"--time", "0.5",
		"-o", "json",
	)
	require.NoError(t, err, out)

	var report spectrumReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, 15, report.Frame)
	assert.Equal(t, 32, report.PeakBin)
	assert.InDelta(t, 1000, report.PeakHz, 1e-9)
	assert.Equal(t, "dB", report.ValueLabel)
	require.NotNil(t, report.Shape)
	assert.InDelta(t, 1000, report.Shape.CentroidHz, 20)
	assert.FileExists(t, filepath.Join(f.dir, "spectrum_ch1_frame15.png"))

	_, err = run(t, f, "spectrum", f.wav, "--output-dir", f.dir, "--time", "2")
	assert.ErrorIs(t, err, common.ErrIndexOutOfRange)
}

func TestPhaseIgnoresIntegration(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, f, "phase", f.wav,
		"--output-dir", f.dir,
		"--integration", "4",
		"-o", "json",
	)
	require.NoError(t, err, out)

	var report phaseReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, 0, report.ChannelA)
	assert.Equal(t, 1, report.ChannelB)
	assert.Equal(t, 129, report.Bins)
	assert.Equal(t, 31, report.Frames)
	assert.Equal(t, -180.0, report.DisplayMin)
	assert.Equal(t, 180.0, report.DisplayMax)
	assert.FileExists(t, filepath.Join(f.dir, "phase_ch0_ch1.png"))
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	f := newFixture(t)
	t.Setenv("SONIDO_SPECTRA_ANALYSIS_FFT_SIZE", "512")

	out, err := run(t, f, "info", f.wav, "-o", "json")
	require.NoError(t, err, out)

	var info fileInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info), out)
	assert.Equal(t, 8000, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.InDelta(t, 1.0, info.TimeMaxS, 1e-12)
	assert.InDelta(t, 4.0, info.FreqMaxKHz, 1e-12)
	assert.Equal(t, 257, info.Bins)

	out, err = run(t, f, "info", f.wav, "-o", "json", "--fft-size", "128")
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), &info), out)
	assert.Equal(t, 65, info.Bins)
	assert.Equal(t, 31, info.Frames)
}

func TestInfoListsOptions(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, f, "info")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Amplitude Db")
	assert.Contains(t, out, "Blackman")
	assert.Contains(t, out, "gonum")
}

func TestConfigInit(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "generated.yaml")

	out, err := run(t, f, "config", "init", path)
	require.NoError(t, err, out)
	assert.FileExists(t, path)

	_, err = run(t, f, "config", "init", path)
	assert.Error(t, err)

	_, err = run(t, f, "config", "init", path, "--force")
	assert.NoError(t, err)

	// The generated file is a valid configuration on its own
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"config", "show", "--config", path})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "fft_size: 256")
}
