package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

const (
	defaultSpectrumWidth  = 512
	defaultSpectrumHeight = 256
)

var (
	backgroundColor = color.RGBA{255, 255, 255, 255}
	traceColor      = color.RGBA{31, 119, 180, 255}
)

// PNGRenderer writes spectrograms as heatmaps with the lowest frequency at
// the bottom, and single-column spectra as line plots. One pixel per
// time-frequency cell, multiplied by Scale.
type PNGRenderer struct {
	Dir    string
	Prefix string
	Scale  int

	logger logging.Logger
}

// NewPNGRenderer creates a renderer writing into dir
func NewPNGRenderer(dir, prefix string) *PNGRenderer {
	return &PNGRenderer{
		Dir:    dir,
		Prefix: prefix,
		Scale:  1,
		logger: logging.WithFields(logging.Fields{
			"component": "png_renderer",
		}),
	}
}

// SpectrogramPath returns the file written for channel
func (r *PNGRenderer) SpectrogramPath(channel int) string {
	return filepath.Join(r.Dir, fmt.Sprintf("%sspectrogram_ch%d.png", r.Prefix, channel))
}

// SpectrumPath returns the file written for a spectrum slice
func (r *PNGRenderer) SpectrumPath(channel, frame int) string {
	return filepath.Join(r.Dir, fmt.Sprintf("%sspectrum_ch%d_frame%d.png", r.Prefix, channel, frame))
}

// PhasePath returns the file written for a phase differential
func (r *PNGRenderer) PhasePath(a, b int) string {
	return filepath.Join(r.Dir, fmt.Sprintf("%sphase_ch%d_ch%d.png", r.Prefix, a, b))
}

// RenderSpectrogram implements analysis.Renderer. Colours span the finite
// range of the matrix.
func (r *PNGRenderer) RenderSpectrogram(ctx context.Context, result *analysis.ChannelResult, labels analysis.Labels) error {
	lo, hi, _ := common.FiniteRange(result.Data)
	img := r.heatmap(result.Data, colorScale{lo: lo, hi: hi})

	path := r.SpectrogramPath(result.Channel)
	if err := writePNG(path, img); err != nil {
		r.logger.Error(err, "Failed to write spectrogram", logging.Fields{"path": path})
		return err
	}

	r.logger.Debug("Spectrogram written", logging.Fields{
		"path":       path,
		"bins":       result.Bins(),
		"frames":     result.Frames(),
		"value_axis": labels.Value,
		"min":        lo,
		"max":        hi,
	})
	return nil
}

// RenderPhaseDifferential implements analysis.Renderer. Colours span the
// fixed display bounds; values beyond them saturate.
func (r *PNGRenderer) RenderPhaseDifferential(ctx context.Context, result *analysis.PhaseDifferentialResult) error {
	img := r.heatmap(result.Data, colorScale{lo: result.DisplayMin, hi: result.DisplayMax})

	path := r.PhasePath(result.ChannelA, result.ChannelB)
	if err := writePNG(path, img); err != nil {
		r.logger.Error(err, "Failed to write phase differential", logging.Fields{"path": path})
		return err
	}

	r.logger.Debug("Phase differential written", logging.Fields{"path": path})
	return nil
}

// RenderSpectrum implements analysis.Renderer
func (r *PNGRenderer) RenderSpectrum(ctx context.Context, channel, frame int, points []analysis.SpectrumPoint, labels analysis.Labels) error {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	img := lineplot(values, defaultSpectrumWidth*r.scale(), defaultSpectrumHeight*r.scale())

	path := r.SpectrumPath(channel, frame)
	if err := writePNG(path, img); err != nil {
		r.logger.Error(err, "Failed to write spectrum", logging.Fields{"path": path})
		return err
	}

	r.logger.Debug("Spectrum written", logging.Fields{
		"path":       path,
		"points":     len(points),
		"value_axis": labels.Value,
	})
	return nil
}

func (r *PNGRenderer) scale() int {
	return max(r.Scale, 1)
}

// heatmap draws data[bin][frame] with bin 0 on the bottom row
func (r *PNGRenderer) heatmap(data [][]float64, scale colorScale) *image.RGBA {
	bins := len(data)
	frames := 0
	if bins > 0 {
		frames = len(data[0])
	}

	s := r.scale()
	img := image.NewRGBA(image.Rect(0, 0, frames*s, bins*s))
	for k, row := range data {
		y0 := (bins - 1 - k) * s
		for j, v := range row {
			c := scale.at(v)
			for dy := range s {
				for dx := range s {
					img.SetRGBA(j*s+dx, y0+dy, c)
				}
			}
		}
	}
	return img
}

// lineplot draws values left to right, auto-scaled to their finite range.
// Non-finite points break the line.
func lineplot(values []float64, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetRGBA(x, y, backgroundColor)
		}
	}
	if len(values) == 0 {
		return img
	}

	lo, hi, ok := common.FiniteRange([][]float64{values})
	if !ok {
		return img
	}

	toXY := func(i int, v float64) (int, int) {
		x := 0
		if len(values) > 1 {
			x = int(math.Round(float64(i) * float64(width-1) / float64(len(values)-1)))
		}
		t := 0.5
		if hi > lo {
			t = (v - lo) / (hi - lo)
		}
		y := height - 1 - int(math.Round(t*float64(height-1)))
		return x, y
	}

	prevOK := false
	var px, py int
	for i, v := range values {
		if !common.IsFinite(v) {
			prevOK = false
			continue
		}
		x, y := toXY(i, v)
		if prevOK {
			drawLine(img, px, py, x, y, traceColor)
		} else {
			img.SetRGBA(x, y, traceColor)
		}
		px, py, prevOK = x, y, true
	}
	return img
}

// drawLine is Bresenham's line algorithm
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return f.Close()
}
