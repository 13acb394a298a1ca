package analysis

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/algorithms/spectral"
	"github.com/RyanBlaney/sonido-spectra/algorithms/windowing"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

const defaultCacheEntries = 8

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithCache bounds the number of memoized recomputes. Zero disables the cache.
func WithCache(entries int) Option {
	return func(o *Orchestrator) {
		o.cache = newResultCache(entries)
	}
}

// WithFFTBackend selects the FFT implementation used by every STFT
func WithFFTBackend(backend spectral.Backend) Option {
	return func(o *Orchestrator) {
		o.stft = spectral.NewSTFTWithFFT(spectral.NewFFTWithBackend(backend))
	}
}

// snapshot is one published recompute. It is replaced as a whole and never
// modified, so readers holding it cannot observe a partial update.
type snapshot struct {
	params  Params
	results []*ChannelResult
	phase   *PhaseDifferentialResult
}

// Orchestrator owns a SampleBuffer and the results of the last successful
// recompute over it. All methods are safe for concurrent use.
type Orchestrator struct {
	logger  logging.Logger
	windows *windowing.WindowGenerator
	stft    *spectral.STFT
	cache   *resultCache

	mu         sync.RWMutex
	buffer     *SampleBuffer
	current    *snapshot
	generation uint64 // bumped by every RecomputeAll; only the latest may publish
}

// NewOrchestrator creates an orchestrator over buffer. buffer may be nil and
// supplied later with SetBuffer.
func NewOrchestrator(buffer *SampleBuffer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger: logging.WithFields(logging.Fields{
			"component": "analysis_orchestrator",
		}),
		windows: windowing.NewWindowGenerator(),
		stft:    spectral.NewSTFT(),
		cache:   newResultCache(defaultCacheEntries),
		buffer:  buffer,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// SetBuffer replaces the recording. Results computed from the previous buffer
// are dropped; queries fail with ErrNotComputed until the next RecomputeAll.
func (o *Orchestrator) SetBuffer(buffer *SampleBuffer) {
	o.mu.Lock()
	previous := o.buffer
	o.buffer = buffer
	o.current = nil
	o.mu.Unlock()

	if previous != nil && previous != buffer {
		o.cache.dropBuffer(previous)
	}

	fields := logging.Fields{"function": "SetBuffer"}
	if buffer != nil {
		fields["channels"] = buffer.ChannelCount()
		fields["samples"] = buffer.Len()
		fields["sample_rate"] = buffer.SampleRate
	}
	o.logger.Debug("Sample buffer replaced", fields)
}

// Buffer returns the active recording, or nil
func (o *Orchestrator) Buffer() *SampleBuffer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.buffer
}

// RecomputeAll runs the full pipeline for every channel, and the phase
// differential when params enables it, then publishes all results at once.
// On any error, including cancellation of ctx, the previously published
// results stay in place. A call overtaken by a later RecomputeAll returns
// ErrNotComputed without publishing.
func (o *Orchestrator) RecomputeAll(ctx context.Context, params Params) error {
	o.mu.Lock()
	o.generation++
	generation := o.generation
	buffer := o.buffer
	o.mu.Unlock()

	logger := o.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":          "RecomputeAll",
		"fft_size":          params.FFTSize,
		"hop":               params.Hop,
		"integration_count": params.IntegrationCount,
		"window":            params.Window,
		"mode":              params.Mode,
	})

	if err := params.Validate(buffer); err != nil {
		logger.Error(err, "Rejected analysis parameters")
		return err
	}

	params = params.clone()
	key := cacheEntryKey{buffer: buffer, params: params.key()}

	entry, cached := o.cache.get(key)
	if !cached {
		var err error
		entry, err = o.compute(ctx, buffer, params)
		if err != nil {
			logger.Error(err, "Recompute failed, keeping previous results")
			return err
		}
		o.cache.put(key, entry)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.buffer != buffer {
		err := common.NewNotComputed("sample buffer replaced during recompute")
		logger.Warn("Discarding results for a replaced buffer")
		return err
	}
	if o.generation != generation {
		err := common.NewNotComputed("recompute superseded by a later call")
		logger.Warn("Discarding results of a superseded recompute", logging.Fields{
			"generation": generation,
			"latest":     o.generation,
		})
		return err
	}

	o.current = &snapshot{
		params:  params,
		results: entry.results,
		phase:   entry.phase,
	}

	logger.Info("Analysis recomputed", logging.Fields{
		"channels":           len(entry.results),
		"cached":             cached,
		"phase_differential": entry.phase != nil,
	})

	return nil
}

func (o *Orchestrator) compute(ctx context.Context, buffer *SampleBuffer, params Params) (cacheEntry, error) {
	window, err := o.windows.Generate(params.Window, params.FFTSize)
	if err != nil {
		return cacheEntry{}, err
	}
	coefficients := window.Coefficients()

	results := make([]*ChannelResult, buffer.ChannelCount())
	var phase *PhaseDifferentialResult

	g, gctx := errgroup.WithContext(ctx)
	for ch := range results {
		g.Go(func() error {
			result, err := o.analyzeChannel(gctx, buffer, ch, coefficients, params)
			if err != nil {
				return fmt.Errorf("channel %d: %w", ch, err)
			}
			results[ch] = result
			return nil
		})
	}

	if pair := params.PhaseDifferential; pair != nil {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := o.stft.PhaseDifferential(buffer.Samples[pair.A], buffer.Samples[pair.B],
				coefficients, params.Hop, buffer.SampleRate)
			if err != nil {
				return fmt.Errorf("phase differential %s: %w", pair, err)
			}
			phase = &PhaseDifferentialResult{
				ChannelA:   pair.A,
				ChannelB:   pair.B,
				SampleRate: buffer.SampleRate,
				FFTSize:    params.FFTSize,
				Hop:        params.Hop,
				FreqMaxKHz: float64(buffer.SampleRate) / 2000,
				TimeMaxS:   buffer.Duration(),
				DisplayMin: spectral.PhaseDisplayMin,
				DisplayMax: spectral.PhaseDisplayMax,
				Data:       data,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return cacheEntry{}, err
	}

	return cacheEntry{results: results, phase: phase}, nil
}

// analyzeChannel runs STFT, integration and the mode transform in order
func (o *Orchestrator) analyzeChannel(ctx context.Context, buffer *SampleBuffer, ch int, window []float64, params Params) (*ChannelResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spec, err := o.stft.Transform(buffer.Samples[ch], window, params.Hop, buffer.SampleRate)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spec, err = spectral.Integrate(spec, params.IntegrationCount)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := spectral.ApplyMode(spec, params.Mode)
	if err != nil {
		return nil, err
	}

	return &ChannelResult{
		Channel:          ch,
		Mode:             params.Mode,
		Window:           params.Window,
		SampleRate:       buffer.SampleRate,
		FFTSize:          params.FFTSize,
		Hop:              spec.Hop,
		IntegrationCount: params.IntegrationCount,
		FreqMaxKHz:       float64(buffer.SampleRate) / 2000,
		TimeMaxS:         buffer.Duration(),
		Data:             data,
	}, nil
}

func (o *Orchestrator) published() (*snapshot, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.current == nil {
		return nil, common.NewNotComputed("no analysis has been computed for the current buffer")
	}
	return o.current, nil
}

func (s *snapshot) channel(ch int) (*ChannelResult, error) {
	if ch < 0 || ch >= len(s.results) {
		return nil, common.NewChannelIndexOutOfRange("channel", ch, len(s.results))
	}
	return s.results[ch], nil
}

// Params returns the parameters of the published results
func (o *Orchestrator) Params() (Params, error) {
	snap, err := o.published()
	if err != nil {
		return Params{}, err
	}
	return snap.params.clone(), nil
}

// Result returns the published result for channel ch
func (o *Orchestrator) Result(ch int) (*ChannelResult, error) {
	snap, err := o.published()
	if err != nil {
		return nil, err
	}
	return snap.channel(ch)
}

// Results returns the published results of every channel, indexed by channel
func (o *Orchestrator) Results() ([]*ChannelResult, error) {
	snap, err := o.published()
	if err != nil {
		return nil, err
	}
	return append([]*ChannelResult(nil), snap.results...), nil
}

// PhaseDifferential returns the published differential, or nil when the last
// recompute did not request one.
func (o *Orchestrator) PhaseDifferential() (*PhaseDifferentialResult, error) {
	snap, err := o.published()
	if err != nil {
		return nil, err
	}
	return snap.phase, nil
}

// SliceSpectrum returns column frame of channel ch as (frequency, value) pairs,
// one per bin.
func (o *Orchestrator) SliceSpectrum(ch, frame int) ([]SpectrumPoint, error) {
	snap, err := o.published()
	if err != nil {
		return nil, err
	}
	result, err := snap.channel(ch)
	if err != nil {
		return nil, err
	}
	return sliceSpectrum(result, frame)
}

func sliceSpectrum(result *ChannelResult, frame int) ([]SpectrumPoint, error) {
	frames := result.Frames()
	if frame < 0 || frame >= frames {
		return nil, common.NewIndexOutOfRange("frame", frame, fmt.Sprintf("must be in [0, %d)", frames))
	}

	column := common.Column(result.Data, frame)
	points := make([]SpectrumPoint, len(column))
	for k, v := range column {
		points[k] = SpectrumPoint{
			FrequencyHz: result.BinFrequency(k),
			Value:       v,
		}
	}
	return points, nil
}

// MapTimeToFrame converts a time in seconds to a column index of channel ch
// using floor(frames*t/time_max), clamped to [0, frames-1]. Times outside
// [0, time_max] are rejected.
func (o *Orchestrator) MapTimeToFrame(ch int, seconds float64) (int, error) {
	snap, err := o.published()
	if err != nil {
		return 0, err
	}
	result, err := snap.channel(ch)
	if err != nil {
		return 0, err
	}
	return mapTimeToFrame(result, seconds)
}

func mapTimeToFrame(result *ChannelResult, seconds float64) (int, error) {
	if !common.IsFinite(seconds) || seconds < 0 || seconds > result.TimeMaxS {
		return 0, common.NewIndexOutOfRange("time_seconds", seconds,
			fmt.Sprintf("must be in [0, %g]", result.TimeMaxS))
	}

	frames := result.Frames()
	frame := int(math.Floor(float64(frames) * seconds / result.TimeMaxS))
	return common.ClampInt(frame, 0, frames-1), nil
}

// SpectrumAtTime slices channel ch at the column under the given time and
// returns the spectrum together with the column index.
func (o *Orchestrator) SpectrumAtTime(ch int, seconds float64) ([]SpectrumPoint, int, error) {
	snap, err := o.published()
	if err != nil {
		return nil, 0, err
	}
	result, err := snap.channel(ch)
	if err != nil {
		return nil, 0, err
	}

	frame, err := mapTimeToFrame(result, seconds)
	if err != nil {
		return nil, 0, err
	}
	points, err := sliceSpectrum(result, frame)
	if err != nil {
		return nil, 0, err
	}
	return points, frame, nil
}

// PeakBin returns the bin holding the largest finite value of column frame
func (o *Orchestrator) PeakBin(ch, frame int) (int, error) {
	points, err := o.SliceSpectrum(ch, frame)
	if err != nil {
		return 0, err
	}

	values := make([]float64, len(points))
	for k, p := range points {
		values[k] = p.Value
	}

	peak := common.MaxFiniteIndex(values)
	if peak < 0 {
		return 0, common.NewIndexOutOfRange("frame", frame, "column has no finite values")
	}
	return peak, nil
}

// SpectrumShape describes column frame of channel ch: centroid, bandwidth,
// rolloff, flatness and crest. Only amplitude modes carry a magnitude.
func (o *Orchestrator) SpectrumShape(ch, frame int) (spectral.Shape, error) {
	snap, err := o.published()
	if err != nil {
		return spectral.Shape{}, err
	}
	result, err := snap.channel(ch)
	if err != nil {
		return spectral.Shape{}, err
	}
	points, err := sliceSpectrum(result, frame)
	if err != nil {
		return spectral.Shape{}, err
	}

	values := make([]float64, len(points))
	freqs := make([]float64, len(points))
	for k, p := range points {
		values[k] = p.Value
		freqs[k] = p.FrequencyHz
	}

	mags, err := spectral.Magnitudes(values, result.Mode)
	if err != nil {
		return spectral.Shape{}, err
	}
	return spectral.ComputeShape(mags, freqs, spectral.DefaultRolloff)
}

// Summary returns statistics over the finite values of channel ch
func (o *Orchestrator) Summary(ch int) (Summary, error) {
	result, err := o.Result(ch)
	if err != nil {
		return Summary{}, err
	}

	values := common.FiniteValues(result.Data)
	summary := Summary{
		Channel:   ch,
		Finite:    len(values),
		NonFinite: result.Bins()*result.Frames() - len(values),
	}
	if len(values) == 0 {
		return summary, nil
	}

	summary.Min = floats.Min(values)
	summary.Max = floats.Max(values)
	if len(values) > 1 {
		summary.Mean, summary.StdDev = stat.MeanStdDev(values, nil)
	} else {
		summary.Mean = values[0]
	}
	return summary, nil
}

// CacheStats reports the number of memoized recomputes and the hit/miss counts
func (o *Orchestrator) CacheStats() (entries, hits, misses int) {
	return o.cache.stats()
}

// Render hands every published channel result, and the differential if
// present, to renderer. All calls see the same snapshot.
func (o *Orchestrator) Render(ctx context.Context, renderer Renderer) error {
	snap, err := o.published()
	if err != nil {
		return err
	}

	logger := o.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Render",
		"channels": len(snap.results),
	})

	labels := LabelsFor(snap.params.Mode)
	for _, result := range snap.results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := renderer.RenderSpectrogram(ctx, result, labels); err != nil {
			logger.Error(err, "Failed to render spectrogram", logging.Fields{"channel": result.Channel})
			return fmt.Errorf("render channel %d: %w", result.Channel, err)
		}
	}

	if snap.phase != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := renderer.RenderPhaseDifferential(ctx, snap.phase); err != nil {
			logger.Error(err, "Failed to render phase differential")
			return fmt.Errorf("render phase differential: %w", err)
		}
	}

	logger.Debug("Results rendered")
	return nil
}

// RenderSpectrum renders the column of channel ch under the given time
func (o *Orchestrator) RenderSpectrum(ctx context.Context, renderer Renderer, ch int, seconds float64) error {
	snap, err := o.published()
	if err != nil {
		return err
	}
	result, err := snap.channel(ch)
	if err != nil {
		return err
	}

	frame, err := mapTimeToFrame(result, seconds)
	if err != nil {
		return err
	}
	points, err := sliceSpectrum(result, frame)
	if err != nil {
		return err
	}

	return renderer.RenderSpectrum(ctx, ch, frame, points, LabelsFor(snap.params.Mode))
}
