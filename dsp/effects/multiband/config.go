package multiband

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-mbdist/dsp/core"
	"github.com/cwbudde/algo-mbdist/dsp/effects"
	"github.com/cwbudde/algo-mbdist/dsp/filter/crossover"
	"github.com/cwbudde/algo-mbdist/dsp/spectrum"
	"github.com/rs/zerolog"
)

// Band selects one of the three distortion bands.
type Band = crossover.Band

const (
	Low  = crossover.Low
	Mid  = crossover.Mid
	High = crossover.High

	NumBands = crossover.NumBands
)

const (
	// maxCutoffRatio keeps the mid/high split below Nyquist.
	maxCutoffRatio = 0.45
	// minCutoffSpread keeps the low/mid split at most half the mid/high one.
	minCutoffSpread = 0.5

	analysisChannels = 2
)

var (
	ErrInvalidSampleRate   = errors.New("multiband: invalid sample rate")
	ErrInvalidBlockSize    = errors.New("multiband: invalid block size")
	ErrInvalidChannelCount = errors.New("multiband: invalid channel count")
	ErrUnknownBand         = errors.New("multiband: unknown band")
	ErrInvalidConfig       = errors.New("multiband: invalid config")
)

// CrossoverFrequencies holds the two split points in Hz.
type CrossoverFrequencies struct {
	LowMid  float64
	MidHigh float64
}

// Config is the parameter table of a [Distortion].
type Config struct {
	// Bands bounds the per-band gain and drive values.
	Bands effects.BandLimits
	// LowMid and MidHigh bound the crossover frequencies.
	LowMid  core.Range
	MidHigh core.Range

	// MaxChannels caps the channel count accepted by Prepare.
	MaxChannels int
	// FifoCapacity is the number of analysis blocks buffered per channel.
	FifoCapacity int
	// FFTOrder selects the analyzer size.
	FFTOrder spectrum.Order
	// Smoothing is the analyzer's frame-to-frame averaging factor.
	Smoothing float64
	// Display maps analyzer output onto the analysis bounds.
	Display spectrum.PathGenerator
}

// DefaultConfig returns the stock ranges: gains -24..+24 dB, drive 1..100,
// low/mid 20 Hz..10 kHz (400 Hz), mid/high 40 Hz..20 kHz (2 kHz), stereo
// analysis on a 2048-point FFT. The crossover ranges overlap; the ordering
// between the two split points is enforced per request.
func DefaultConfig() Config {
	return Config{
		Bands:        effects.DefaultBandLimits(),
		LowMid:       core.Range{Min: 20, Max: 10000, Default: 400, Step: 1},
		MidHigh:      core.Range{Min: 40, Max: 20000, Default: 2000, Step: 1},
		MaxChannels:  8,
		FifoCapacity: 30,
		FFTOrder:     spectrum.Order2048,
		Display:      spectrum.DefaultPathGenerator(),
	}
}

// Validate reports the first problem with c, wrapped in [ErrInvalidConfig].
func (c Config) Validate() error {
	switch {
	case !c.Bands.Valid():
		return fmt.Errorf("%w: band limits", ErrInvalidConfig)
	case !c.LowMid.Valid() || !(c.LowMid.Min > 0):
		return fmt.Errorf("%w: low/mid range %+v", ErrInvalidConfig, c.LowMid)
	case !c.MidHigh.Valid():
		return fmt.Errorf("%w: mid/high range %+v", ErrInvalidConfig, c.MidHigh)
	case !(c.LowMid.Min <= minCutoffSpread*c.MidHigh.Max):
		return fmt.Errorf("%w: low/mid minimum must be at most half the mid/high maximum", ErrInvalidConfig)
	case c.MaxChannels <= 0:
		return fmt.Errorf("%w: max channels %d", ErrInvalidConfig, c.MaxChannels)
	case c.FifoCapacity <= 0:
		return fmt.Errorf("%w: fifo capacity %d", ErrInvalidConfig, c.FifoCapacity)
	case !c.FFTOrder.Valid():
		return fmt.Errorf("%w: fft order %d", ErrInvalidConfig, c.FFTOrder)
	case math.IsNaN(c.Smoothing) || c.Smoothing < 0 || c.Smoothing >= 1:
		return fmt.Errorf("%w: smoothing %v", ErrInvalidConfig, c.Smoothing)
	}

	return nil
}

// DefaultCrossover returns the default split points.
func (c Config) DefaultCrossover() CrossoverFrequencies {
	return CrossoverFrequencies{LowMid: c.LowMid.Default, MidHigh: c.MidHigh.Default}
}

// clampRequest limits a crossover request to the configured ranges and
// keeps LowMid at most half of MidHigh. LowMid gives way to MidHigh;
// MidHigh only moves up when LowMid is already at its minimum.
func (c Config) clampRequest(f CrossoverFrequencies) CrossoverFrequencies {
	out := CrossoverFrequencies{
		LowMid:  c.LowMid.Clamp(f.LowMid),
		MidHigh: c.MidHigh.Clamp(f.MidHigh),
	}

	if limit := minCutoffSpread * out.MidHigh; out.LowMid > limit {
		out.LowMid = math.Max(limit, c.LowMid.Min)
		out.MidHigh = math.Max(out.MidHigh, out.LowMid/minCutoffSpread)
	}

	return out
}

// effectiveCrossover adapts a clamped request to sampleRate: the mid/high
// split stays below 0.45*sampleRate and the low/mid split at most half of
// it. A non-positive sampleRate leaves f unchanged.
func effectiveCrossover(f CrossoverFrequencies, sampleRate float64) CrossoverFrequencies {
	if !(sampleRate > 0) {
		return f
	}

	f.MidHigh = math.Min(f.MidHigh, maxCutoffRatio*sampleRate)
	f.LowMid = math.Min(f.LowMid, minCutoffSpread*f.MidHigh)

	return f
}

// Option configures a [Distortion].
type Option func(*Distortion)

// WithLogger sets the logger used by the control and analysis paths.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Distortion) {
		d.logger = logger
	}
}

// WithDeltaMonitor starts the processor with the delta monitor enabled.
func WithDeltaMonitor(enabled bool) Option {
	return func(d *Distortion) {
		d.delta.Store(enabled)
	}
}
