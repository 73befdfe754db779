package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mbdist/dsp/core"
)

const (
	minWaveshaperDrive = 1.0
	maxWaveshaperDrive = 100.0

	defaultWaveshaperThreshold = 0.5
	defaultWaveshaperCeiling   = 1.0

	// driveScale turns the dB-style drive value into a pre-clip gain:
	// drive 1 gives ~0.11, drive 100 gives 1e4.
	driveScale = 10.0
)

// WaveshaperOption mutates construction-time waveshaper parameters.
type WaveshaperOption func(*waveshaperConfig) error

type waveshaperConfig struct {
	threshold float64
	ceiling   float64
}

// WithWaveshaperThreshold sets the clip threshold in (0, 1].
func WithWaveshaperThreshold(threshold float64) WaveshaperOption {
	return func(cfg *waveshaperConfig) error {
		if !(threshold > 0) || threshold > 1 || math.IsInf(threshold, 0) {
			return fmt.Errorf("waveshaper threshold must be in (0, 1]: %f", threshold)
		}

		cfg.threshold = threshold

		return nil
	}
}

// WithWaveshaperCeiling sets the output peak in (0, 1].
func WithWaveshaperCeiling(ceiling float64) WaveshaperOption {
	return func(cfg *waveshaperConfig) error {
		if !(ceiling > 0) || ceiling > 1 || math.IsInf(ceiling, 0) {
			return fmt.Errorf("waveshaper ceiling must be in (0, 1]: %f", ceiling)
		}

		cfg.ceiling = ceiling

		return nil
	}
}

// Waveshaper is a memoryless hard clipper:
//
//	g = 10^(drive/20) / 10
//	y = clamp(x*g, -threshold, threshold) * ceiling/threshold
//
// so |y| never exceeds the ceiling. It is a plain value; copies are
// independent and processing never allocates.
type Waveshaper struct {
	drive     float64
	gain      float64
	threshold float64
	ceiling   float64
	makeup    float64
}

// NewWaveshaper returns a shaper for drive, clamped to [1, 100].
func NewWaveshaper(drive float64, opts ...WaveshaperOption) (Waveshaper, error) {
	cfg := waveshaperConfig{
		threshold: defaultWaveshaperThreshold,
		ceiling:   defaultWaveshaperCeiling,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return Waveshaper{}, err
		}
	}

	w := Waveshaper{
		threshold: cfg.threshold,
		ceiling:   cfg.ceiling,
		makeup:    cfg.ceiling / cfg.threshold,
	}
	w.setDrive(drive)

	return w, nil
}

// WithDrive returns a copy of w using a new drive value.
func (w Waveshaper) WithDrive(drive float64) Waveshaper {
	w.setDrive(drive)
	return w
}

func (w *Waveshaper) setDrive(drive float64) {
	if math.IsNaN(drive) {
		drive = minWaveshaperDrive
	}

	w.drive = core.Clamp(drive, minWaveshaperDrive, maxWaveshaperDrive)
	w.gain = core.DBToLinear(w.drive) / driveScale
}

// ProcessSample shapes one sample.
func (w Waveshaper) ProcessSample(x float64) float64 {
	v := x * w.gain
	if v > w.threshold {
		v = w.threshold
	} else if v < -w.threshold {
		v = -w.threshold
	}

	// NaN input fails both comparisons above.
	if v != v {
		return 0
	}

	return v * w.makeup
}

// ProcessInPlace shapes buf in place.
func (w Waveshaper) ProcessInPlace(buf []float64) {
	g, t, m := w.gain, w.threshold, w.makeup

	for i, x := range buf {
		v := x * g
		switch {
		case v > t:
			v = t
		case v < -t:
			v = -t
		case v != v:
			v = 0
		}

		buf[i] = v * m
	}
}

// Drive returns the clamped drive value.
func (w Waveshaper) Drive() float64 { return w.drive }

// Gain returns the pre-clip gain derived from drive.
func (w Waveshaper) Gain() float64 { return w.gain }

// Threshold returns the clip threshold.
func (w Waveshaper) Threshold() float64 { return w.threshold }

// Ceiling returns the largest output magnitude.
func (w Waveshaper) Ceiling() float64 { return w.ceiling }
