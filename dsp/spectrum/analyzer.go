package spectrum

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-mbdist/dsp/core"
	"github.com/cwbudde/algo-mbdist/dsp/window"
)

// Order is the base-2 logarithm of an analyzer FFT size.
type Order int

const (
	Order2048 Order = 11
	Order4096 Order = 12
	Order8192 Order = 13
)

// Size returns the FFT size 2^o.
func (o Order) Size() int { return 1 << uint(o) }

// Valid reports whether o is one of the supported orders.
func (o Order) Valid() bool { return o >= Order2048 && o <= Order8192 }

const (
	// DefaultFloorDB is the lowest level an analyzer reports.
	DefaultFloorDB = -72.0

	maxSmoothing = 0.95
)

// ErrInvalidOrder is returned by [NewAnalyzer] for unsupported FFT orders.
var ErrInvalidOrder = errors.New("spectrum: invalid fft order")

// AnalyzerOption configures an [Analyzer].
type AnalyzerOption func(*analyzerConfig)

type analyzerConfig struct {
	window    window.Type
	floorDB   float64
	smoothing float64
}

// WithWindow selects the analysis window. The default is the 4-term
// Blackman-Harris window.
func WithWindow(t window.Type) AnalyzerOption {
	return func(cfg *analyzerConfig) {
		cfg.window = t
	}
}

// WithFloorDB sets the level below which bins are reported as the floor.
// Non-finite values are ignored.
func WithFloorDB(db float64) AnalyzerOption {
	return func(cfg *analyzerConfig) {
		if core.IsFinite(db) {
			cfg.floorDB = db
		}
	}
}

// WithSmoothing enables exponential averaging across frames. factor is the
// weight of the previous frame, clamped to [0, 0.95]; 0 disables smoothing.
func WithSmoothing(factor float64) AnalyzerOption {
	return func(cfg *analyzerConfig) {
		if math.IsNaN(factor) {
			return
		}

		cfg.smoothing = core.Clamp(factor, 0, maxSmoothing)
	}
}

// Analyzer converts frames of mono samples into a dB magnitude spectrum.
// It owns all of its scratch memory; Analyze does not allocate once dst has
// room for [Analyzer.NumBins] values. An Analyzer is not safe for concurrent use.
type Analyzer struct {
	order     Order
	size      int
	plan      *algofft.Plan[complex128]
	window    []float64
	norm      float64
	floorDB   float64
	smoothing float64

	frame  []float64
	in     []complex128
	out    []complex128
	re, im []float64
	mag    []float64
	prev   []float64
	primed bool
}

// NewAnalyzer creates an analyzer for the given FFT order.
func NewAnalyzer(order Order, opts ...AnalyzerOption) (*Analyzer, error) {
	if !order.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOrder, order)
	}

	cfg := analyzerConfig{
		window:  window.TypeBlackmanHarris4Term,
		floorDB: DefaultFloorDB,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	size := order.Size()

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum: init fft plan: %w", err)
	}

	win := window.Generate(cfg.window, size, window.WithPeriodic())

	gain, err := window.CoherentGain(win)
	if err != nil {
		return nil, fmt.Errorf("spectrum: window %s: %w", cfg.window, err)
	}

	bins := size/2 + 1

	return &Analyzer{
		order:     order,
		size:      size,
		plan:      plan,
		window:    win,
		norm:      float64(size) * gain,
		floorDB:   cfg.floorDB,
		smoothing: cfg.smoothing,
		frame:     make([]float64, size),
		in:        make([]complex128, size),
		out:       make([]complex128, size),
		re:        make([]float64, bins),
		im:        make([]float64, bins),
		mag:       make([]float64, bins),
		prev:      make([]float64, bins),
	}, nil
}

// Order returns the FFT order.
func (a *Analyzer) Order() Order { return a.order }

// Size returns the FFT size in samples.
func (a *Analyzer) Size() int { return a.size }

// NumBins returns the number of bins Analyze produces (DC through Nyquist).
func (a *Analyzer) NumBins() int { return a.size/2 + 1 }

// FloorDB returns the reporting floor.
func (a *Analyzer) FloorDB() float64 { return a.floorDB }

// BinFrequency returns the centre frequency of bin at sampleRate.
func (a *Analyzer) BinFrequency(bin int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / float64(a.size)
}

// Reset clears the smoothing history.
func (a *Analyzer) Reset() {
	a.primed = false
	core.Zero(a.prev)
}

// Analyze computes the dB spectrum of the most recent Size() samples and
// writes NumBins() values into dst, growing it when needed. Shorter input is
// treated as preceded by silence. A full-scale sine centred on a bin reads
// 0 dB; every value is at least the floor.
func (a *Analyzer) Analyze(samples, dst []float64) []float64 {
	bins := a.NumBins()
	dst = core.EnsureLen(dst, bins)

	if len(samples) >= a.size {
		copy(a.frame, samples[len(samples)-a.size:])
	} else {
		pad := a.size - len(samples)
		core.Zero(a.frame[:pad])
		copy(a.frame[pad:], samples)
	}

	for i, s := range a.frame {
		if !core.IsFinite(s) {
			a.frame[i] = 0
		}
	}

	// Lengths always match here.
	_ = window.ApplyCoefficientsInPlace(a.frame, a.window)

	for i, s := range a.frame {
		a.in[i] = complex(s, 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		for i := range dst {
			dst[i] = a.floorDB
		}

		return dst
	}

	SplitComplex(a.re, a.im, a.out[:bins])
	MagnitudeFromParts(a.mag, a.re, a.im)

	inv := 1 / a.norm
	last := bins - 1

	for k := range a.mag {
		scale := inv
		if k > 0 && k < last {
			scale *= 2
		}

		a.mag[k] *= scale
	}

	AmplitudeToDB(dst, a.mag, a.floorDB)

	if a.smoothing > 0 {
		if a.primed {
			s := a.smoothing
			for k := range dst {
				dst[k] = s*a.prev[k] + (1-s)*dst[k]
			}
		}

		copy(a.prev, dst)
		a.primed = true
	}

	return dst
}

// Peak returns the bin with the highest level in db, or -1 for empty input.
func Peak(db []float64) int {
	best := -1
	level := math.Inf(-1)

	for k, v := range db {
		if v > level {
			best, level = k, v
		}
	}

	return best
}
