// Package thd measures harmonic distortion of a sine passed through a
// nonlinear stage.
package thd

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-mbdist/dsp/spectrum"
	"github.com/cwbudde/algo-mbdist/dsp/window"
)

const (
	defaultLowerHz = 20.0
	defaultUpperHz = 20000.0

	// blackmanHarrisLobe is the main-lobe half width of the meter window in
	// bins.
	blackmanHarrisLobe = 4

	minMeterSize = 64
)

var (
	ErrInvalidSize       = errors.New("thd: meter size must be a power of two >= 64")
	ErrInvalidSampleRate = errors.New("thd: sample rate must be positive and finite")
	ErrShortSignal       = errors.New("thd: signal shorter than meter size")
)

// Config holds measurement parameters.
type Config struct {
	SampleRate float64
	// Fundamental is the tone frequency in Hz. Zero picks the strongest bin
	// inside the range.
	Fundamental float64
	LowerFreq   float64
	UpperFreq   float64
	// CaptureBins is the number of neighbouring bins on each side summed
	// into every harmonic.
	CaptureBins  int
	MaxHarmonics int
}

// Result holds distortion ratios relative to the fundamental amplitude.
type Result struct {
	Fundamental float64
	Level       float64
	THD         float64
	THDN        float64
	OddHD       float64
	EvenHD      float64
	Noise       float64
	// Harmonics holds H2, H3, ... relative to the fundamental.
	Harmonics []float64
	SINAD     float64
}

// THDdB returns THD in dB.
func (r Result) THDdB() float64 { return ratioToDB(r.THD) }

// THDNdB returns THD+N in dB.
func (r Result) THDNdB() float64 { return ratioToDB(r.THDN) }

// Calculator evaluates distortion on amplitude spectra.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a calculator. Zero range limits select 20 Hz and
// 20 kHz.
func NewCalculator(cfg Config) *Calculator {
	if cfg.LowerFreq <= 0 {
		cfg.LowerFreq = defaultLowerHz
	}

	if cfg.UpperFreq <= 0 {
		cfg.UpperFreq = defaultUpperHz
	}

	cfg.UpperFreq = max(cfg.UpperFreq, cfg.LowerFreq)
	cfg.CaptureBins = max(cfg.CaptureBins, 0)
	cfg.MaxHarmonics = max(cfg.MaxHarmonics, 0)

	return &Calculator{cfg: cfg}
}

// CalculateFromMagnitude computes distortion from amplitude bins covering DC
// through Nyquist. Without a sample rate, bins are taken as 1 Hz apart.
func (c *Calculator) CalculateFromMagnitude(mag []float64) Result {
	if len(mag) <= 1 {
		return Result{}
	}

	cfg := c.cfg
	fftSize := 2 * (len(mag) - 1)

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = float64(fftSize)
	}

	maxBin := len(mag) - 1
	binHz := sampleRate / float64(fftSize)

	lowerBin := clampInt(int(math.Round(cfg.LowerFreq/binHz)), 1, maxBin)
	upperBin := clampInt(int(math.Round(cfg.UpperFreq/binHz)), lowerBin, maxBin)

	fund := lowerBin
	if cfg.Fundamental > 0 {
		fund = clampInt(int(math.Round(cfg.Fundamental/binHz)), lowerBin, upperBin)
	} else {
		for i := lowerBin; i <= upperBin; i++ {
			if mag[i] > mag[fund] {
				fund = i
			}
		}
	}

	capture := min(cfg.CaptureBins, fund/2)

	level := captured(mag, fund, capture)
	if level <= 0 {
		return Result{Fundamental: float64(fund) * binHz}
	}

	var thdAbs, oddAbs, evenAbs float64

	harmonics := make([]float64, 0, 8)

	for k := 2; k*fund <= upperBin; k++ {
		if cfg.MaxHarmonics > 0 && len(harmonics) >= cfg.MaxHarmonics {
			break
		}

		v := captured(mag, k*fund, capture)
		thdAbs += v

		if k%2 == 0 {
			evenAbs += v
		} else {
			oddAbs += v
		}

		harmonics = append(harmonics, v/level)
	}

	var total float64
	for i := lowerBin; i <= upperBin; i++ {
		total += math.Max(mag[i], 0)
	}

	thdnAbs := math.Max(total-level, 0)
	noiseAbs := math.Max(thdnAbs-thdAbs, 0)

	sinad := math.Inf(1)
	if thdnAbs > 0 {
		sinad = 20 * math.Log10(level/thdnAbs)
	}

	return Result{
		Fundamental: float64(fund) * binHz,
		Level:       level,
		THD:         thdAbs / level,
		THDN:        thdnAbs / level,
		OddHD:       oddAbs / level,
		EvenHD:      evenAbs / level,
		Noise:       noiseAbs / level,
		Harmonics:   harmonics,
		SINAD:       sinad,
	}
}

// Meter measures the last Size samples of a signal through a periodic
// four-term Blackman-Harris window. It reuses its buffers and is not safe
// for concurrent use.
type Meter struct {
	calc *Calculator
	size int
	plan *algofft.Plan[complex128]

	coeffs []float64
	scale  float64
	frame  []float64
	in     []complex128
	out    []complex128
	re     []float64
	im     []float64
	mag    []float64
}

// NewMeter creates a meter of size samples. A zero CaptureBins spans the
// window's main lobe.
func NewMeter(size int, cfg Config) (*Meter, error) {
	if size < minMeterSize || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	if !(cfg.SampleRate > 0) || math.IsInf(cfg.SampleRate, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, cfg.SampleRate)
	}

	if cfg.CaptureBins == 0 {
		cfg.CaptureBins = blackmanHarrisLobe
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("thd: fft plan: %w", err)
	}

	coeffs := window.Generate(window.TypeBlackmanHarris4Term, size, window.WithPeriodic())

	gain, err := window.CoherentGain(coeffs)
	if err != nil {
		return nil, fmt.Errorf("thd: %w", err)
	}

	bins := size/2 + 1

	return &Meter{
		calc:   NewCalculator(cfg),
		size:   size,
		plan:   plan,
		coeffs: coeffs,
		scale:  2 / (float64(size) * gain),
		frame:  make([]float64, size),
		in:     make([]complex128, size),
		out:    make([]complex128, size),
		re:     make([]float64, bins),
		im:     make([]float64, bins),
		mag:    make([]float64, bins),
	}, nil
}

// Size returns the measurement length in samples.
func (m *Meter) Size() int { return m.size }

// Measure analyses the last Size samples of signal.
func (m *Meter) Measure(signal []float64) (Result, error) {
	if len(signal) < m.size {
		return Result{}, fmt.Errorf("%w: %d < %d", ErrShortSignal, len(signal), m.size)
	}

	copy(m.frame, signal[len(signal)-m.size:])

	if err := window.ApplyCoefficientsInPlace(m.frame, m.coeffs); err != nil {
		return Result{}, err
	}

	for i, s := range m.frame {
		m.in[i] = complex(s, 0)
	}

	if err := m.plan.Forward(m.out, m.in); err != nil {
		return Result{}, fmt.Errorf("thd: fft: %w", err)
	}

	spectrum.SplitComplex(m.re, m.im, m.out[:len(m.mag)])
	spectrum.MagnitudeFromParts(m.mag, m.re, m.im)
	vecmath.ScaleBlock(m.mag, m.mag, m.scale)

	return m.calc.CalculateFromMagnitude(m.mag), nil
}

func captured(mag []float64, bin, capture int) float64 {
	if bin < 0 || bin >= len(mag) {
		return 0
	}

	lo := max(bin-capture, 0)
	hi := min(bin+capture, len(mag)-1)

	var sum float64
	for i := lo; i <= hi; i++ {
		sum += math.Max(mag[i], 0)
	}

	return sum
}

func ratioToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(v)
}

func clampInt(val, lo, hi int) int {
	return max(lo, min(val, hi))
}
