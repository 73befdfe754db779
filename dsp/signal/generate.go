package signal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-mbdist/dsp/core"
)

// Kind names a test signal.
type Kind string

const (
	KindSine  Kind = "sine"
	KindSweep Kind = "sweep"
	KindNoise Kind = "noise"
)

// Generator renders deterministic multichannel test material. Every channel
// carries the same signal.
type Generator struct {
	cfg  core.ProcessorConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the random seed for noise.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a generator for the given sample rate and channel
// count.
func NewGenerator(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyProcessorOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Config returns the generator configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

func (g *Generator) frames(seconds float64) (int, error) {
	n := int(math.Round(seconds * g.cfg.SampleRate))
	if !(seconds > 0) || n <= 0 {
		return 0, fmt.Errorf("signal: duration must be > 0: %v s", seconds)
	}

	return n, nil
}

func (g *Generator) spread(mono []float64) [][]float64 {
	out := make([][]float64, g.cfg.Channels)
	out[0] = mono

	for ch := 1; ch < len(out); ch++ {
		out[ch] = append([]float64(nil), mono...)
	}

	return out
}

// Sine renders a sine of freqHz at levelDB dBFS.
func (g *Generator) Sine(freqHz, levelDB, seconds float64) ([][]float64, error) {
	n, err := g.frames(seconds)
	if err != nil {
		return nil, err
	}

	if !(freqHz > 0) || freqHz >= g.cfg.SampleRate/2 {
		return nil, fmt.Errorf("signal: sine frequency must be in (0, %v): %v", g.cfg.SampleRate/2, freqHz)
	}

	amp := core.DBToLinear(levelDB)
	step := 2 * math.Pi * freqHz / g.cfg.SampleRate

	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(step*float64(i))
	}

	return g.spread(out), nil
}

// Sweep renders an exponential sine sweep from f0 to f1 Hz at levelDB dBFS.
// Equal time is spent per octave, so every band of a crossover is visited.
func (g *Generator) Sweep(f0, f1, levelDB, seconds float64) ([][]float64, error) {
	n, err := g.frames(seconds)
	if err != nil {
		return nil, err
	}

	nyquist := g.cfg.SampleRate / 2
	if !(f0 > 0) || !(f1 > f0) || f1 >= nyquist {
		return nil, fmt.Errorf("signal: sweep needs 0 < f0 < f1 < %v: %v..%v", nyquist, f0, f1)
	}

	amp := core.DBToLinear(levelDB)
	rate := math.Log(f1 / f0)
	k := 2 * math.Pi * f0 * seconds / rate

	out := make([]float64, n)
	for i := range out {
		t := float64(i) / g.cfg.SampleRate
		out[i] = amp * math.Sin(k*(math.Exp(t*rate/seconds)-1))
	}

	return g.spread(out), nil
}

// Noise renders uniform white noise peaking at levelDB dBFS.
func (g *Generator) Noise(levelDB, seconds float64) ([][]float64, error) {
	n, err := g.frames(seconds)
	if err != nil {
		return nil, err
	}

	amp := core.DBToLinear(levelDB)
	rng := rand.New(rand.NewSource(g.seed))

	out := make([]float64, n)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amp
	}

	return g.spread(out), nil
}

// Generate renders kind. freqHz is the sine frequency, or the sweep end
// frequency with the sweep starting at 20 Hz.
func (g *Generator) Generate(kind Kind, freqHz, levelDB, seconds float64) ([][]float64, error) {
	switch kind {
	case KindSine:
		return g.Sine(freqHz, levelDB, seconds)
	case KindSweep:
		return g.Sweep(20, freqHz, levelDB, seconds)
	case KindNoise:
		return g.Noise(levelDB, seconds)
	default:
		return nil, fmt.Errorf("signal: unknown kind %q", kind)
	}
}
