package crossover

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mbdist/dsp/filter/biquad"
	"github.com/cwbudde/algo-mbdist/dsp/filter/design/pass"
)

// Crossover is a two-way fourth-order Linkwitz-Riley split. Its lowpass and
// highpass outputs sum to the second-order allpass returned by [Crossover.Allpass].
type Crossover struct {
	lp   *biquad.Chain
	hp   *biquad.Chain
	ap   biquad.Coefficients
	freq float64
	sr   float64
}

// New creates an LR4 crossover at freq. freq must lie in (0, sampleRate/2).
func New(freq, sampleRate float64) (*Crossover, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("crossover: sample rate must be positive, got %v", sampleRate)
	}

	lr, ok := pass.LinkwitzRiley4(freq, sampleRate)
	if !ok {
		return nil, fmt.Errorf("crossover: frequency must be in (0, %v), got %v", sampleRate/2, freq)
	}

	return &Crossover{
		lp:   biquad.NewChain([]biquad.Coefficients{lr.LP, lr.LP}),
		hp:   biquad.NewChain([]biquad.Coefficients{lr.HP, lr.HP}),
		ap:   lr.AP,
		freq: freq,
		sr:   sampleRate,
	}, nil
}

// SetFreq moves the crossover point. Filter history is kept and nothing is
// allocated, so it is safe to call between audio blocks.
func (c *Crossover) SetFreq(freq float64) error {
	lr, ok := pass.LinkwitzRiley4(freq, c.sr)
	if !ok {
		return fmt.Errorf("crossover: frequency must be in (0, %v), got %v", c.sr/2, freq)
	}

	lp := [2]biquad.Coefficients{lr.LP, lr.LP}
	hp := [2]biquad.Coefficients{lr.HP, lr.HP}
	c.lp.UpdateCoefficients(lp[:])
	c.hp.UpdateCoefficients(hp[:])

	c.ap = lr.AP
	c.freq = freq

	return nil
}

// ProcessSample returns the lowpass and highpass outputs for x.
func (c *Crossover) ProcessSample(x float64) (lo, hi float64) {
	return c.lp.ProcessSample(x), c.hp.ProcessSample(x)
}

// ProcessBlock writes the lowpass of input to lo and the highpass to hi.
// lo and hi must be at least len(input) long and must not alias input.
func (c *Crossover) ProcessBlock(input, lo, hi []float64) {
	if len(input) == 0 {
		return
	}

	c.lp.ProcessBlockTo(lo, input)
	c.hp.ProcessBlockTo(hi, input)
}

// SplitInPlace writes the lowpass of buf to lo and replaces buf with its
// highpass.
func (c *Crossover) SplitInPlace(buf, lo []float64) {
	if len(buf) == 0 {
		return
	}

	c.lp.ProcessBlockTo(lo, buf)
	c.hp.ProcessBlock(buf)
}

// Reset clears both branches.
func (c *Crossover) Reset() {
	c.lp.Reset()
	c.hp.Reset()
}

// LP returns the lowpass cascade.
func (c *Crossover) LP() *biquad.Chain { return c.lp }

// HP returns the highpass cascade.
func (c *Crossover) HP() *biquad.Chain { return c.hp }

// Allpass returns the allpass equal to LP + HP.
func (c *Crossover) Allpass() biquad.Coefficients { return c.ap }

// Freq returns the crossover frequency in Hz.
func (c *Crossover) Freq() float64 { return c.freq }

// SampleRate returns the sample rate in Hz.
func (c *Crossover) SampleRate() float64 { return c.sr }
