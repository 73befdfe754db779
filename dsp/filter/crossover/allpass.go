package crossover

import (
	"fmt"

	"github.com/cwbudde/algo-mbdist/dsp/filter/biquad"
	"github.com/cwbudde/algo-mbdist/dsp/filter/design/pass"
)

// Allpass delays a signal by the phase of an LR4 split at freq without
// changing its magnitude. Bands that bypass a split run through one so that
// every band ends up phase aligned.
type Allpass struct {
	section biquad.Section
	freq    float64
	sr      float64
}

// NewAllpass creates the allpass matching an LR4 crossover at freq.
func NewAllpass(freq, sampleRate float64) (*Allpass, error) {
	a := &Allpass{sr: sampleRate}
	if err := a.SetFreq(freq); err != nil {
		return nil, err
	}

	return a, nil
}

// SetFreq retunes the allpass, keeping its state.
func (a *Allpass) SetFreq(freq float64) error {
	lr, ok := pass.LinkwitzRiley4(freq, a.sr)
	if !ok {
		return fmt.Errorf("crossover: allpass frequency must be in (0, %v), got %v", a.sr/2, freq)
	}

	a.section.Coefficients = lr.AP
	a.freq = freq

	return nil
}

// ProcessSample filters one sample.
func (a *Allpass) ProcessSample(x float64) float64 { return a.section.ProcessSample(x) }

// ProcessBlock filters buf in place.
func (a *Allpass) ProcessBlock(buf []float64) { a.section.ProcessBlock(buf) }

// ProcessBlockTo filters src into dst.
func (a *Allpass) ProcessBlockTo(dst, src []float64) {
	if len(src) == 0 {
		return
	}

	a.section.ProcessBlockTo(dst, src)
}

// Reset clears the delay line.
func (a *Allpass) Reset() { a.section.Reset() }

// Freq returns the centre frequency in Hz.
func (a *Allpass) Freq() float64 { return a.freq }

// Coefficients returns the current section coefficients.
func (a *Allpass) Coefficients() biquad.Coefficients { return a.section.Coefficients }
