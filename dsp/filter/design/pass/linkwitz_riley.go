package pass

import "github.com/cwbudde/algo-mbdist/dsp/filter/biquad"

// LR4 holds one section of each fourth-order Linkwitz-Riley branch plus the
// matching allpass. The LP and HP branches are the section applied twice.
//
// LP^2 + HP^2 equals AP exactly under the bilinear transform, so AP is what
// the crossover sum looks like to any band that skipped this split.
type LR4 struct {
	LP biquad.Coefficients
	HP biquad.Coefficients
	AP biquad.Coefficients
}

// LinkwitzRiley4 designs an [LR4] crossover point without allocating.
// ok is false when freq is outside (0, Nyquist).
func LinkwitzRiley4(freq, sampleRate float64) (LR4, bool) {
	if _, ok := normalizedW0(freq, sampleRate); !ok {
		return LR4{}, false
	}

	return LR4{
		LP: LowpassRBJ(freq, defaultQ, sampleRate),
		HP: HighpassRBJ(freq, defaultQ, sampleRate),
		AP: AllpassRBJ(freq, defaultQ, sampleRate),
	}, true
}
