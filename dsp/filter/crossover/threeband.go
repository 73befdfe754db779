package crossover

import (
	"fmt"
	"math"
)

// Band identifies one output of a [ThreeBand] network.
type Band int

const (
	Low Band = iota
	Mid
	High

	NumBands = 3
)

func (b Band) String() string {
	switch b {
	case Low:
		return "low"
	case Mid:
		return "mid"
	case High:
		return "high"
	default:
		return fmt.Sprintf("Band(%d)", int(b))
	}
}

// Valid reports whether b names one of the three bands.
func (b Band) Valid() bool { return b >= Low && b <= High }

// ThreeBand splits a mono signal into low, mid and high bands with two LR4
// crossovers:
//
//	low  = LP(lowMid)  * AP(midHigh) * x
//	mid  = HP(lowMid)  * LP(midHigh) * x
//	high = HP(lowMid)  * HP(midHigh) * x
//
// The allpass on the low branch gives it the phase of the second split, so
// low + mid + high = AP(lowMid) * AP(midHigh) * x, which is what
// [ThreeBand.Reference] renders. One ThreeBand holds state for one channel.
type ThreeBand struct {
	lowMid  *Crossover
	midHigh *Crossover
	lowAP   *Allpass

	refLowMid  *Allpass
	refMidHigh *Allpass

	sr float64
}

// NewThreeBand creates a network with the given cutoffs. They must satisfy
// 0 < lowMid < midHigh < sampleRate/2.
func NewThreeBand(lowMid, midHigh, sampleRate float64) (*ThreeBand, error) {
	if err := validateCutoffs(lowMid, midHigh, sampleRate); err != nil {
		return nil, err
	}

	lm, err := New(lowMid, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("crossover: low/mid stage: %w", err)
	}

	mh, err := New(midHigh, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("crossover: mid/high stage: %w", err)
	}

	lowAP, err := NewAllpass(midHigh, sampleRate)
	if err != nil {
		return nil, err
	}

	refLM, err := NewAllpass(lowMid, sampleRate)
	if err != nil {
		return nil, err
	}

	refMH, err := NewAllpass(midHigh, sampleRate)
	if err != nil {
		return nil, err
	}

	return &ThreeBand{
		lowMid:     lm,
		midHigh:    mh,
		lowAP:      lowAP,
		refLowMid:  refLM,
		refMidHigh: refMH,
		sr:         sampleRate,
	}, nil
}

func validateCutoffs(lowMid, midHigh, sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("crossover: sample rate must be positive, got %v", sampleRate)
	}

	if !(lowMid > 0) || !(midHigh < sampleRate/2) {
		return fmt.Errorf("crossover: cutoffs must be in (0, %v), got %v and %v", sampleRate/2, lowMid, midHigh)
	}

	if !(lowMid < midHigh) {
		return fmt.Errorf("crossover: low/mid cutoff %v must be below mid/high cutoff %v", lowMid, midHigh)
	}

	return nil
}

// SetCutoffs retunes both splits and the compensation allpasses in place.
// Filter history is preserved and nothing is allocated. On error the
// network is left unchanged.
func (t *ThreeBand) SetCutoffs(lowMid, midHigh float64) error {
	if err := validateCutoffs(lowMid, midHigh, t.sr); err != nil {
		return err
	}

	// Both frequencies were validated above, so the setters cannot fail.
	_ = t.lowMid.SetFreq(lowMid)
	_ = t.midHigh.SetFreq(midHigh)
	_ = t.lowAP.SetFreq(midHigh)
	_ = t.refLowMid.SetFreq(lowMid)
	_ = t.refMidHigh.SetFreq(midHigh)

	return nil
}

// Cutoffs returns the current low/mid and mid/high frequencies.
func (t *ThreeBand) Cutoffs() (lowMid, midHigh float64) {
	return t.lowMid.Freq(), t.midHigh.Freq()
}

// SampleRate returns the sample rate in Hz.
func (t *ThreeBand) SampleRate() float64 { return t.sr }

// SplitSample splits a single sample.
func (t *ThreeBand) SplitSample(x float64) (low, mid, high float64) {
	lo, rest := t.lowMid.ProcessSample(x)
	mid, high = t.midHigh.ProcessSample(rest)

	return t.lowAP.ProcessSample(lo), mid, high
}

// Split writes the three bands of in to low, mid and high. Each output must
// hold at least len(in) samples and the outputs must be distinct. in is
// fully consumed before any output is written, so it may alias one of them.
func (t *ThreeBand) Split(in, low, mid, high []float64) {
	n := len(in)
	if n == 0 {
		return
	}

	low, mid, high = low[:n], mid[:n], high[:n]

	copy(high, in)
	t.lowMid.SplitInPlace(high, low)
	t.lowAP.ProcessBlock(low)
	t.midHigh.SplitInPlace(high, mid)
}

// Reference writes AP(lowMid) * AP(midHigh) * in to dst: the signal the
// band sum reproduces when every band passes through unchanged. It keeps its
// own state and must see the same input stream as Split.
func (t *ThreeBand) Reference(in, dst []float64) {
	if len(in) == 0 {
		return
	}

	t.refLowMid.ProcessBlockTo(dst, in)
	t.refMidHigh.ProcessBlock(dst[:len(in)])
}

// Reset clears every filter in the network.
func (t *ThreeBand) Reset() {
	t.lowMid.Reset()
	t.midHigh.Reset()
	t.lowAP.Reset()
	t.refLowMid.Reset()
	t.refMidHigh.Reset()
}

// Response returns the complex frequency response of band b at freq.
func (t *ThreeBand) Response(b Band, freq float64) complex128 {
	sr := t.sr

	switch b {
	case Low:
		return t.lowMid.LP().Response(freq, sr) * t.lowAP.section.Response(freq, sr)
	case Mid:
		return t.lowMid.HP().Response(freq, sr) * t.midHigh.LP().Response(freq, sr)
	case High:
		return t.lowMid.HP().Response(freq, sr) * t.midHigh.HP().Response(freq, sr)
	default:
		return 0
	}
}

// ReferenceResponse returns the response of the [ThreeBand.Reference] path.
func (t *ThreeBand) ReferenceResponse(freq float64) complex128 {
	lm := t.refLowMid.section.Response(freq, t.sr)
	mh := t.refMidHigh.section.Response(freq, t.sr)

	return lm * mh
}
