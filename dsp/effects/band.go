package effects

import (
	"github.com/cwbudde/algo-mbdist/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

// BandParameters is the user-facing state of one distortion band.
type BandParameters struct {
	InputGainDB  float64
	Drive        float64
	OutputGainDB float64
	Bypassed     bool
}

// BandLimits bounds the values a [BandProcessor] accepts.
type BandLimits struct {
	Gain  core.Range
	Drive core.Range
}

// DefaultBandLimits returns gains of -24..+24 dB in 0.5 dB steps and drive
// 1..100 in steps of 1.
func DefaultBandLimits() BandLimits {
	return BandLimits{
		Gain:  core.Range{Min: -24, Max: 24, Default: 0, Step: 0.5},
		Drive: core.Range{Min: minWaveshaperDrive, Max: maxWaveshaperDrive, Default: minWaveshaperDrive, Step: 1},
	}
}

// Valid reports whether both ranges are usable. Drive must stay inside the
// waveshaper's own 1..100 span.
func (l BandLimits) Valid() bool {
	if !l.Gain.Valid() || !l.Drive.Valid() {
		return false
	}

	return l.Drive.Min >= minWaveshaperDrive && l.Drive.Max <= maxWaveshaperDrive
}

// Neutral returns parameters at every range's default.
func (l BandLimits) Neutral() BandParameters {
	return BandParameters{
		InputGainDB:  l.Gain.Default,
		Drive:        l.Drive.Default,
		OutputGainDB: l.Gain.Default,
	}
}

// Clamp limits p to l. NaN fields take the range default.
func (l BandLimits) Clamp(p BandParameters) BandParameters {
	return BandParameters{
		InputGainDB:  l.Gain.Clamp(p.InputGainDB),
		Drive:        l.Drive.Clamp(p.Drive),
		OutputGainDB: l.Gain.Clamp(p.OutputGainDB),
		Bypassed:     p.Bypassed,
	}
}

// BandProcessor applies pre-gain, waveshaping and post-gain to one band.
// Configure runs on the audio thread between blocks, so neither it nor
// ProcessInPlace allocates.
type BandProcessor struct {
	limits BandLimits
	params BandParameters

	preGain  float64
	postGain float64
	shaper   Waveshaper
}

// NewBandProcessor returns a processor at limits.Neutral(). Invalid limits
// fall back to [DefaultBandLimits].
func NewBandProcessor(limits BandLimits) *BandProcessor {
	if !limits.Valid() {
		limits = DefaultBandLimits()
	}

	shaper, _ := NewWaveshaper(limits.Drive.Default)

	p := &BandProcessor{limits: limits, shaper: shaper}
	p.Configure(limits.Neutral())

	return p
}

// Configure clamps and applies p.
func (p *BandProcessor) Configure(params BandParameters) {
	params = p.limits.Clamp(params)

	p.params = params
	p.preGain = core.DBToLinear(params.InputGainDB)
	p.postGain = core.DBToLinear(params.OutputGainDB)
	p.shaper = p.shaper.WithDrive(params.Drive)
}

// Parameters returns the clamped parameters in effect.
func (p *BandProcessor) Parameters() BandParameters { return p.params }

// Limits returns the ranges used for clamping.
func (p *BandProcessor) Limits() BandLimits { return p.limits }

// Bypassed reports whether ProcessInPlace leaves audio untouched.
func (p *BandProcessor) Bypassed() bool { return p.params.Bypassed }

// ProcessSample runs one sample through the band chain.
func (p *BandProcessor) ProcessSample(x float64) float64 {
	if p.params.Bypassed {
		return x
	}

	return p.shaper.ProcessSample(x*p.preGain) * p.postGain
}

// ProcessInPlace runs buf through the band chain, or leaves it untouched
// when bypassed.
func (p *BandProcessor) ProcessInPlace(buf []float64) {
	if p.params.Bypassed || len(buf) == 0 {
		return
	}

	vecmath.ScaleBlock(buf, buf, p.preGain)
	p.shaper.ProcessInPlace(buf)
	vecmath.ScaleBlock(buf, buf, p.postGain)
}
