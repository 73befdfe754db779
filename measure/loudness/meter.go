// Package loudness measures programme loudness after ITU-R BS.1770:
// K-weighted mean square over 400 ms and 3 s windows, and gated integrated
// loudness.
package loudness

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-mbdist/dsp/core"
	"github.com/cwbudde/algo-mbdist/dsp/filter/biquad"
	"github.com/cwbudde/algo-mbdist/dsp/filter/design/pass"
)

const (
	shelfHz     = 1500.0
	shelfGainDB = 4.0
	shelfQ      = 1 / math.Sqrt2
	highpassHz  = 38.0
	highpassQ   = 0.5

	momentarySeconds = 0.4
	shortTermSeconds = 3.0
	// Gating blocks overlap by 75%.
	blockStepSeconds = 0.1

	absoluteGate = -70.0
	relativeGate = -10.0

	// Floor is reported when there is no measurable signal.
	Floor = -120.0
)

var (
	ErrInvalidSampleRate = errors.New("loudness: sample rate must exceed twice the shelf frequency")
	ErrInvalidChannels   = errors.New("loudness: channel count must be positive")
	ErrChannelMismatch   = errors.New("loudness: channel count mismatch")
)

// Meter accumulates loudness over planar blocks. All channels are weighted
// equally. It is not safe for concurrent use.
type Meter struct {
	cfg core.ProcessorConfig

	shelf    []*biquad.Section
	highpass []*biquad.Section
	weighted [][]float64

	momentary slidingPower
	shortTerm slidingPower

	blockStep int
	sinceStep int
	blocks    []float64
}

// NewMeter creates a meter. Sample rate and channel count come from opts.
func NewMeter(opts ...core.ProcessorOption) (*Meter, error) {
	cfg := core.ApplyProcessorOptions(opts...)

	if cfg.SampleRate <= 2*shelfHz {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, cfg.SampleRate)
	}

	if cfg.Channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, cfg.Channels)
	}

	shelf := pass.HighShelfRBJ(shelfHz, shelfGainDB, shelfQ, cfg.SampleRate)
	highpass := pass.HighpassRBJ(highpassHz, highpassQ, cfg.SampleRate)

	m := &Meter{
		cfg:       cfg,
		shelf:     make([]*biquad.Section, cfg.Channels),
		highpass:  make([]*biquad.Section, cfg.Channels),
		weighted:  make([][]float64, cfg.Channels),
		momentary: newSlidingPower(int(math.Round(momentarySeconds * cfg.SampleRate))),
		shortTerm: newSlidingPower(int(math.Round(shortTermSeconds * cfg.SampleRate))),
		blockStep: max(int(math.Round(blockStepSeconds*cfg.SampleRate)), 1),
	}

	for ch := range cfg.Channels {
		m.shelf[ch] = biquad.NewSection(shelf)
		m.highpass[ch] = biquad.NewSection(highpass)
	}

	return m, nil
}

// Channels returns the expected channel count.
func (m *Meter) Channels() int { return m.cfg.Channels }

// Reset clears filter state, windows and gating history.
func (m *Meter) Reset() {
	for ch := range m.shelf {
		m.shelf[ch].Reset()
		m.highpass[ch].Reset()
	}

	m.momentary.reset()
	m.shortTerm.reset()
	m.sinceStep = 0
	m.blocks = m.blocks[:0]
}

// ProcessBlock K-weights one block of planar channels and advances the
// windows. Channels shorter than the first are not allowed.
func (m *Meter) ProcessBlock(channels [][]float64) error {
	if len(channels) != m.cfg.Channels {
		return fmt.Errorf("%w: got %d, want %d", ErrChannelMismatch, len(channels), m.cfg.Channels)
	}

	frames := len(channels[0])

	for ch, x := range channels {
		if len(x) != frames {
			return fmt.Errorf("%w: channel %d has %d frames, want %d", ErrChannelMismatch, ch, len(x), frames)
		}

		m.weighted[ch] = core.EnsureLen(m.weighted[ch], frames)
		m.shelf[ch].ProcessBlockTo(m.weighted[ch], x)
		m.highpass[ch].ProcessBlock(m.weighted[ch])
	}

	for i := range frames {
		var power float64
		for ch := range m.weighted {
			y := m.weighted[ch][i]
			power += y * y
		}

		m.momentary.push(power)
		m.shortTerm.push(power)

		if !m.momentary.full() {
			continue
		}

		if m.sinceStep == 0 {
			m.blocks = append(m.blocks, m.momentary.meanSquare())
		}

		m.sinceStep = (m.sinceStep + 1) % m.blockStep
	}

	return nil
}

// Momentary returns the loudness of the last 400 ms in LUFS.
func (m *Meter) Momentary() float64 { return toLUFS(m.momentary.meanSquare()) }

// ShortTerm returns the loudness of the last 3 s in LUFS.
func (m *Meter) ShortTerm() float64 { return toLUFS(m.shortTerm.meanSquare()) }

// Integrated returns the gated loudness since Reset in LUFS. Blocks below
// -70 LUFS are dropped, then blocks more than 10 LU under the remaining
// mean.
func (m *Meter) Integrated() float64 {
	var (
		sum float64
		n   int
	)

	for _, b := range m.blocks {
		if toLUFS(b) > absoluteGate {
			sum += b
			n++
		}
	}

	if n == 0 {
		return Floor
	}

	gate := toLUFS(sum/float64(n)) + relativeGate
	sum, n = 0, 0

	for _, b := range m.blocks {
		if l := toLUFS(b); l > absoluteGate && l > gate {
			sum += b
			n++
		}
	}

	if n == 0 {
		return Floor
	}

	return toLUFS(sum / float64(n))
}

func toLUFS(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return Floor
	}

	return max(-0.691+core.LinearPowerToDB(meanSquare), Floor)
}

// slidingPower is a running sum over the last len(hist) power values.
type slidingPower struct {
	hist   []float64
	pos    int
	filled int
	sum    float64
}

func newSlidingPower(n int) slidingPower {
	return slidingPower{hist: make([]float64, max(n, 1))}
}

func (s *slidingPower) push(v float64) {
	s.sum += v - s.hist[s.pos]
	// Rounding can leave a tiny negative residue after silence.
	if s.sum < 0 {
		s.sum = 0
	}

	s.hist[s.pos] = v
	s.pos = (s.pos + 1) % len(s.hist)

	if s.filled < len(s.hist) {
		s.filled++
	}
}

func (s *slidingPower) full() bool { return s.filled == len(s.hist) }

func (s *slidingPower) meanSquare() float64 { return s.sum / float64(len(s.hist)) }

func (s *slidingPower) reset() {
	core.Zero(s.hist)
	s.pos = 0
	s.filled = 0
	s.sum = 0
}
