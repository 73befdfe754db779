package multiband

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-mbdist/dsp/buffer"
	"github.com/cwbudde/algo-mbdist/dsp/effects"
	"github.com/cwbudde/algo-mbdist/dsp/filter/crossover"
	"github.com/cwbudde/algo-mbdist/dsp/spectrum"
	"github.com/cwbudde/algo-vecmath"
	"github.com/rs/zerolog"
)

// Stats reports counters of a running [Distortion].
type Stats struct {
	// ProcessedBlocks counts non-empty Process calls since Prepare.
	ProcessedBlocks uint64
	// DroppedBlocks counts analysis blocks discarded because a fifo was full.
	DroppedBlocks uint64
}

// streamFormat is the immutable result of a successful Prepare.
type streamFormat struct {
	sampleRate   float64
	maxBlockSize int
	channels     int
}

// Distortion is a three-band distortion processor. See the package
// documentation for the threading contract.
type Distortion struct {
	cfg    Config
	logger zerolog.Logger

	// Published by control threads, consumed by the audio thread.
	bands     [NumBands]atomic.Pointer[effects.BandParameters]
	crossover atomic.Pointer[CrossoverFrequencies]
	delta     atomic.Bool

	format    atomic.Pointer[streamFormat]
	fifos     atomic.Pointer[fifoSet]
	processed atomic.Uint64

	// Audio thread state, rebuilt by Prepare.
	procs       [NumBands]*effects.BandProcessor
	appliedBand [NumBands]*effects.BandParameters
	appliedXO   *CrossoverFrequencies
	splitters   []*crossover.ThreeBand
	low         []float64
	mid         []float64
	high        []float64
	ref         []float64

	// Analysis thread state.
	analysisMu sync.Mutex
	analysis   *analysisState
	bounds     atomic.Pointer[spectrum.Rect]
}

// New creates an unprepared processor. Every band starts at the neutral
// parameters of cfg.Bands and the crossovers at their defaults.
func New(cfg Config, opts ...Option) (*Distortion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Distortion{
		cfg:    cfg,
		logger: zerolog.Nop(),
	}

	for i := range d.bands {
		neutral := cfg.Bands.Neutral()
		d.bands[i].Store(&neutral)
		d.procs[i] = effects.NewBandProcessor(cfg.Bands)
	}

	xo := cfg.DefaultCrossover()
	d.crossover.Store(&xo)
	d.bounds.Store(&spectrum.Rect{Width: 1, Height: 1})

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	return d, nil
}

// Config returns the parameter table.
func (d *Distortion) Config() Config { return d.cfg }

// Prepare allocates per-channel filter state, band scratch buffers and the
// analysis pipeline. Filter history is cleared. Arguments are validated
// before anything is allocated; on error the previous preparation stays in
// effect.
func (d *Distortion) Prepare(sampleRate float64, maxBlockSize, numChannels int) error {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("multiband: prepare: %w: %v", ErrInvalidSampleRate, sampleRate)
	}

	if maxBlockSize <= 0 {
		return fmt.Errorf("multiband: prepare: %w: %d", ErrInvalidBlockSize, maxBlockSize)
	}

	if numChannels <= 0 || numChannels > d.cfg.MaxChannels {
		return fmt.Errorf("multiband: prepare: %w: %d (max %d)", ErrInvalidChannelCount, numChannels, d.cfg.MaxChannels)
	}

	xo := d.crossover.Load()
	eff := effectiveCrossover(*xo, sampleRate)

	splitters := make([]*crossover.ThreeBand, numChannels)
	for ch := range splitters {
		tb, err := crossover.NewThreeBand(eff.LowMid, eff.MidHigh, sampleRate)
		if err != nil {
			return fmt.Errorf("multiband: prepare channel %d: %w", ch, err)
		}

		splitters[ch] = tb
	}

	analysis, err := newAnalysisState(d.cfg, sampleRate, maxBlockSize)
	if err != nil {
		return fmt.Errorf("multiband: prepare analysis: %w", err)
	}

	fifos, err := newFifoSet(min(numChannels, analysisChannels), d.cfg.FifoCapacity, analysis.blockSize())
	if err != nil {
		return fmt.Errorf("multiband: prepare analysis: %w", err)
	}

	d.splitters = splitters
	d.low = make([]float64, maxBlockSize)
	d.mid = make([]float64, maxBlockSize)
	d.high = make([]float64, maxBlockSize)
	d.ref = make([]float64, maxBlockSize)
	d.appliedXO = xo

	for i := range d.bands {
		p := d.bands[i].Load()
		d.procs[i].Configure(*p)
		d.appliedBand[i] = p
	}

	d.analysisMu.Lock()
	d.analysis = analysis
	d.fifos.Store(fifos)
	d.analysisMu.Unlock()

	d.processed.Store(0)
	d.format.Store(&streamFormat{sampleRate: sampleRate, maxBlockSize: maxBlockSize, channels: numChannels})

	d.logger.Info().
		Float64("sample_rate", sampleRate).
		Int("max_block_size", maxBlockSize).
		Int("channels", numChannels).
		Int("fft_size", analysis.fftSize()).
		Float64("low_mid_hz", eff.LowMid).
		Float64("mid_high_hz", eff.MidHigh).
		Msg("multiband distortion prepared")

	return nil
}

// Prepared reports whether Prepare has succeeded at least once.
func (d *Distortion) Prepared() bool { return d.format.Load() != nil }

// SampleRate returns the prepared sample rate, or 0 before Prepare.
func (d *Distortion) SampleRate() float64 {
	if sf := d.format.Load(); sf != nil {
		return sf.sampleRate
	}

	return 0
}

// Process distorts buf in place. Channels beyond the prepared count are left
// untouched; blocks longer than the prepared maximum are processed in
// chunks. Calls before Prepare are no-ops, as are empty buffers and ragged
// ones whose processed channels differ in length.
func (d *Distortion) Process(buf [][]float64) {
	sf := d.format.Load()
	if sf == nil || len(buf) == 0 {
		return
	}

	channels := min(len(buf), sf.channels)

	n := len(buf[0])
	for ch := 1; ch < channels; ch++ {
		if len(buf[ch]) != n {
			return
		}
	}

	if n == 0 {
		return
	}

	d.applyPending(sf.sampleRate)

	delta := d.delta.Load()
	fifos := d.fifos.Load()

	for start := 0; start < n; start += sf.maxBlockSize {
		end := min(start+sf.maxBlockSize, n)

		for ch := range channels {
			block := buf[ch][start:end]

			fifos.push(ch, block)
			d.processChannel(d.splitters[ch], block, delta)
		}
	}

	d.processed.Add(1)
}

// applyPending reconfigures bands and crossovers whose snapshots changed.
func (d *Distortion) applyPending(sampleRate float64) {
	for i := range d.bands {
		p := d.bands[i].Load()
		if p == d.appliedBand[i] {
			continue
		}

		d.procs[i].Configure(*p)
		d.appliedBand[i] = p
	}

	xo := d.crossover.Load()
	if xo == d.appliedXO {
		return
	}

	eff := effectiveCrossover(*xo, sampleRate)
	for _, s := range d.splitters {
		// eff satisfies the splitter's cutoff rules by construction.
		_ = s.SetCutoffs(eff.LowMid, eff.MidHigh)
	}

	d.appliedXO = xo
}

func (d *Distortion) processChannel(split *crossover.ThreeBand, block []float64, delta bool) {
	n := len(block)
	low, mid, high, ref := d.low[:n], d.mid[:n], d.high[:n], d.ref[:n]

	// The reference runs every block so its filter history is current
	// whenever the delta monitor is switched on.
	split.Reference(block, ref)
	split.Split(block, low, mid, high)

	d.procs[Low].ProcessInPlace(low)
	d.procs[Mid].ProcessInPlace(mid)
	d.procs[High].ProcessInPlace(high)

	copy(block, low)
	vecmath.AddBlockInPlace(block, mid)
	vecmath.AddBlockInPlace(block, high)

	if delta {
		vecmath.ScaleBlock(ref, ref, -1)
		vecmath.AddBlockInPlace(block, ref)
	}
}

// SetBandParameters publishes new parameters for band. Values are clamped to
// the configured limits; the audio thread applies them on its next block.
func (d *Distortion) SetBandParameters(band Band, p effects.BandParameters) error {
	if !band.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownBand, int(band))
	}

	clamped := d.cfg.Bands.Clamp(p)
	d.bands[band].Store(&clamped)

	return nil
}

// BandParameters returns the clamped parameters last published for band.
// Unknown bands yield the neutral parameters.
func (d *Distortion) BandParameters(band Band) effects.BandParameters {
	if !band.Valid() {
		return d.cfg.Bands.Neutral()
	}

	return *d.bands[band].Load()
}

// SetCrossoverFrequencies publishes new split points. They are clamped to
// the configured ranges and, once prepared, to the sample rate: mid/high at
// most 0.45*sampleRate and low/mid at most half of mid/high.
func (d *Distortion) SetCrossoverFrequencies(lowMid, midHigh float64) {
	req := CrossoverFrequencies{LowMid: lowMid, MidHigh: midHigh}
	clamped := d.cfg.clampRequest(req)
	d.crossover.Store(&clamped)

	if eff := effectiveCrossover(clamped, d.SampleRate()); eff != req {
		d.logger.Debug().
			Float64("low_mid_requested", lowMid).
			Float64("mid_high_requested", midHigh).
			Float64("low_mid_hz", eff.LowMid).
			Float64("mid_high_hz", eff.MidHigh).
			Msg("crossover frequencies clamped")
	}
}

// CrossoverFrequencies returns the split points in effect, after clamping
// to the prepared sample rate.
func (d *Distortion) CrossoverFrequencies() CrossoverFrequencies {
	return effectiveCrossover(*d.crossover.Load(), d.SampleRate())
}

// SetDeltaMonitor switches the delta monitor. When on, the allpass-aligned
// dry signal is subtracted from the output so only what the distortion adds
// remains; with every band bypassed the output is silent.
func (d *Distortion) SetDeltaMonitor(enabled bool) { d.delta.Store(enabled) }

// DeltaMonitor reports whether the delta monitor is on.
func (d *Distortion) DeltaMonitor() bool { return d.delta.Load() }

// Stats returns the processing counters.
func (d *Distortion) Stats() Stats {
	s := Stats{ProcessedBlocks: d.processed.Load()}
	if f := d.fifos.Load(); f != nil {
		s.DroppedBlocks = f.dropped()
	}

	return s
}

// fifoSet is the group of analysis fifos for one preparation. Prepare swaps
// the whole set so the analysis thread never sees a half-built one.
type fifoSet struct {
	channels []*buffer.SampleFifo
}

func newFifoSet(channels, capacity, blockSize int) (*fifoSet, error) {
	set := &fifoSet{channels: make([]*buffer.SampleFifo, channels)}

	for ch := range set.channels {
		f, err := buffer.NewSampleFifo(blockSize, capacity)
		if err != nil {
			return nil, err
		}

		set.channels[ch] = f
	}

	return set, nil
}

func (s *fifoSet) push(ch int, samples []float64) {
	if ch < len(s.channels) {
		s.channels[ch].Push(samples)
	}
}

func (s *fifoSet) dropped() uint64 {
	var total uint64
	for _, f := range s.channels {
		total += f.Dropped()
	}

	return total
}
