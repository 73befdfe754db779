package multiband

import (
	"github.com/cwbudde/algo-mbdist/dsp/buffer"
	"github.com/cwbudde/algo-mbdist/dsp/spectrum"
)

// minAnalysisBlock is the smallest fifo block used for analysis.
const minAnalysisBlock = 32

// ChannelAnalysis is the spectrum of one analysed channel.
type ChannelAnalysis struct {
	// Spectrum holds one dB value per FFT bin, DC through Nyquist.
	Spectrum []float64
	// Path is Spectrum mapped onto the analysis bounds.
	Path []spectrum.Point
}

// AnalysisFrame is one update of the analyzer display. Its slices are reused
// by the next PollAnalysis call.
type AnalysisFrame struct {
	SampleRate float64
	FFTSize    int
	Bounds     spectrum.Rect
	// Channels holds channel 0 and, for multichannel input, channel 1.
	Channels  []ChannelAnalysis
	Crossover CrossoverFrequencies
	Overlay   spectrum.Overlay
}

// analysisState is owned by the analysis thread and rebuilt by Prepare.
type analysisState struct {
	display    spectrum.PathGenerator
	sampleRate float64
	block      []float64

	analyzers []*spectrum.Analyzer
	windows   []*buffer.Buffer
	channels  []ChannelAnalysis

	lastDropped uint64
}

func newAnalysisState(cfg Config, sampleRate float64, maxBlockSize int) (*analysisState, error) {
	st := &analysisState{
		display:    cfg.Display,
		sampleRate: sampleRate,
		analyzers:  make([]*spectrum.Analyzer, analysisChannels),
		windows:    make([]*buffer.Buffer, analysisChannels),
		channels:   make([]ChannelAnalysis, analysisChannels),
	}

	for ch := range st.analyzers {
		a, err := spectrum.NewAnalyzer(cfg.FFTOrder, spectrum.WithSmoothing(cfg.Smoothing))
		if err != nil {
			return nil, err
		}

		st.analyzers[ch] = a
		st.windows[ch] = buffer.New(a.Size())
		st.channels[ch].Spectrum = make([]float64, a.NumBins())
	}

	size := st.analyzers[0].Size()
	st.block = make([]float64, min(max(maxBlockSize, minAnalysisBlock), size))

	return st, nil
}

func (st *analysisState) blockSize() int { return len(st.block) }

func (st *analysisState) fftSize() int { return st.analyzers[0].Size() }

// drain moves every waiting block of f into the channel's rolling window and
// reports whether anything arrived.
func (st *analysisState) drain(ch int, f *buffer.SampleFifo) bool {
	updated := false

	for {
		n, ok := f.Pop(st.block)
		if !ok {
			return updated
		}

		st.windows[ch].Slide(st.block[:n])
		updated = true
	}
}

// SetAnalysisBounds sets the rectangle analysis paths and overlays are
// mapped onto. The default is the unit square.
func (d *Distortion) SetAnalysisBounds(bounds spectrum.Rect) {
	d.bounds.Store(&bounds)
}

// AnalysisBounds returns the current analysis rectangle.
func (d *Distortion) AnalysisBounds() spectrum.Rect { return *d.bounds.Load() }

// PollAnalysis drains the analysis fifos and, when new audio arrived since
// the last call, returns a fresh frame. It returns false before Prepare and
// when nothing new is available. Call it from one goroutine at a time.
func (d *Distortion) PollAnalysis() (AnalysisFrame, bool) {
	d.analysisMu.Lock()
	defer d.analysisMu.Unlock()

	st := d.analysis
	fifos := d.fifos.Load()

	if st == nil || fifos == nil {
		return AnalysisFrame{}, false
	}

	updated := false
	for ch, f := range fifos.channels {
		if st.drain(ch, f) {
			updated = true
		}
	}

	if dropped := fifos.dropped(); dropped > st.lastDropped {
		d.logger.Debug().
			Uint64("dropped_blocks", dropped).
			Uint64("new", dropped-st.lastDropped).
			Msg("analysis fifo overflow")

		st.lastDropped = dropped
	}

	if !updated {
		return AnalysisFrame{}, false
	}

	bounds := d.AnalysisBounds()
	active := len(fifos.channels)

	for ch := range active {
		c := &st.channels[ch]
		c.Spectrum = st.analyzers[ch].Analyze(st.windows[ch].Samples(), c.Spectrum)
		c.Path = st.display.AppendPath(c.Path[:0], c.Spectrum, st.sampleRate, bounds)
	}

	xo := d.CrossoverFrequencies()

	var drives [NumBands]float64
	for b := range drives {
		drives[b] = d.BandParameters(Band(b)).Drive
	}

	return AnalysisFrame{
		SampleRate: st.sampleRate,
		FFTSize:    st.fftSize(),
		Bounds:     bounds,
		Channels:   st.channels[:active],
		Crossover:  xo,
		Overlay:    st.display.CrossoverOverlay(xo.LowMid, xo.MidHigh, drives, bounds),
	}, true
}
