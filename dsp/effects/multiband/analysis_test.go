package multiband

import (
	"bytes"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-mbdist/dsp/effects"
	"github.com/cwbudde/algo-mbdist/dsp/spectrum"
	"github.com/cwbudde/algo-mbdist/internal/testutil"
)

func peakPoint(path []spectrum.Point) spectrum.Point {
	best := path[0]
	for _, p := range path[1:] {
		if p.Y < best.Y {
			best = p
		}
	}

	return best
}

func TestDistortion_PollAnalysisPeakTracksTone(t *testing.T) {
	d := newPrepared(t, 2)
	bounds := spectrum.Rect{X: 0, Y: 0, Width: 800, Height: 300}
	d.SetAnalysisBounds(bounds)
	assert.Equal(t, bounds, d.AnalysisBounds())

	_, ok := d.PollAnalysis()
	require.False(t, ok, "no audio yet")

	const tone = 1000.0

	buf := testutil.Channels(testutil.DeterministicSine(tone, testRate, 0.5, 4096), 2)
	processInBlocks(d, buf, testBlock)

	frame, ok := d.PollAnalysis()
	require.True(t, ok)

	assert.Equal(t, testRate, frame.SampleRate)
	assert.Equal(t, 2048, frame.FFTSize)
	assert.Equal(t, bounds, frame.Bounds)
	require.Len(t, frame.Channels, 2)

	binHz := testRate / float64(frame.FFTSize)
	display := d.Config().Display

	for ch, c := range frame.Channels {
		require.Len(t, c.Spectrum, frame.FFTSize/2+1, "channel %d", ch)
		require.NotEmpty(t, c.Path, "channel %d", ch)

		for i, p := range c.Path {
			require.True(t, bounds.Contains(p), "channel %d point %d outside bounds", ch, i)

			if i > 0 {
				require.Greater(t, p.X, c.Path[i-1].X)
			}
		}

		peak := display.XToFreq(peakPoint(c.Path).X, bounds)
		assert.InDelta(t, tone, peak, binHz, "channel %d peak at %.1f Hz", ch, peak)
	}

	_, ok = d.PollAnalysis()
	assert.False(t, ok, "nothing new since the last poll")
}

func TestDistortion_PollAnalysisMonoHasOneChannel(t *testing.T) {
	d := newPrepared(t, 1)

	d.Process([][]float64{testutil.DeterministicNoise(1, 0.5, 2048)})

	frame, ok := d.PollAnalysis()
	require.True(t, ok)
	assert.Len(t, frame.Channels, 1)
}

func TestDistortion_PollAnalysisOverlay(t *testing.T) {
	d := newPrepared(t, 2)
	bounds := spectrum.Rect{X: 20, Y: 10, Width: 600, Height: 200}
	d.SetAnalysisBounds(bounds)
	d.SetCrossoverFrequencies(250, 4000)
	require.NoError(t, d.SetBandParameters(Mid, effects.BandParameters{Drive: 63}))

	d.Process(testutil.Channels(testutil.DeterministicNoise(2, 0.5, testBlock), 2))

	frame, ok := d.PollAnalysis()
	require.True(t, ok)

	display := d.Config().Display

	assert.Equal(t, CrossoverFrequencies{LowMid: 250, MidHigh: 4000}, frame.Crossover)
	assert.InDelta(t, 250, display.XToFreq(frame.Overlay.Crossovers[0].From.X, bounds), 1e-6)
	assert.InDelta(t, 4000, display.XToFreq(frame.Overlay.Crossovers[1].From.X, bounds), 1e-6)

	wantY := display.DBToY(spectrum.DriveLevel(63), bounds)
	assert.InDelta(t, wantY, frame.Overlay.Drives[Mid].From.Y, 1e-9)

	lowY := display.DBToY(spectrum.DriveLevel(1), bounds)
	assert.InDelta(t, lowY, frame.Overlay.Drives[Low].From.Y, 1e-9)
}

func TestDistortion_PollAnalysisLogsDroppedBlocks(t *testing.T) {
	var logs bytes.Buffer

	d, err := New(DefaultConfig(), WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)))
	require.NoError(t, err)
	require.NoError(t, d.Prepare(testRate, testBlock, 1))
	assert.Contains(t, logs.String(), "multiband distortion prepared")

	buf := [][]float64{testutil.DeterministicNoise(6, 0.5, testBlock)}
	for range d.Config().FifoCapacity + 3 {
		d.Process(buf)
	}

	_, ok := d.PollAnalysis()
	require.True(t, ok)
	assert.Contains(t, logs.String(), "analysis fifo overflow")
	assert.Equal(t, uint64(3), d.Stats().DroppedBlocks)
}

func TestDistortion_CrossoverClampIsLogged(t *testing.T) {
	var logs bytes.Buffer

	d, err := New(DefaultConfig(), WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)))
	require.NoError(t, err)

	d.SetCrossoverFrequencies(400, 2000)
	assert.NotContains(t, logs.String(), "clamped")

	d.SetCrossoverFrequencies(5, 2000)
	assert.Contains(t, logs.String(), "crossover frequencies clamped")
}

func TestDistortion_AnalysisRunsConcurrentlyWithProcess(t *testing.T) {
	d := newPrepared(t, 2)
	sig := testutil.DeterministicSine(440, testRate, 0.5, testBlock)

	var wg sync.WaitGroup

	done := make(chan struct{})

	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			if frame, ok := d.PollAnalysis(); ok {
				for _, c := range frame.Channels {
					for _, v := range c.Spectrum {
						if math.IsNaN(v) {
							t.Error("NaN in spectrum")
							return
						}
					}
				}
			}

			select {
			case <-done:
				return
			default:
			}
		}
	}()

	buf := testutil.Channels(sig, 2)
	for i := range 400 {
		d.Process(buf)

		if i%50 == 0 {
			d.SetCrossoverFrequencies(300+float64(i), 2500)
		}
	}

	close(done)
	wg.Wait()

	// A final poll always sees whatever the last blocks left behind.
	d.PollAnalysis()

	st := d.Stats()
	assert.Equal(t, uint64(400), st.ProcessedBlocks)
	testutil.RequireFinite(t, buf[0])
}
