package loudness

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-mbdist/dsp/core"
	"github.com/cwbudde/algo-mbdist/internal/testutil"
)

func newTestMeter(t *testing.T, channels int) *Meter {
	t.Helper()

	m, err := NewMeter(core.WithSampleRate(48000), core.WithChannels(channels))
	if err != nil {
		t.Fatalf("NewMeter: %v", err)
	}

	return m
}

func TestMonoSine(t *testing.T) {
	m := newTestMeter(t, 1)
	sig := testutil.DeterministicSine(1000, 48000, 1, 4*48000)

	if err := m.ProcessBlock([][]float64{sig}); err != nil {
		t.Fatal(err)
	}

	// Full scale 1 kHz sine: -3.01 dB mean square, +0.66 dB K-weighting
	// gain, -0.691 offset.
	const want = -3.045

	for name, got := range map[string]float64{
		"momentary":  m.Momentary(),
		"short-term": m.ShortTerm(),
		"integrated": m.Integrated(),
	} {
		if math.Abs(got-want) > 0.01 {
			t.Errorf("%s = %.4f LUFS, want %.3f", name, got, want)
		}
	}
}

func TestStereoAddsPower(t *testing.T) {
	mono := newTestMeter(t, 1)
	stereo := newTestMeter(t, 2)
	sig := testutil.DeterministicSine(1000, 48000, 1, 4*48000)

	if err := mono.ProcessBlock([][]float64{sig}); err != nil {
		t.Fatal(err)
	}

	if err := stereo.ProcessBlock([][]float64{sig, sig}); err != nil {
		t.Fatal(err)
	}

	diff := stereo.Integrated() - mono.Integrated()
	if math.Abs(diff-10*math.Log10(2)) > 1e-6 {
		t.Errorf("stereo - mono = %.6f LU, want 3.0103", diff)
	}
}

func TestBlockSizeIndependent(t *testing.T) {
	sig := testutil.DeterministicNoise(11, 0.3, 2*48000)

	whole := newTestMeter(t, 1)
	if err := whole.ProcessBlock([][]float64{sig}); err != nil {
		t.Fatal(err)
	}

	split := newTestMeter(t, 1)
	for start := 0; start < len(sig); start += 333 {
		end := min(start+333, len(sig))
		if err := split.ProcessBlock([][]float64{sig[start:end]}); err != nil {
			t.Fatal(err)
		}
	}

	if a, b := whole.Integrated(), split.Integrated(); math.Abs(a-b) > 1e-9 {
		t.Errorf("integrated differs by block size: %v vs %v", a, b)
	}

	if a, b := whole.Momentary(), split.Momentary(); math.Abs(a-b) > 1e-9 {
		t.Errorf("momentary differs by block size: %v vs %v", a, b)
	}
}

func TestSilenceReportsFloor(t *testing.T) {
	m := newTestMeter(t, 1)

	if err := m.ProcessBlock([][]float64{make([]float64, 48000)}); err != nil {
		t.Fatal(err)
	}

	if got := m.Momentary(); got != Floor {
		t.Errorf("Momentary = %v, want %v", got, Floor)
	}

	if got := m.Integrated(); got != Floor {
		t.Errorf("Integrated = %v, want %v", got, Floor)
	}
}

func TestAbsoluteGateIgnoresQuietTail(t *testing.T) {
	m := newTestMeter(t, 1)

	loud := testutil.DeterministicSine(1000, 48000, 1, 10*48000)
	quiet := testutil.DeterministicSine(1000, 48000, 1e-4, 10*48000)

	if err := m.ProcessBlock([][]float64{loud}); err != nil {
		t.Fatal(err)
	}

	before := m.Integrated()

	if err := m.ProcessBlock([][]float64{quiet}); err != nil {
		t.Fatal(err)
	}

	if after := m.Integrated(); math.Abs(after-before) > 0.1 {
		t.Errorf("quiet tail moved integrated loudness from %v to %v", before, after)
	}

	if mom := m.Momentary(); mom > -70 {
		t.Errorf("Momentary after quiet tail = %v, want below -70", mom)
	}
}

func TestRelativeGate(t *testing.T) {
	m := newTestMeter(t, 1)

	// 20 dB below the loud part: above the absolute gate, below the
	// relative one.
	loud := testutil.DeterministicSine(1000, 48000, 0.5, 10*48000)
	soft := testutil.DeterministicSine(1000, 48000, 0.05, 10*48000)

	if err := m.ProcessBlock([][]float64{loud}); err != nil {
		t.Fatal(err)
	}

	before := m.Integrated()

	if err := m.ProcessBlock([][]float64{soft}); err != nil {
		t.Fatal(err)
	}

	if after := m.Integrated(); math.Abs(after-before) > 0.1 {
		t.Errorf("soft passage moved integrated loudness from %v to %v", before, after)
	}
}

func TestReset(t *testing.T) {
	m := newTestMeter(t, 1)

	if err := m.ProcessBlock([][]float64{testutil.DeterministicSine(1000, 48000, 1, 48000)}); err != nil {
		t.Fatal(err)
	}

	m.Reset()

	if got := m.ShortTerm(); got != Floor {
		t.Errorf("ShortTerm after Reset = %v, want %v", got, Floor)
	}

	if got := m.Integrated(); got != Floor {
		t.Errorf("Integrated after Reset = %v, want %v", got, Floor)
	}
}

func TestInvalidArguments(t *testing.T) {
	if _, err := NewMeter(core.WithSampleRate(2000)); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("sample rate 2000: err = %v", err)
	}

	m := newTestMeter(t, 2)

	if err := m.ProcessBlock([][]float64{{0}}); !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("one channel: err = %v", err)
	}

	if err := m.ProcessBlock([][]float64{{0, 0}, {0}}); !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("ragged channels: err = %v", err)
	}

	if m.Channels() != 2 {
		t.Errorf("Channels = %d, want 2", m.Channels())
	}
}
