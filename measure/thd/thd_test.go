package thd

import (
	"errors"
	"math"
	"testing"
)

func TestCalculateFromMagnitudeKnownSpectrum(t *testing.T) {
	cfg := Config{
		SampleRate:  48000,
		Fundamental: 1000,
		LowerFreq:   20,
		UpperFreq:   10000,
	}

	mag := make([]float64, 48000/2+1)
	mag[1000] = 1.0
	mag[2000] = 0.1
	mag[3000] = 0.05
	mag[4500] = 0.02 // non-harmonic noise

	res := NewCalculator(cfg).CalculateFromMagnitude(mag)

	if math.Abs(res.Fundamental-1000) > 1e-9 {
		t.Fatalf("fundamental mismatch: got %f", res.Fundamental)
	}
	if math.Abs(res.Level-1.0) > 1e-12 {
		t.Fatalf("level mismatch: got %f", res.Level)
	}
	if math.Abs(res.THD-0.15) > 1e-12 {
		t.Fatalf("THD mismatch: got %.12f want %.12f", res.THD, 0.15)
	}
	if math.Abs(res.THDN-0.17) > 1e-12 {
		t.Fatalf("THDN mismatch: got %.12f want %.12f", res.THDN, 0.17)
	}
	if math.Abs(res.Noise-0.02) > 1e-12 {
		t.Fatalf("Noise mismatch: got %.12f want %.12f", res.Noise, 0.02)
	}
	if math.Abs(res.OddHD-0.05) > 1e-12 || math.Abs(res.EvenHD-0.1) > 1e-12 {
		t.Fatalf("odd/even mismatch: got %.12f/%.12f", res.OddHD, res.EvenHD)
	}
	// Every harmonic up to 10 kHz is reported, including empty ones.
	if len(res.Harmonics) != 9 {
		t.Fatalf("harmonic count mismatch: got %d want 9", len(res.Harmonics))
	}
	if math.Abs(res.Harmonics[0]-0.1) > 1e-12 || math.Abs(res.Harmonics[1]-0.05) > 1e-12 {
		t.Fatalf("harmonics mismatch: got %+v", res.Harmonics[:2])
	}

	wantSINAD := 20 * math.Log10(1/0.17)
	if math.Abs(res.SINAD-wantSINAD) > 1e-12 {
		t.Fatalf("SINAD mismatch: got %f want %f", res.SINAD, wantSINAD)
	}
	if math.Abs(res.THDdB()-20*math.Log10(0.15)) > 1e-12 {
		t.Fatalf("THDdB mismatch: got %f", res.THDdB())
	}
}

func TestCalculateAutodetectFundamental(t *testing.T) {
	mag := make([]float64, 48000/2+1)
	mag[1000] = 0.8
	mag[1200] = 1.2
	mag[2400] = 0.1

	res := NewCalculator(Config{SampleRate: 48000, UpperFreq: 5000}).CalculateFromMagnitude(mag)
	if math.Abs(res.Fundamental-1200) > 1e-9 {
		t.Fatalf("auto fundamental mismatch: got %f", res.Fundamental)
	}
	if math.Abs(res.EvenHD-0.1/1.2) > 1e-12 {
		t.Fatalf("H2 mismatch: got %f", res.EvenHD)
	}
}

func TestCalculateCaptureBins(t *testing.T) {
	cfg := Config{
		SampleRate:  48000,
		Fundamental: 1000,
		UpperFreq:   5000,
		CaptureBins: 1,
	}

	mag := make([]float64, 48000/2+1)
	mag[999] = 0.2
	mag[1000] = 1.0
	mag[1001] = 0.2
	mag[2000] = 0.1
	mag[2001] = 0.05

	res := NewCalculator(cfg).CalculateFromMagnitude(mag)

	if math.Abs(res.Level-1.4) > 1e-12 {
		t.Fatalf("fundamental capture mismatch: got %.12f", res.Level)
	}
	if math.Abs(res.THD-(0.15/1.4)) > 1e-12 {
		t.Fatalf("THD capture mismatch: got %.12f want %.12f", res.THD, 0.15/1.4)
	}
}

func TestCalculateMaxHarmonicsAndSilence(t *testing.T) {
	mag := make([]float64, 1025)
	mag[10] = 1
	mag[30] = 0.5

	res := NewCalculator(Config{Fundamental: 10, LowerFreq: 1, MaxHarmonics: 1}).CalculateFromMagnitude(mag)
	if len(res.Harmonics) != 1 || res.THD != 0 {
		t.Fatalf("MaxHarmonics=1 should stop after H2: %+v", res)
	}

	silent := NewCalculator(Config{Fundamental: 10, LowerFreq: 1}).CalculateFromMagnitude(make([]float64, 1025))
	if silent.THD != 0 || silent.Fundamental != 10 {
		t.Fatalf("silent result = %+v", silent)
	}

	if got := NewCalculator(Config{}).CalculateFromMagnitude(nil); got.Fundamental != 0 {
		t.Fatalf("empty input result = %+v", got)
	}
}

const (
	meterRate = 48000.0
	meterSize = 8192
	meterBin  = 171
)

func meterTone(n int, shape func(float64) float64) []float64 {
	freq := meterBin * meterRate / meterSize
	out := make([]float64, n)
	for i := range out {
		out[i] = shape(math.Sin(2 * math.Pi * freq * float64(i) / meterRate))
	}
	return out
}

func newTestMeter(t *testing.T) *Meter {
	t.Helper()

	m, err := NewMeter(meterSize, Config{SampleRate: meterRate, Fundamental: meterBin * meterRate / meterSize})
	if err != nil {
		t.Fatalf("NewMeter() error = %v", err)
	}
	return m
}

func TestMeter_PureTone(t *testing.T) {
	m := newTestMeter(t)

	res, err := m.Measure(meterTone(2*meterSize, func(x float64) float64 { return 0.5 * x }))
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	if res.THD > 1e-5 {
		t.Fatalf("expected near-zero THD, got %g", res.THD)
	}
	if res.THDNdB() > -80 {
		t.Fatalf("expected THD+N below -80 dB, got %.1f", res.THDNdB())
	}
}

func TestMeter_SymmetricClipIsOdd(t *testing.T) {
	m := newTestMeter(t)

	clip := func(x float64) float64 { return math.Max(-0.5, math.Min(0.5, 3*x)) }

	res, err := m.Measure(meterTone(meterSize, clip))
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	if res.OddHD < 0.1 {
		t.Fatalf("expected strong odd harmonics, got %g", res.OddHD)
	}
	if res.EvenHD > 1e-4 {
		t.Fatalf("expected no even harmonics, got %g", res.EvenHD)
	}
}

func TestMeter_QuadraticIsEven(t *testing.T) {
	m := newTestMeter(t)

	res, err := m.Measure(meterTone(meterSize, func(x float64) float64 { return x + 0.5*x*x }))
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	// 0.5 sin^2 adds a second harmonic of amplitude 0.25.
	if math.Abs(res.EvenHD-0.25) > 1e-3 {
		t.Fatalf("EvenHD = %g, want 0.25", res.EvenHD)
	}
	if res.OddHD > 1e-4 {
		t.Fatalf("OddHD = %g, want ~0", res.OddHD)
	}
}

func TestNewMeterRejectsInvalidArguments(t *testing.T) {
	if _, err := NewMeter(1000, Config{SampleRate: 48000}); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("size 1000: err = %v", err)
	}
	if _, err := NewMeter(32, Config{SampleRate: 48000}); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("size 32: err = %v", err)
	}
	if _, err := NewMeter(1024, Config{}); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("zero rate: err = %v", err)
	}

	m, err := NewMeter(1024, Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("NewMeter() error = %v", err)
	}
	if _, err := m.Measure(make([]float64, 100)); !errors.Is(err, ErrShortSignal) {
		t.Fatalf("short signal: err = %v", err)
	}
}
