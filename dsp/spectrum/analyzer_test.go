package spectrum

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwbudde/algo-mbdist/dsp/window"
	"github.com/cwbudde/algo-mbdist/internal/testutil"
)

const testSampleRate = 48000.0

func TestOrderSize(t *testing.T) {
	tests := []struct {
		order Order
		size  int
	}{
		{Order2048, 2048},
		{Order4096, 4096},
		{Order8192, 8192},
	}

	for _, tt := range tests {
		if got := tt.order.Size(); got != tt.size {
			t.Errorf("Order(%d).Size() = %d, want %d", tt.order, got, tt.size)
		}

		if !tt.order.Valid() {
			t.Errorf("Order(%d) should be valid", tt.order)
		}
	}

	if Order(10).Valid() || Order(14).Valid() {
		t.Fatal("orders outside 11..13 must be invalid")
	}
}

func TestNewAnalyzerRejectsInvalidOrder(t *testing.T) {
	_, err := NewAnalyzer(Order(9))
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("err = %v, want ErrInvalidOrder", err)
	}
}

func TestAnalyzer_Dimensions(t *testing.T) {
	a, err := NewAnalyzer(Order4096)
	if err != nil {
		t.Fatal(err)
	}

	if a.Size() != 4096 || a.NumBins() != 2049 || a.Order() != Order4096 {
		t.Fatalf("size=%d bins=%d order=%d", a.Size(), a.NumBins(), a.Order())
	}

	if got := a.BinFrequency(1, testSampleRate); math.Abs(got-testSampleRate/4096) > 1e-12 {
		t.Fatalf("BinFrequency(1) = %v", got)
	}

	if a.FloorDB() != DefaultFloorDB {
		t.Fatalf("FloorDB = %v, want %v", a.FloorDB(), DefaultFloorDB)
	}
}

func TestAnalyzer_FullScaleSineReadsZeroDB(t *testing.T) {
	a, err := NewAnalyzer(Order2048)
	if err != nil {
		t.Fatal(err)
	}

	const bin = 100
	freq := a.BinFrequency(bin, testSampleRate)
	sig := testutil.DeterministicSine(freq, testSampleRate, 1, 3*a.Size())

	db := a.Analyze(sig, nil)
	if len(db) != a.NumBins() {
		t.Fatalf("len(db) = %d, want %d", len(db), a.NumBins())
	}

	if got := Peak(db); got != bin {
		t.Fatalf("peak bin = %d, want %d", got, bin)
	}

	if math.Abs(db[bin]) > 0.01 {
		t.Fatalf("peak level = %.4f dB, want 0 dB", db[bin])
	}

	for k, v := range db {
		if v < DefaultFloorDB {
			t.Fatalf("db[%d] = %v below floor", k, v)
		}
	}
}

func TestAnalyzer_PeakTracksOffBinTone(t *testing.T) {
	a, err := NewAnalyzer(Order4096)
	if err != nil {
		t.Fatal(err)
	}

	for _, freq := range []float64{97, 440, 1234.5, 9876} {
		sig := testutil.DeterministicSine(freq, testSampleRate, 0.5, a.Size())
		db := a.Analyze(sig, nil)

		peak := a.BinFrequency(Peak(db), testSampleRate)
		binHz := a.BinFrequency(1, testSampleRate)

		if math.Abs(peak-freq) > binHz {
			t.Errorf("tone %.1f Hz: peak at %.1f Hz, want within one bin (%.2f Hz)", freq, peak, binHz)
		}
	}
}

func TestAnalyzer_SilenceIsFloor(t *testing.T) {
	a, err := NewAnalyzer(Order2048, WithFloorDB(-90))
	if err != nil {
		t.Fatal(err)
	}

	db := a.Analyze(make([]float64, a.Size()), nil)
	for k, v := range db {
		if v != -90 {
			t.Fatalf("db[%d] = %v, want -90", k, v)
		}
	}

	// Non-finite input behaves like silence.
	bad := []float64{math.NaN(), math.Inf(1), math.Inf(-1)}
	db = a.Analyze(bad, db)

	for k, v := range db {
		if v != -90 {
			t.Fatalf("non-finite input: db[%d] = %v, want -90", k, v)
		}
	}
}

func TestAnalyzer_MatchesGonumReference(t *testing.T) {
	a, err := NewAnalyzer(Order2048)
	if err != nil {
		t.Fatal(err)
	}

	n := a.Size()
	sig := testutil.DeterministicNoise(7, 0.8, n)

	got := a.Analyze(sig, nil)

	win := window.Generate(window.TypeBlackmanHarris4Term, n, window.WithPeriodic())
	frame := make([]float64, n)
	sum := 0.0

	for i := range frame {
		frame[i] = sig[i] * win[i]
		sum += win[i]
	}

	coeffs := fourier.NewFFT(n).Coefficients(nil, frame)
	if len(coeffs) != a.NumBins() {
		t.Fatalf("reference bins = %d, want %d", len(coeffs), a.NumBins())
	}

	last := len(coeffs) - 1

	for k, c := range coeffs {
		mag := cmplx.Abs(c) / sum
		if k > 0 && k < last {
			mag *= 2
		}

		want := math.Max(20*math.Log10(mag), DefaultFloorDB)
		if math.Abs(got[k]-want) > 1e-6 {
			t.Fatalf("bin %d: got %.9f dB, want %.9f dB", k, got[k], want)
		}
	}
}

func TestAnalyzer_ShortInputIsZeroPadded(t *testing.T) {
	a, err := NewAnalyzer(Order2048)
	if err != nil {
		t.Fatal(err)
	}

	short := testutil.DeterministicNoise(3, 0.5, 300)
	padded := make([]float64, a.Size())
	copy(padded[a.Size()-len(short):], short)

	got := a.Analyze(short, nil)
	want := a.Analyze(padded, nil)

	testutil.RequireSliceNearlyEqual(t, got, want, 0)
}

func TestAnalyzer_Smoothing(t *testing.T) {
	a, err := NewAnalyzer(Order2048, WithSmoothing(0.5))
	if err != nil {
		t.Fatal(err)
	}

	const bin = 64
	tone := testutil.DeterministicSine(a.BinFrequency(bin, testSampleRate), testSampleRate, 1, a.Size())

	first := a.Analyze(tone, nil)[bin]

	silent := a.Analyze(make([]float64, a.Size()), nil)[bin]
	want := 0.5*first + 0.5*DefaultFloorDB

	if math.Abs(silent-want) > 1e-9 {
		t.Fatalf("smoothed level = %v, want %v", silent, want)
	}

	a.Reset()

	if got := a.Analyze(make([]float64, a.Size()), nil)[bin]; got != DefaultFloorDB {
		t.Fatalf("after Reset level = %v, want floor", got)
	}
}

func TestAnalyzeReusesDestination(t *testing.T) {
	a, err := NewAnalyzer(Order2048)
	if err != nil {
		t.Fatal(err)
	}

	sig := testutil.DeterministicNoise(1, 0.5, a.Size())
	dst := make([]float64, a.NumBins(), a.NumBins()+8)

	got := a.Analyze(sig, dst)
	if &got[0] != &dst[0] {
		t.Fatal("Analyze should write into dst when it has capacity")
	}
}

func TestPeak(t *testing.T) {
	if Peak(nil) != -1 {
		t.Fatal("Peak(nil) should be -1")
	}

	if got := Peak([]float64{-3, 2, 1, 2}); got != 1 {
		t.Fatalf("Peak = %d, want 1", got)
	}
}
