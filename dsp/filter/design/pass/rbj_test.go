package pass

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-mbdist/dsp/filter/biquad"
)

func TestRBJ_CornerGains(t *testing.T) {
	const sr = 48000.0

	for _, f := range []float64{20, 400, 2000, 15000} {
		lp := LowpassRBJ(f, defaultQ, sr)
		hp := HighpassRBJ(f, defaultQ, sr)

		assertStableSection(t, lp)
		assertStableSection(t, hp)

		if db := lp.MagnitudeDB(f, sr); !almostEqual(db, -3.0103, 1e-3) {
			t.Errorf("LP %v Hz corner = %v dB, want -3.01", f, db)
		}

		if db := hp.MagnitudeDB(f, sr); !almostEqual(db, -3.0103, 1e-3) {
			t.Errorf("HP %v Hz corner = %v dB, want -3.01", f, db)
		}

		if g := lp.MagnitudeDB(0, sr); !almostEqual(g, 0, 1e-9) {
			t.Errorf("LP %v Hz DC gain = %v dB", f, g)
		}
	}
}

func TestAllpassRBJ_UnitMagnitude(t *testing.T) {
	ap := AllpassRBJ(1000, defaultQ, 48000)
	assertStableSection(t, ap)

	for _, f := range []float64{10, 100, 1000, 5000, 23000} {
		if m := cmplx.Abs(ap.Response(f, 48000)); !almostEqual(m, 1, 1e-12) {
			t.Errorf("|AP(%v)| = %v, want 1", f, m)
		}
	}

	// Phase is -pi at the centre frequency.
	if p := math.Abs(cmplx.Phase(ap.Response(1000, 48000))); !almostEqual(p, math.Pi, 1e-9) {
		t.Errorf("|phase(AP(fc))| = %v, want pi", p)
	}
}

func TestRBJ_InvalidFrequencyReturnsZero(t *testing.T) {
	for _, f := range []float64{0, -5, 24000, 30000, math.NaN()} {
		if c := LowpassRBJ(f, defaultQ, 48000); c.B0 != 0 || c.A1 != 0 {
			t.Errorf("LowpassRBJ(%v) = %#v, want zero", f, c)
		}
	}

	if c := AllpassRBJ(1000, defaultQ, 0); c.B0 != 0 {
		t.Errorf("AllpassRBJ with sr=0 = %#v, want zero", c)
	}
}

func TestNormalizedQ_Fallback(t *testing.T) {
	a := LowpassRBJ(1000, 0, 48000)
	b := LowpassRBJ(1000, defaultQ, 48000)

	if a != b {
		t.Fatalf("q=0 should fall back to Butterworth Q: %#v vs %#v", a, b)
	}
}

func TestHighShelfRBJ_Plateaus(t *testing.T) {
	const sr = 48000.0

	for _, gain := range []float64{-6, 4, 12} {
		hs := HighShelfRBJ(1500, gain, defaultQ, sr)
		assertStableSection(t, hs)

		if db := hs.MagnitudeDB(0, sr); !almostEqual(db, 0, 1e-9) {
			t.Errorf("gain %v: DC = %v dB, want 0", gain, db)
		}

		if db := hs.MagnitudeDB(sr/2, sr); !almostEqual(db, gain, 1e-6) {
			t.Errorf("gain %v: Nyquist = %v dB, want %v", gain, db, gain)
		}

		if db := hs.MagnitudeDB(1500, sr); !almostEqual(db, gain/2, 1e-6) {
			t.Errorf("gain %v: corner = %v dB, want %v", gain, db, gain/2)
		}
	}

	if c := HighShelfRBJ(0, 4, defaultQ, sr); c != (biquad.Coefficients{}) {
		t.Errorf("HighShelfRBJ(0) = %#v, want zero", c)
	}
}
