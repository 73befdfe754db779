package pass

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-mbdist/dsp/filter/biquad"
)

const tol = 1e-9

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func cascadeResponse(sections []biquad.Coefficients, freq, sr float64) complex128 {
	h := complex(1, 0)
	for i := range sections {
		h *= sections[i].Response(freq, sr)
	}

	return h
}

func assertFiniteCoefficients(t *testing.T, c biquad.Coefficients) {
	t.Helper()

	for i, v := range []float64{c.B0, c.B1, c.B2, c.A1, c.A2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("coefficient[%d] = %v", i, v)
		}
	}
}

func assertStableSection(t *testing.T, c biquad.Coefficients) {
	t.Helper()

	disc := cmplx.Sqrt(complex(c.A1*c.A1-4*c.A2, 0))
	r1 := (-complex(c.A1, 0) + disc) / 2
	r2 := (-complex(c.A1, 0) - disc) / 2

	if cmplx.Abs(r1) >= 1 || cmplx.Abs(r2) >= 1 {
		t.Fatalf("unstable poles |r1|=%v |r2|=%v for %#v", cmplx.Abs(r1), cmplx.Abs(r2), c)
	}
}
