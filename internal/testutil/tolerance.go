package testutil

import (
	"fmt"
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t when the slices differ in length or any
// pair differs by more than eps.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if diff := math.Abs(got[i] - want[i]); diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t on any NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbsDiff returns the largest absolute element difference.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}

	var m float64
	for i := range a {
		m = math.Max(m, math.Abs(a[i]-b[i]))
	}

	return m, nil
}

// Energy returns the sum of squares.
func Energy(x []float64) float64 {
	var e float64
	for _, v := range x {
		e += v * v
	}

	return e
}

// RMS returns the root mean square of x, zero for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	return math.Sqrt(Energy(x) / float64(len(x)))
}

// ResidualDB returns the energy of got-want relative to want, in dB.
// Identical slices give -Inf.
func ResidualDB(got, want []float64) (float64, error) {
	if len(got) != len(want) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(got), len(want))
	}

	var diff float64
	for i := range got {
		d := got[i] - want[i]
		diff += d * d
	}

	ref := Energy(want)
	if ref == 0 {
		if diff == 0 {
			return math.Inf(-1), nil
		}

		return math.Inf(1), nil
	}

	return 10 * math.Log10(diff/ref), nil
}
