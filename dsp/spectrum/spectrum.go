package spectrum

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Magnitude returns |X[k]| for each complex spectrum bin.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	re := make([]float64, len(in))
	im := make([]float64, len(in))
	SplitComplex(re, im, in)

	out := make([]float64, len(in))
	vecmath.Magnitude(out, re, im)

	return out
}

// MagnitudeFromParts computes |X[k]| = sqrt(re[k]^2 + im[k]^2) into dst.
//
// This is the zero-allocation path for callers that already hold real and
// imaginary parts in separate slices. All three slices must have the same length.
func MagnitudeFromParts(dst, re, im []float64) {
	vecmath.Magnitude(dst, re, im)
}

// SplitComplex copies the real and imaginary parts of in into re and im.
// Only min(len(re), len(im), len(in)) bins are copied.
func SplitComplex(re, im []float64, in []complex128) {
	n := min(len(re), len(im), len(in))
	for i := range n {
		re[i] = real(in[i])
		im[i] = imag(in[i])
	}
}

// AmplitudeToDB converts linear amplitudes to dB in place of dst, limiting
// the result to floorDB. Non-finite or non-positive amplitudes map to floorDB.
// dst and mag may alias.
func AmplitudeToDB(dst, mag []float64, floorDB float64) {
	n := min(len(dst), len(mag))
	for i := range n {
		m := mag[i]
		if !(m > 0) || math.IsInf(m, 0) {
			dst[i] = floorDB
			continue
		}

		db := 20 * math.Log10(m)
		if db < floorDB {
			db = floorDB
		}

		dst[i] = db
	}
}
