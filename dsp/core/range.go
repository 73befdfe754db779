package core

import "math"

// Range describes an inclusive parameter range with a default value.
// A positive Step quantizes values onto Min + k*Step.
type Range struct {
	Min     float64
	Max     float64
	Default float64
	Step    float64
}

// Clamp snaps v to the step grid and limits it to the range. NaN maps to
// Default.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return Clamp(r.Default, r.Min, r.Max)
	}

	if r.Step > 0 && IsFinite(v) {
		v = r.Min + math.Round((v-r.Min)/r.Step)*r.Step
	}

	return Clamp(v, r.Min, r.Max)
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Valid reports whether the range is ordered, finite and holds its default.
func (r Range) Valid() bool {
	if !IsFinite(r.Min) || !IsFinite(r.Max) || !IsFinite(r.Default) {
		return false
	}

	return r.Min <= r.Max && r.Step >= 0 && r.Contains(r.Default)
}
