// Package dither converts normalized samples to fixed-point PCM with
// optional dither noise and first-order error feedback.
package dither

import "fmt"

// Type selects the probability density of the dither noise.
type Type int

const (
	// None rounds without added noise.
	None Type = iota
	// Rectangular adds uniform noise of one LSB peak.
	Rectangular
	// Triangular adds TPDF noise, the sum of two uniform draws.
	Triangular

	typeCount
)

var typeNames = [typeCount]string{"none", "rectangular", "triangular"}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}

	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is a known dither type.
func (t Type) Valid() bool { return t >= 0 && t < typeCount }

// ParseType resolves a name as returned by [Type.String].
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name {
			return Type(t), nil
		}
	}

	return None, fmt.Errorf("dither: unknown type %q", name)
}
