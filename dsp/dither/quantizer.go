package dither

import (
	"math"
	"math/rand/v2"
)

// Quantizer maps samples in [-1, 1) to integers of a fixed bit depth. Each
// channel needs its own Quantizer when noise shaping is on.
type Quantizer struct {
	bitDepth int
	typ      Type
	shaping  bool
	rng      *rand.Rand

	scale float64
	lo    int
	hi    int

	err float64
}

// NewQuantizer creates a quantizer. The default is 16-bit TPDF dither
// without noise shaping.
func NewQuantizer(opts ...Option) (*Quantizer, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	q := &Quantizer{
		bitDepth: cfg.bitDepth,
		typ:      cfg.typ,
		shaping:  cfg.shaping,
		rng:      cfg.rng,
	}

	if q.rng == nil {
		q.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	full := math.Exp2(float64(q.bitDepth - 1))
	q.scale = full
	q.lo = -int(full)
	q.hi = int(full) - 1

	return q, nil
}

// BitDepth returns the target bit depth.
func (q *Quantizer) BitDepth() int { return q.bitDepth }

// Type returns the dither noise density.
func (q *Quantizer) Type() Type { return q.typ }

// ProcessInteger quantizes one sample. Results are limited to the integer
// range of the bit depth.
func (q *Quantizer) ProcessInteger(x float64) int {
	if math.IsNaN(x) {
		x = 0
	}

	v := x * q.scale
	if q.shaping {
		v -= q.err
	}

	out := int(math.Round(v + q.noise()))
	out = max(q.lo, min(q.hi, out))

	if q.shaping {
		// Clipped samples would feed back their overload.
		q.err = math.Max(-1, math.Min(1, float64(out)-v))
	}

	return out
}

// ProcessBlock quantizes src into dst. dst must be at least as long as src.
func (q *Quantizer) ProcessBlock(dst []int, src []float64) {
	for i, x := range src {
		dst[i] = q.ProcessInteger(x)
	}
}

// Reset clears the error feedback state.
func (q *Quantizer) Reset() { q.err = 0 }

func (q *Quantizer) noise() float64 {
	switch q.typ {
	case Rectangular:
		return q.rng.Float64() - 0.5
	case Triangular:
		return q.rng.Float64() - q.rng.Float64()
	default:
		return 0
	}
}
