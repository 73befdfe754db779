package dither

import (
	"fmt"
	"math/rand/v2"
)

const (
	defaultBitDepth = 16
	minBitDepth     = 8
	maxBitDepth     = 32
)

type config struct {
	bitDepth int
	typ      Type
	shaping  bool
	rng      *rand.Rand
}

func defaultConfig() config {
	return config{
		bitDepth: defaultBitDepth,
		typ:      Triangular,
	}
}

// Option configures a [Quantizer].
type Option func(*config) error

// WithBitDepth sets the target bit depth (8..32, default 16).
func WithBitDepth(bits int) Option {
	return func(cfg *config) error {
		if bits < minBitDepth || bits > maxBitDepth {
			return fmt.Errorf("dither: bit depth must be in [%d, %d]: %d", minBitDepth, maxBitDepth, bits)
		}

		cfg.bitDepth = bits

		return nil
	}
}

// WithType sets the dither noise density (default [Triangular]).
func WithType(t Type) Option {
	return func(cfg *config) error {
		if !t.Valid() {
			return fmt.Errorf("dither: invalid type: %d", int(t))
		}

		cfg.typ = t

		return nil
	}
}

// WithNoiseShaping feeds each quantization error back into the next sample,
// moving the noise floor towards high frequencies.
func WithNoiseShaping(enabled bool) Option {
	return func(cfg *config) error {
		cfg.shaping = enabled
		return nil
	}
}

// WithRNG sets a deterministic random source for reproducible output.
func WithRNG(rng *rand.Rand) Option {
	return func(cfg *config) error {
		cfg.rng = rng
		return nil
	}
}
