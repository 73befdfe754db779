//go:build !amd64 || purego

package biquad

import (
	_ "github.com/cwbudde/algo-mbdist/dsp/filter/biquad/internal/arch/generic" // fallback kernel
)
