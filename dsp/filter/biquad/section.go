package biquad

import (
	"sync"

	"github.com/cwbudde/algo-vecmath/cpu"

	archregistry "github.com/cwbudde/algo-mbdist/dsp/filter/biquad/internal/arch/registry"
)

var (
	processBlockImpl     archregistry.ProcessBlockFn
	processBlockInitOnce sync.Once
)

func initProcessBlockKernel() {
	entry := archregistry.Global.Lookup(cpu.DetectFeatures())
	if entry == nil || entry.ProcessBlock == nil {
		panic("biquad: no ProcessBlock kernel registered")
	}

	processBlockImpl = entry.ProcessBlock
}

// Coefficients holds one normalized second-order section (a0 = 1).
//
// Direct Form II Transposed recurrence:
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Section is a single biquad with its own delay line.
type Section struct {
	Coefficients

	d0, d1 float64
}

// NewSection returns a Section with zero state.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// ProcessSample filters one sample.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.B0*x + s.d0
	s.d0 = s.B1*x - s.A1*y + s.d1
	s.d1 = s.B2*x - s.A2*y

	return y
}

// ProcessBlock filters buf in place through the kernel selected for this
// CPU. Denormal-range state is flushed once per block.
func (s *Section) ProcessBlock(buf []float64) {
	processBlockInitOnce.Do(initProcessBlockKernel)
	s.d0, s.d1 = processBlockImpl(archregistry.Coefficients(s.Coefficients), s.d0, s.d1, buf)
}

// ProcessBlockTo filters src into dst. len(dst) must be >= len(src).
func (s *Section) ProcessBlockTo(dst, src []float64) {
	if len(src) == 0 {
		return
	}

	out := dst[:len(src)]
	copy(out, src)
	s.ProcessBlock(out)
}

// Reset clears the delay line.
func (s *Section) Reset() {
	s.d0, s.d1 = 0, 0
}

// State returns the delay line [d0, d1].
func (s *Section) State() [2]float64 {
	return [2]float64{s.d0, s.d1}
}

// SetState restores a delay line captured with State.
func (s *Section) SetState(state [2]float64) {
	s.d0, s.d1 = state[0], state[1]
}
