package biquad

// Chain is a cascade of sections processed in series.
type Chain struct {
	sections []Section
}

// NewChain creates a cascade with one section per coefficient set.
func NewChain(coeffs []Coefficients) *Chain {
	c := &Chain{sections: make([]Section, len(coeffs))}
	for i := range coeffs {
		c.sections[i].Coefficients = coeffs[i]
	}

	return c
}

// ProcessSample runs x through every section in order.
func (c *Chain) ProcessSample(x float64) float64 {
	for i := range c.sections {
		x = c.sections[i].ProcessSample(x)
	}

	return x
}

// ProcessBlock filters buf in place through the cascade.
func (c *Chain) ProcessBlock(buf []float64) {
	for i := range c.sections {
		c.sections[i].ProcessBlock(buf)
	}
}

// ProcessBlockTo filters src into dst, leaving src untouched.
func (c *Chain) ProcessBlockTo(dst, src []float64) {
	if len(c.sections) == 0 {
		copy(dst, src)
		return
	}

	c.sections[0].ProcessBlockTo(dst, src)

	for i := 1; i < len(c.sections); i++ {
		c.sections[i].ProcessBlock(dst[:len(src)])
	}
}

// Reset clears every delay line.
func (c *Chain) Reset() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// Order returns the filter order, two per section.
func (c *Chain) Order() int { return 2 * len(c.sections) }

// NumSections returns the number of sections.
func (c *Chain) NumSections() int { return len(c.sections) }

// Section returns the i-th section.
func (c *Chain) Section(i int) *Section { return &c.sections[i] }

// UpdateCoefficients swaps in new coefficients. When the section count is
// unchanged the delay lines are kept, so a cutoff change does not restart
// the filter from silence, and no memory is allocated.
func (c *Chain) UpdateCoefficients(coeffs []Coefficients) {
	if len(coeffs) != len(c.sections) {
		c.sections = make([]Section, len(coeffs))
	}

	for i := range coeffs {
		c.sections[i].Coefficients = coeffs[i]
	}
}

// State snapshots all delay lines.
func (c *Chain) State() [][2]float64 {
	out := make([][2]float64, len(c.sections))
	for i := range c.sections {
		out[i] = c.sections[i].State()
	}

	return out
}

// SetState restores delay lines captured with State.
func (c *Chain) SetState(states [][2]float64) {
	for i := range c.sections {
		if i < len(states) {
			c.sections[i].SetState(states[i])
		}
	}
}
