package buffer

// Buffer is a reusable float64 block. DSP code takes raw slices; Samples
// bridges the two.
type Buffer struct {
	samples []float64
}

// New returns a zero-filled Buffer of the given length.
func New(length int) *Buffer {
	return &Buffer{samples: make([]float64, max(length, 0))}
}

// Samples returns the underlying slice.
func (b *Buffer) Samples() []float64 { return b.samples }

// Len returns the number of samples.
func (b *Buffer) Len() int { return len(b.samples) }

// Zero sets every sample to 0.
func (b *Buffer) Zero() { clear(b.samples) }

// Slide appends src to the end of the buffer while dropping the same number
// of samples from the front, so the buffer always holds the most recent
// Len() samples of a stream. It does not allocate.
func (b *Buffer) Slide(src []float64) {
	n := len(b.samples)
	if len(src) >= n {
		copy(b.samples, src[len(src)-n:])
		return
	}

	copy(b.samples, b.samples[len(src):])
	copy(b.samples[n-len(src):], src)
}
