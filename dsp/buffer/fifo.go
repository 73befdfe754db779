package buffer

import (
	"fmt"
	"sync/atomic"
)

// DefaultFifoCapacity is the number of blocks a SampleFifo holds unless told
// otherwise.
const DefaultFifoCapacity = 30

// SampleFifo hands fixed-size mono blocks from one producer goroutine (the
// audio thread) to one consumer goroutine (the analyzer) without locks.
//
// Push accumulates samples into a staging block; every completed block is
// copied into the ring. When the ring is full the completed block is
// dropped and counted, so the producer never waits. Pop hands blocks out in
// the order they were completed.
type SampleFifo struct {
	blockSize int
	slots     []Buffer

	// head is written only by the consumer, tail only by the producer.
	head atomic.Uint64
	tail atomic.Uint64

	staging Buffer
	fill    int

	dropped atomic.Uint64
}

// NewSampleFifo allocates a fifo of capacity blocks of blockSize samples.
func NewSampleFifo(blockSize, capacity int) (*SampleFifo, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("buffer: fifo block size must be positive, got %d", blockSize)
	}

	if capacity <= 0 {
		return nil, fmt.Errorf("buffer: fifo capacity must be positive, got %d", capacity)
	}

	f := &SampleFifo{
		blockSize: blockSize,
		slots:     make([]Buffer, capacity),
		staging:   Buffer{samples: make([]float64, blockSize)},
	}

	for i := range f.slots {
		f.slots[i].samples = make([]float64, blockSize)
	}

	return f, nil
}

// Push appends samples to the stream. Producer side only.
func (f *SampleFifo) Push(samples []float64) {
	stage := f.staging.samples

	for len(samples) > 0 {
		n := copy(stage[f.fill:], samples)
		f.fill += n
		samples = samples[n:]

		if f.fill == f.blockSize {
			f.publish()
			f.fill = 0
		}
	}
}

func (f *SampleFifo) publish() {
	tail := f.tail.Load()
	if tail-f.head.Load() >= uint64(len(f.slots)) {
		f.dropped.Add(1)
		return
	}

	copy(f.slots[tail%uint64(len(f.slots))].samples, f.staging.samples)
	f.tail.Store(tail + 1)
}

// Pop copies the oldest completed block into dst and frees its slot.
// It returns the number of samples copied and false when no block is ready.
// Consumer side only.
func (f *SampleFifo) Pop(dst []float64) (int, bool) {
	head := f.head.Load()
	if head == f.tail.Load() {
		return 0, false
	}

	n := copy(dst, f.slots[head%uint64(len(f.slots))].samples)
	f.head.Store(head + 1)

	return n, true
}

// Len returns the number of completed blocks waiting to be popped.
func (f *SampleFifo) Len() int {
	return int(f.tail.Load() - f.head.Load())
}

// Cap returns the ring capacity in blocks.
func (f *SampleFifo) Cap() int { return len(f.slots) }

// BlockSize returns the number of samples per block.
func (f *SampleFifo) BlockSize() int { return f.blockSize }

// Dropped returns how many completed blocks were discarded because the ring
// was full.
func (f *SampleFifo) Dropped() uint64 { return f.dropped.Load() }

// Reset empties the ring, the staging block and the drop counter. Neither
// side may be running while it is called.
func (f *SampleFifo) Reset() {
	f.head.Store(0)
	f.tail.Store(0)
	f.fill = 0
	f.dropped.Store(0)
	f.staging.Zero()
}
