// Package buffer holds reusable sample storage: [Buffer], a resizable block
// with a sliding-window append, and [SampleFifo], a lock-free single
// producer single consumer ring of fixed-size blocks used to move audio off
// the real-time thread.
package buffer
