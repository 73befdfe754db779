// Package multiband implements a three-band distortion processor.
//
// A [Distortion] splits every channel into low, mid and high bands with a
// pair of Linkwitz-Riley crossovers, distorts each band independently
// (pre-gain, waveshaper, post-gain, bypass) and sums the bands back. The
// first two channels are also streamed to a lock-free analysis fifo;
// [Distortion.PollAnalysis] turns that stream into a spectrum path plus a
// crossover overlay for display.
//
// Threads:
//
//	audio:    Process
//	control:  SetBandParameters, SetCrossoverFrequencies, SetDeltaMonitor
//	analysis: PollAnalysis, SetAnalysisBounds
//
// Process never allocates, locks, blocks or logs. Parameter changes are
// published as immutable snapshots and picked up at the start of the next
// Process call. Prepare must not run concurrently with Process.
package multiband
