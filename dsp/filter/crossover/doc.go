// Package crossover splits audio into frequency bands with fourth-order
// Linkwitz-Riley filters.
//
// [Crossover] is a single two-way LR4 split whose outputs sum to a
// second-order allpass. [ThreeBand] chains two of them and runs the low
// band through the second split's allpass, so the three bands sum to a pure
// allpass of the input. [Allpass] is that compensation stage on its own.
//
// Example:
//
//	tb, _ := crossover.NewThreeBand(400, 2000, 48000)
//	tb.Split(in, low, mid, high)
//	// low[i]+mid[i]+high[i] is in, allpass filtered
package crossover
