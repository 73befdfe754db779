// Package spectrum turns blocks of audio into drawable spectrum curves.
//
// [Analyzer] windows a frame, runs a forward FFT and converts the bins to a
// floored dB scale where a full-scale sine reads 0 dB. [PathGenerator] maps
// those bins onto a log-frequency / linear-dB rectangle and also builds the
// crossover overlay and grid used by the analyzer display.
package spectrum
