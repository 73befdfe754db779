// Package effects provides the per-band processing of the multiband
// distortion.
//
//   - Waveshaper: drive-controlled hard clipper with make-up gain.
//   - BandProcessor: input gain, waveshaper and output gain for one band,
//     with a bypass that passes the band unchanged.
//
// Subpackages:
//   - github.com/cwbudde/algo-mbdist/dsp/effects/multiband
//
// Processing is allocation free once a processor is constructed.
package effects
