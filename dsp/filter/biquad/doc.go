// Package biquad provides second-order IIR sections and cascades.
//
// A [Section] runs Direct Form II Transposed on one set of [Coefficients];
// a [Chain] cascades several. Coefficient design lives in
// dsp/filter/design/pass, this package only filters.
package biquad
