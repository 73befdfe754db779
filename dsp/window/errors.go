package window

import "errors"

var (
	errEmptyCoeffs      = errors.New("window: no coefficients")
	errZeroCoherentGain = errors.New("window: coefficients sum to zero")
	errMismatchedLength = errors.New("window: sample and coefficient lengths differ")
	errUnknownType      = errors.New("window: unknown type")
)
