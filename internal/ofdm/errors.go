package ofdm

import "errors"

var (
	// ErrDimensionMismatch indicates a caller-supplied array does not fit the link configuration
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNonFinite indicates NaN or Inf values, typically from dividing by a faded subcarrier
	ErrNonFinite = errors.New("non-finite values")
)
