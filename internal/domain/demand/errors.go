package demand

import "errors"

var (
	ErrPastBucket   = errors.New("demand buckets of past dates are immutable")
	ErrMisaligned   = errors.New("bucket start is not aligned to the forecast step")
	ErrOutOfHorizon = errors.New("bucket lies outside the forecast horizon")
)
