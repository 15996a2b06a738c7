package coverage

import "errors"

var (
	ErrEmptyWindow    = errors.New("coverage window is empty")
	ErrWindowTooLarge = errors.New("coverage window exceeds the allowed range")
	ErrNoWorkTypes    = errors.New("at least one work type is required")
)
