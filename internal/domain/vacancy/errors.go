package vacancy

import "errors"

var (
	ErrVacancyNotFound   = errors.New("vacancy not found")
	ErrInvalidTransition = errors.New("vacancy state transition not allowed")
	ErrEmployeeRequired  = errors.New("assigned vacancy requires an employee")
	ErrPartitionBusy     = errors.New("vacancy partition is already being processed")
	ErrNotEligible       = errors.New("employee is not eligible for this vacancy")
)
