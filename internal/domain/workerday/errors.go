package workerday

import "errors"

var (
	ErrWorkerDayNotFound = errors.New("worker day not found")
	ErrInvalidInterval   = errors.New("worker day end is before start")
	ErrInvalidDetails    = errors.New("worker day details are not disjoint or not contained in the day")
	ErrConflict          = errors.New("concurrent update of fact worker day")
	ErrNoPlan            = errors.New("no plan worker day for fact")
	ErrOtherShop         = errors.New("fact worker day already exists at another shop for this date")
	ErrNotFact           = errors.New("worker day is not a fact record")
	ErrInvariant         = errors.New("worker day invariant violated")
)
