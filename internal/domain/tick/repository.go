package tick

import (
	"context"
	"time"
)

type TickRepository interface {
	// Insert stores t unless a tick with the same (employee, shop, dttm, kind)
	// exists. It returns the stored tick and whether it was newly inserted.
	Insert(ctx context.Context, t Tick) (Tick, bool, error)

	// AttachFact links the tick to the fact worker day it reconciled into.
	AttachFact(ctx context.Context, tickID, factID string) error

	GetByID(ctx context.Context, id string) (Tick, error)

	// ListByEmployee returns ticks of the employee at shopID in [from, to) ordered by dttm.
	ListByEmployee(ctx context.Context, employeeID, shopID string, from, to time.Time) ([]Tick, error)
}

// CursorRepository keeps the high-water mark of external tick sources.
type CursorRepository interface {
	// GetCursor returns the last saved position of source and false when
	// nothing was saved yet.
	GetCursor(ctx context.Context, source string) (time.Time, bool, error)
	SaveCursor(ctx context.Context, source string, at time.Time) error
}
