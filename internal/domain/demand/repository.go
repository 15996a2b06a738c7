package demand

import (
	"context"
	"time"
)

type DemandRepository interface {
	// ListBuckets returns buckets of shopID for the given work types with start in [from, to).
	ListBuckets(ctx context.Context, shopID string, workTypeIDs []string, from, to time.Time) ([]Bucket, error)

	// ReplaceRange deletes buckets of (shop, work type) in [from, to) and inserts
	// the given ones under a single-writer lock for that horizon.
	ReplaceRange(ctx context.Context, f Forecast) error
}
