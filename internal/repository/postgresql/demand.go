package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type demandRepositoryImpl struct {
	db *database.DB
}

func NewDemandRepository(db *database.DB) demand.DemandRepository {
	return &demandRepositoryImpl{db: db}
}

// ListBuckets implements demand.DemandRepository.
func (r *demandRepositoryImpl) ListBuckets(ctx context.Context, shopID string, workTypeIDs []string, from, to time.Time) ([]demand.Bucket, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT shop_id, work_type_id, start_at, value
		FROM demand_buckets
		WHERE shop_id = $1 AND work_type_id = ANY($2) AND start_at >= $3 AND start_at < $4
		ORDER BY start_at, work_type_id
	`

	rows, err := q.Query(ctx, query, shopID, workTypeIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list demand of shop %s: %w", shopID, err)
	}
	defer rows.Close()

	var buckets []demand.Bucket
	for rows.Next() {
		var b demand.Bucket
		if err := rows.Scan(&b.ShopID, &b.WorkTypeID, &b.Start, &b.Value); err != nil {
			return nil, fmt.Errorf("failed to scan demand bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// ReplaceRange implements demand.DemandRepository. The advisory lock keeps a
// single writer per (shop, work type) for the life of the transaction.
func (r *demandRepositoryImpl) ReplaceRange(ctx context.Context, f demand.Forecast) error {
	q := GetQuerier(ctx, r.db)

	key := fmt.Sprintf("demand|%s|%s", f.ShopID, f.WorkTypeID)
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to lock forecast horizon %s: %w", key, err)
	}

	_, err := q.Exec(ctx,
		`DELETE FROM demand_buckets WHERE shop_id = $1 AND work_type_id = $2 AND start_at >= $3 AND start_at < $4`,
		f.ShopID, f.WorkTypeID, f.From, f.To,
	)
	if err != nil {
		return fmt.Errorf("failed to clear demand of shop %s: %w", f.ShopID, err)
	}

	if len(f.Buckets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, b := range f.Buckets {
		batch.Queue(
			`INSERT INTO demand_buckets (shop_id, work_type_id, start_at, value) VALUES ($1, $2, $3, $4)`,
			f.ShopID, f.WorkTypeID, b.Start, b.Value,
		)
	}
	return sendBatch(ctx, q, batch, "demand buckets")
}
