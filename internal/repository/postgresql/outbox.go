package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
)

type outboxRepositoryImpl struct {
	db *database.DB
}

func NewOutboxRepository(db *database.DB) outbox.OutboxRepository {
	return &outboxRepositoryImpl{db: db}
}

// Add implements outbox.OutboxRepository.
func (r *outboxRepositoryImpl) Add(ctx context.Context, e outbox.Event) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO outbox_events (type, shop_id, payload)
		VALUES ($1, $2, $3)
	`

	if _, err := q.Exec(ctx, query, string(e.Type), e.ShopID, []byte(e.Payload)); err != nil {
		return fmt.Errorf("failed to add %s event: %w", e.Type, err)
	}
	return nil
}

// ClaimPending implements outbox.OutboxRepository.
func (r *outboxRepositoryImpl) ClaimPending(ctx context.Context, limit, maxAttempts int) ([]outbox.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, type, shop_id, payload, attempts, last_error, created_at, dispatched_at
		FROM outbox_events
		WHERE dispatched_at IS NULL AND ($2::int <= 0 OR attempts < $2)
		ORDER BY created_at
		LIMIT NULLIF($1::int, 0)
		FOR UPDATE SKIP LOCKED
	`

	rows, err := q.Query(ctx, query, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var (
			e         outbox.Event
			eventType string
			payload   []byte
		)
		err := rows.Scan(&e.ID, &eventType, &e.ShopID, &payload, &e.Attempts, &e.LastError, &e.CreatedAt, &e.DispatchedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		e.Type = outbox.EventType(eventType)
		e.Payload = payload
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkDispatched implements outbox.OutboxRepository.
func (r *outboxRepositoryImpl) MarkDispatched(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `UPDATE outbox_events SET dispatched_at = NOW() WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to mark %d outbox events dispatched: %w", len(ids), err)
	}
	return nil
}

// MarkFailed implements outbox.OutboxRepository.
func (r *outboxRepositoryImpl) MarkFailed(ctx context.Context, id string, reason string) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE outbox_events SET attempts = attempts + 1, last_error = $1 WHERE id = $2`

	if _, err := q.Exec(ctx, query, reason, id); err != nil {
		return fmt.Errorf("failed to mark outbox event %s failed: %w", id, err)
	}
	return nil
}
