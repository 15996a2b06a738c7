package outbox

import "context"

type OutboxRepository interface {
	Add(ctx context.Context, e Event) error

	// ClaimPending locks up to limit undelivered events, skipping rows held by
	// other dispatchers.
	ClaimPending(ctx context.Context, limit, maxAttempts int) ([]Event, error)

	MarkDispatched(ctx context.Context, ids []string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// Publisher appends events to the outbox in the caller's transaction.
type Publisher interface {
	Publish(ctx context.Context, eventType EventType, shopID string, payload any) error
}
