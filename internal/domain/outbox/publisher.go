package outbox

import (
	"context"
	"fmt"
)

type repoPublisher struct {
	repo OutboxRepository
}

// NewPublisher returns a Publisher writing through repo.
func NewPublisher(repo OutboxRepository) Publisher {
	return &repoPublisher{repo: repo}
}

func (p *repoPublisher) Publish(ctx context.Context, eventType EventType, shopID string, payload any) error {
	e, err := New(eventType, shopID, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	if err := p.repo.Add(ctx, e); err != nil {
		return fmt.Errorf("failed to enqueue %s event: %w", eventType, err)
	}
	return nil
}
