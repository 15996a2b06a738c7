package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/sse"
)

// HubSink pushes events to SSE subscribers of the event's shop. Having no
// subscriber is not a failure.
type HubSink struct {
	hub *sse.Hub
}

func NewHubSink(hub *sse.Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Deliver(ctx context.Context, e outbox.Event) error {
	topic := e.ShopID
	if topic == "" {
		topic = sse.Wildcard
	}
	n := s.hub.Publish(sse.Event{
		ID:    e.ID,
		Topic: topic,
		Event: string(e.Type),
		Data:  e.Payload,
	})
	slog.Debug("Outbox event pushed to stream", "event_id", e.ID, "topic", topic, "subscribers", n)
	return nil
}

// WebhookSink posts events as JSON to the notification service.
type WebhookSink struct {
	URL  string
	HTTP *http.Client
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{
		URL:  url,
		HTTP: &http.Client{Timeout: timeout},
	}
}

type webhookBody struct {
	ID        string           `json:"id"`
	Type      outbox.EventType `json:"type"`
	ShopID    string           `json:"shop_id,omitempty"`
	Payload   json.RawMessage  `json:"payload"`
	CreatedAt time.Time        `json:"created_at"`
}

func (s *WebhookSink) Deliver(ctx context.Context, e outbox.Event) error {
	b, err := json.Marshal(webhookBody{ID: e.ID, Type: e.Type, ShopID: e.ShopID, Payload: e.Payload, CreatedAt: e.CreatedAt})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", e.ID)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notification webhook status=%d, body=%s", resp.StatusCode, string(body))
	}
	return nil
}
