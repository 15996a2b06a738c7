package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/sse"
)

type EventsHandler interface {
	StreamToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type eventsHandlerImpl struct {
	hub        *sse.Hub
	jwtService jwt.Service
	keepalive  time.Duration
}

func NewEventsHandler(hub *sse.Hub, jwtService jwt.Service, keepalive time.Duration) EventsHandler {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	return &eventsHandlerImpl{
		hub:        hub,
		jwtService: jwtService,
		keepalive:  keepalive,
	}
}

// StreamToken issues a short-lived token bound to one topic. Shop-bound
// callers always get their own shop; admins may ask for any shop or for all.
func (h *eventsHandlerImpl) StreamToken(w http.ResponseWriter, r *http.Request) {
	p, err := principal.FromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	topic := r.URL.Query().Get("shop_id")
	switch {
	case p.ShopBound():
		topic = p.ShopID
	case !p.Admin:
		response.HandleError(w, auth.ErrAdminRequired)
		return
	case topic == "":
		topic = sse.Wildcard
	}

	token, expiresIn, err := h.jwtService.GenerateStreamToken(p, topic)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, auth.StreamTokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
		Topic:     topic,
	})
}

// Stream handles the SSE connection for shop events
func (h *eventsHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// SSE clients cannot set headers, the token travels in the query
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	topic, err := h.jwtService.ValidateStreamToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(topic)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"topic\":%q}\n\n", topic)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			if event.ID != "" {
				fmt.Fprintf(w, "id: %s\n", event.ID)
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
