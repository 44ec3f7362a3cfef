package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.EventPublisher = (*EventHub)(nil)

const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

// EventHub streams review-requested events to websocket clients. A client
// whose buffer is full misses the event rather than stalling the publisher.
type EventHub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[chan ReviewEventResponse]struct{}
}

// NewEventHub creates an EventHub with no clients.
func NewEventHub(logger *slog.Logger) *EventHub {
	return &EventHub{
		logger:  logger,
		clients: make(map[chan ReviewEventResponse]struct{}),
	}
}

// Publish queues event for every connected client.
func (h *EventHub) Publish(_ context.Context, event model.ReviewRequested) {
	frame := toReviewEventResponse(event)

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- frame:
		default:
			h.logger.Warn("dropping review event for slow client", "event_id", frame.ID)
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *EventHub) subscribe() chan ReviewEventResponse {
	ch := make(chan ReviewEventResponse, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) unsubscribe(ch chan ReviewEventResponse) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request to a websocket and writes one JSON frame per
// event until the client disconnects.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	h.logger.Debug("event client connected", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("event client disconnected", "remote", r.RemoteAddr)
			return
		case frame := <-ch:
			if err := h.write(ctx, conn, frame); err != nil {
				h.logger.Debug("event write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

func (h *EventHub) write(ctx context.Context, conn *websocket.Conn, frame ReviewEventResponse) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, frame)
}
