// Package sse pushes kitchen notifications to browser banners over Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type EventType string

const (
	EventConnected        EventType = "connected"
	EventOrdersArrived    EventType = "orders_arrived"
	EventTransitionFailed EventType = "transition_failed"
	EventStaleChanged     EventType = "stale_changed"
)

type Event struct {
	Type EventType   `json:"type"`
	ID   string      `json:"id,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

type client struct {
	id     uuid.UUID
	events chan Event
}

// Broadcaster fans notifications out to every connected display.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	logger  logger.Logger
}

var _ interfaces.Notifier = (*Broadcaster)(nil)

func New(logger logger.Logger) *Broadcaster {
	return &Broadcaster{
		clients: make(map[uuid.UUID]*client),
		logger:  logger,
	}
}

func (b *Broadcaster) addClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c.id] = c
}

func (b *Broadcaster) removeClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c.id]; ok {
		delete(b.clients, c.id)
		close(c.events)
	}
}

// Clients reports the number of connected displays.
func (b *Broadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish never blocks: a display with a full buffer misses the event.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, c := range b.clients {
		select {
		case c.events <- event:
		default:
			b.logger.Warn("sse_buffer_full", "SSE client buffer full, event dropped", "", map[string]interface{}{
				"client_id": c.id.String(),
				"event":     event.Type,
			})
		}
	}
}

func (b *Broadcaster) OrdersArrived(ctx context.Context, n domain.ArrivalNotification) error {
	b.Publish(Event{Type: EventOrdersArrived, ID: n.ID, Data: map[string]interface{}{
		"count":     n.Count,
		"order_ids": n.OrderIDs,
	}})
	return nil
}

func (b *Broadcaster) TransitionFailed(ctx context.Context, n domain.FailureNotice) error {
	b.Publish(Event{Type: EventTransitionFailed, ID: n.ID, Data: map[string]interface{}{
		"order_id": n.OrderID,
		"status":   n.From,
		"target":   n.Target,
		"reason":   n.Reason,
	}})
	return nil
}

func (b *Broadcaster) StaleChanged(ctx context.Context, a domain.StaleAlarm) error {
	b.Publish(Event{Type: EventStaleChanged, Data: map[string]interface{}{
		"stale":                a.Raised,
		"last_success":         a.LastSuccess,
		"consecutive_failures": a.ConsecutiveFailures,
	}})
	return nil
}

// ServeHTTP streams events until the client goes away.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	c := &client{id: uuid.New(), events: make(chan Event, 32)}
	b.addClient(c)
	defer b.removeClient(c)

	if err := write(w, Event{Type: EventConnected, ID: c.id.String()}); err != nil {
		return
	}
	flusher.Flush()

	b.logger.Debug("sse_connected", "SSE client connected", "", map[string]interface{}{"client_id": c.id.String()})

	for {
		select {
		case <-r.Context().Done():
			b.logger.Debug("sse_disconnected", "SSE client disconnected", "", map[string]interface{}{"client_id": c.id.String()})
			return
		case event, ok := <-c.events:
			if !ok {
				return
			}
			if err := write(w, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.clients {
		close(c.events)
		delete(b.clients, id)
	}
}

func write(w http.ResponseWriter, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
