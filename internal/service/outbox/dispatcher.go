package outbox

import (
	"context"
	"encoding/json"
	"time"

	"log/slog"

	"github.com/Sami2905/nexflow-backend/internal/repository"
)

// Broadcaster delivers a payload to every subscriber of a topic.
type Broadcaster interface {
	Broadcast(topic string, payload []byte)
}

// Dispatcher drains pending outbox rows and broadcasts them to the hub.
// Rows are written in the same transaction as the mutation they describe,
// so a drained row always reflects committed state.
type Dispatcher struct {
	outbox   repository.OutboxRepository
	hub      Broadcaster
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// NewDispatcher returns a dispatcher polling at the given interval.
func NewDispatcher(outbox repository.OutboxRepository, hub Broadcaster, logger *slog.Logger, interval time.Duration, batch int) *Dispatcher {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if batch <= 0 {
		batch = 100
	}
	return &Dispatcher{outbox: outbox, hub: hub, logger: logger, interval: interval, batch: batch}
}

// envelope is the frame streamed to websocket and SSE clients.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Drain(ctx); err != nil {
				d.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

// Drain delivers every currently pending event, in insertion order, and
// marks the delivered batch dispatched.
func (d *Dispatcher) Drain(ctx context.Context) error {
	for {
		events, err := d.outbox.ListPendingEvents(ctx, d.batch)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		ids := make([]int64, 0, len(events))
		for _, e := range events {
			payload, err := json.Marshal(envelope{Event: e.Event, Data: e.Payload})
			if err != nil {
				d.logger.Error("outbox event marshal failed", "event_id", e.ID, "error", err)
			} else {
				d.hub.Broadcast(e.Topic, payload)
			}
			ids = append(ids, e.ID)
		}
		if err := d.outbox.MarkEventsDispatched(ctx, ids); err != nil {
			return err
		}
		if len(events) < d.batch {
			return nil
		}
	}
}

var _ Broadcaster = noopBroadcaster{}

// noopBroadcaster discards events; used when the hub is disabled.
type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, []byte) {}

// NoopBroadcaster returns a broadcaster that drops everything.
func NoopBroadcaster() Broadcaster { return noopBroadcaster{} }
