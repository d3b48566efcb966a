// Package relay mirrors bus events to external transports after they are
// emitted in-process.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/roofing-ledger/internal/events"
)

// Envelope is the wire shape shared by every sink.
type Envelope struct {
	ID        uuid.UUID       `json:"id"`
	Event     events.Name     `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Sink publishes envelopes to one transport.
type Sink interface {
	Name() string
	Publish(ctx context.Context, env Envelope) error
}

// Relay forwards selected events to every configured sink.
type Relay struct {
	sinks  []Sink
	logger *slog.Logger
}

// New constructs a relay over sinks. Nil sinks are skipped.
func New(logger *slog.Logger, sinks ...Sink) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{logger: logger}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// Attach subscribes the relay to names on bus. With no names the whole
// catalogue is relayed. The returned func detaches every subscription.
func (r *Relay) Attach(bus *events.Bus, names ...events.Name) func() {
	if len(r.sinks) == 0 || bus == nil {
		return func() {}
	}
	if len(names) == 0 {
		names = events.Catalogue
	}
	handler := events.NewHandler(r.forward, events.Async())
	unsubscribers := make([]func(), 0, len(names))
	for _, name := range names {
		unsubscribers = append(unsubscribers, bus.On(name, handler))
	}
	return func() {
		for _, fn := range unsubscribers {
			fn()
		}
	}
}

func (r *Relay) forward(ctx context.Context, evt events.Event) error {
	env, err := Encode(evt)
	if err != nil {
		return err
	}
	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, env); err != nil {
			r.logger.Warn("relay publish failed",
				slog.String("sink", sink.Name()),
				slog.String("event", string(evt.Name)),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("relay %s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Encode converts a bus event into its wire envelope.
func Encode(evt events.Event) (Envelope, error) {
	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("relay: encode %s: %w", evt.Name, err)
	}
	return Envelope{
		ID:        uuid.New(),
		Event:     evt.Name,
		Data:      data,
		Timestamp: evt.Timestamp,
	}, nil
}
