package workers

import (
	"context"
	"log/slog"

	"messenger/contract"
)

// EventFanout drains the engines' push channel and delivers each event to
// every live connection of its recipients, resolved through the registry at
// delivery time.
//
// Fan-out is at-most-once per currently connected handle: offline users
// receive nothing and nothing is queued for them. EventFanout is not a
// message broker and gives no durability or ordering guarantees across
// connections.
type EventFanout struct {
	log      *slog.Logger
	registry contract.IRegistry
	events   <-chan contract.PushEvent
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry, events <-chan contract.PushEvent) *EventFanout {
	return &EventFanout{log: log, registry: registry, events: events}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Push channel closed")
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout delivers one event to each resolved sink independently: a slow or
// broken connection never blocks delivery to the others.
func (w *EventFanout) Fanout(ctx context.Context, evt contract.PushEvent) {
	sinks := w.registry.SinksFor(evt.Recipients()...)
	for _, sink := range sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			w.log.Debug("Push delivery failed", "event", evt.Name(), "error", err)
		}
	}
}
