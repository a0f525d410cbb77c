package port

import (
	"context"

	"github.com/rl1809/apartment-sales/internal/core/domain"
)

// EventNotifier accepts committed-state events for asynchronous delivery.
// Notify must not block on delivery.
type EventNotifier interface {
	Notify(ctx context.Context, event domain.Event) error
}

// EventSender delivers a single event to downstream subscribers.
type EventSender interface {
	Send(ctx context.Context, event domain.Event) error
}
