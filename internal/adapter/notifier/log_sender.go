package notifier

import (
	"context"

	"github.com/rl1809/apartment-sales/internal/contextkeys"
	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/port"
)

// LogSender writes events to the log instead of a broker.
type LogSender struct {
	logger port.LoggerPort
}

func NewLogSender(logger port.LoggerPort) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, event domain.Event) error {
	body, err := encodeEvent(event)
	if err != nil {
		return err
	}

	fields := port.Fields{
		"event_type":   event.Type(),
		"aggregate_id": event.AggregateID(),
		"payload":      string(body),
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		fields["trace_id"] = traceID
	}
	s.logger.Info("event published", fields)
	return nil
}
