package notifier

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/apartment-sales/internal/contextkeys"
	"github.com/rl1809/apartment-sales/internal/core/domain"
)

const exchangeTypeTopic = "topic"

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQSender publishes events to a topic exchange with the event type as routing key.
type RabbitMQSender struct {
	channel  publisher
	exchange string
}

func NewRabbitMQSender(channel publisher, exchange string) (*RabbitMQSender, error) {
	if channel == nil {
		return nil, fmt.Errorf("rabbitmq sender: channel cannot be nil")
	}
	if exchange == "" {
		return nil, fmt.Errorf("rabbitmq sender: exchange cannot be empty")
	}
	return &RabbitMQSender{channel: channel, exchange: exchange}, nil
}

// DialRabbitMQ connects and declares the durable topic exchange events are published to.
func DialRabbitMQ(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq: failed to dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		exchangeTypeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: failed to declare exchange '%s': %w", exchange, err)
	}

	return conn, ch, nil
}

func (s *RabbitMQSender) Send(ctx context.Context, event domain.Event) error {
	body, err := encodeEvent(event)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Type:         string(event.Type()),
		MessageId:    event.AggregateID().String(),
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      make(amqp.Table),
	}

	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	err = s.channel.PublishWithContext(ctx, s.exchange, string(event.Type()), false, false, msg)
	if err != nil {
		return fmt.Errorf("rabbitmq sender: failed to publish %s %s: %w", event.Type(), event.AggregateID(), err)
	}
	return nil
}
