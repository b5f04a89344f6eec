package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      *slog.Logger
}

// New connects to RabbitMQ and declares a durable topic exchange for
// assignment transition events.
func New(url, exchange string, logger *slog.Logger) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	return &rmqPublisher{
		conn:     conn,
		exchange: exchange,
		log:      logger,
	}, nil
}

func (p *rmqPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(pubCtx, p.exchange, key, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		MessageId:    msg.Meta.ID,
		Timestamp:    msg.Meta.Time,
		Type:         msg.Meta.Type,
		DeliveryMode: amqp091.Persistent,
		Body:         body,
	})
	if err != nil {
		return err
	}

	p.log.Debug("event published", slog.String("key", key), slog.String("id", msg.Meta.ID))
	return nil
}

func (p *rmqPublisher) Close() error {
	return p.conn.Close()
}

type fallbackPublisher struct {
	log *slog.Logger
}

// NewFallback returns a publisher that drops events with a warning. Used
// when no broker is configured.
func NewFallback(logger *slog.Logger) Publisher {
	return &fallbackPublisher{log: logger}
}

func (p *fallbackPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	p.log.Warn("no broker configured: skipped publish", slog.String("key", key))
	return nil
}

func (p *fallbackPublisher) Close() error {
	return nil
}
