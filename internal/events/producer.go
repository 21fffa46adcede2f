// Package events publishes domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/healthe/healthe-api/pkg/logging"
)

const (
	RoutingWithdrawalStatusChanged = "withdrawal.status_changed"
	RoutingWithdrawalRequested     = "withdrawal.requested"
	RoutingPaymentReceived         = "payment.received"
)

// Publisher is implemented by every event sink.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
	Close()
}

// Producer publishes JSON bodies to a topic exchange.
type Producer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// LogPublisher is used when no broker is configured; it only logs.
type LogPublisher struct {
	Logger *logging.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger.Info("event not published, no broker configured", "exchange", exchange, "routing_key", routingKey)
	return nil
}

func (p *LogPublisher) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

func NewProducer(amqpURL string) (*Producer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Producer{conn: conn, channel: ch}, nil
}

// NewPublisher returns a broker-backed producer, or a LogPublisher when the
// URL is empty or the broker cannot be reached.
func NewPublisher(amqpURL string, logger *logging.Logger) Publisher {
	if strings.TrimSpace(amqpURL) == "" {
		return &LogPublisher{Logger: logger}
	}
	p, err := NewProducer(amqpURL)
	if err != nil {
		if logger != nil {
			logger.Warn("rabbitmq unavailable, events will only be logged", "error", err)
		}
		return &LogPublisher{Logger: logger}
	}
	return p
}

func (p *Producer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel not initialized")
	}
	if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Body:         payload,
		Timestamp:    time.Now(),
	})
}

func (p *Producer) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
