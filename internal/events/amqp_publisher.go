package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"poll-service/pkg/logger"
)

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher forwards channel payloads to a RabbitMQ topic exchange.
// "channel:poll:couch" is routed with key "poll.couch".
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	mu       sync.Mutex
}

func NewAMQPPublisher(ch amqpChannel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{channel: ch, exchange: exchange}
}

// DialAMQP connects to RabbitMQ, retrying a few times, and declares the
// topic exchange.
func DialAMQP(url, exchange string, attempts int, wait time.Duration, l *logger.Logger) (*AMQPPublisher, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		if conn, err = amqp.Dial(url); err == nil {
			break
		}
		if i == attempts-1 {
			break
		}
		if l != nil {
			l.Warnf("Failed to connect to RabbitMQ (attempt %d/%d). Retrying in %s...", i+1, attempts, wait)
		}
		time.Sleep(wait)
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.channel.PublishWithContext(ctx,
		p.exchange,
		RoutingKey(channel),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         payload,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// pollKeyEscaper keeps a poll name a single routing key word: topic
// exchanges treat '.' as a separator and '*' and '#' as wildcards.
var pollKeyEscaper = strings.NewReplacer("%", "%25", ".", "%2E", "*", "%2A", "#", "%23")

// RoutingKey converts a pub/sub channel name to an AMQP routing key.
func RoutingKey(channel string) string {
	if name, ok := strings.CutPrefix(channel, pollChannelPrefix); ok {
		return "poll." + pollKeyEscaper.Replace(name)
	}
	return strings.ReplaceAll(strings.TrimPrefix(channel, ChannelPrefix), ":", ".")
}
