package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/log"
)

// Handler processes one decoded expense.created message.
type Handler func(ctx context.Context, msg *ExpenseCreatedMessage) error

// AMQPConsumer reads expense.created messages from a durable queue bound to
// the exchange.
type AMQPConsumer struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *log.Logger
}

func NewAMQPConsumer(url, exchangeName, queueName string, logger *log.Logger) (*AMQPConsumer, error) {
	if logger == nil {
		logger = log.Discard()
	}
	conn, err := amqp091.DialConfig(url, amqp091.Config{Dial: amqp091.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &AMQPConsumer{
		conn:         conn,
		channel:      ch,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentEvents),
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *AMQPConsumer) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	// Durable, not auto-deleted, shared.
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queueName, RoutingKeyExpenseCreated, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	// One unacknowledged message at a time keeps mirror writes ordered.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// Consume delivers messages to handler until ctx is done or the channel
// closes. Malformed messages are dropped; handler failures are requeued.
func (c *AMQPConsumer) Consume(ctx context.Context, handler Handler) error {
	// Manual acks; the broker names the consumer.
	msgs, err := c.channel.ConsumeWithContext(ctx, c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.InfoContext(ctx, "Consuming expense events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("message channel closed")
			}
			c.deliver(ctx, d.Acknowledger, d.DeliveryTag, d.Body, handler)
		}
	}
}

// deliver decodes body, runs handler and settles the delivery.
func (c *AMQPConsumer) deliver(ctx context.Context, ack amqp091.Acknowledger, tag uint64, body []byte, handler Handler) {
	msg, err := ExpenseCreatedMessageFromJSON(body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode expense event", log.FieldError, err)
		_ = ack.Nack(tag, false, false)
		return
	}
	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle expense event",
			log.FieldError, err,
			log.FieldExpenseID, msg.ID)
		_ = ack.Nack(tag, false, true)
		return
	}
	_ = ack.Ack(tag, false)
}

func (c *AMQPConsumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
