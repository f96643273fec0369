package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"chirper/internal/models"
	"chirper/internal/observability"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// attemptsHeader carries the delivery attempt count across republishes,
// since broker requeue cannot mutate headers.
const attemptsHeader = "x-delivery-attempts"

type subscription struct {
	routingKey string
	handler    Handler
}

// AMQPBus is the RabbitMQ-backed Bus. One connection and one channel are
// shared by all publishers and consumers of the process. On a broker-side
// close it reconnects with exponential backoff and re-binds every
// registered subscription.
type AMQPBus struct {
	url    string
	logger *observability.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	subs   []subscription
	closed bool
}

// NewAMQPBus creates a bus for the given broker URL. No connection is made
// until Connect or the first Publish/Subscribe.
func NewAMQPBus(url string) *AMQPBus {
	return &AMQPBus{url: url, logger: observability.GlobalLogger}
}

// Connect establishes the connection and channel and declares the shared
// topic exchange. Consumers that cannot operate without the bus should
// treat an error here as fatal at startup.
func (b *AMQPBus) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectLocked(ctx)
}

func (b *AMQPBus) connectLocked(ctx context.Context) error {
	if b.closed {
		return models.NewConnectionError("message broker", fmt.Errorf("bus is closed"))
	}
	if b.conn != nil && !b.conn.IsClosed() {
		return nil
	}

	conn, err := amqp.Dial(b.url)
	if err != nil {
		return models.NewConnectionError("message broker", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return models.NewConnectionError("message broker", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, "topic", false, false, false, false, nil); err != nil {
		conn.Close()
		return models.NewConnectionError("message broker", err)
	}

	b.conn = conn
	b.ch = ch
	b.logger.InfoContext(ctx, "connected to message broker", slog.String("exchange", ExchangeName))

	// Re-bind any subscriptions registered before a reconnect. A failure
	// part-way leaves consumers running on the new connection, so close it
	// to stop them before the next attempt redials.
	for _, sub := range b.subs {
		if err := b.startConsumerLocked(sub); err != nil {
			conn.Close()
			b.conn = nil
			b.ch = nil
			return err
		}
	}

	go b.watchConnection(conn)
	return nil
}

// watchConnection reconnects with exponential backoff when the broker
// closes the connection out from under us.
func (b *AMQPBus) watchConnection(conn *amqp.Connection) {
	closeErr, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || closeErr == nil {
		return
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}

	b.logger.Error("message broker connection lost, reconnecting", slog.String("error", closeErr.Error()))

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	_ = backoff.Retry(func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed {
			return backoff.Permanent(fmt.Errorf("bus closed during reconnect"))
		}
		// connectLocked redials when the tracked connection is closed or
		// was torn down by a failed attempt; a healthy connection set up
		// concurrently is left alone.
		if err := b.connectLocked(context.Background()); err != nil {
			b.logger.Error("broker reconnect attempt failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	}, bo)
}

// Publish implements Bus. The channel is established lazily on first use.
// There is no confirmation of consumer receipt.
func (b *AMQPBus) Publish(ctx context.Context, routingKey string, payload any) error {
	b.mu.Lock()
	if err := b.connectLocked(ctx); err != nil {
		b.mu.Unlock()
		return err
	}
	ch := b.ch
	b.mu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	err = ch.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return models.NewConnectionError("message broker", err)
	}

	observability.EventsPublished.WithLabelValues(routingKey).Inc()
	observability.LogEventPublished(ctx, routingKey, nil)
	return nil
}

// Subscribe implements Bus. The queue is private and exclusive; messages
// published before the binding existed are not replayed.
func (b *AMQPBus) Subscribe(ctx context.Context, routingKey string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.connectLocked(ctx); err != nil {
		return err
	}

	sub := subscription{routingKey: routingKey, handler: handler}
	if err := b.startConsumerLocked(sub); err != nil {
		return err
	}
	b.subs = append(b.subs, sub)
	b.logger.InfoContext(ctx, "subscribed to event", slog.String("routing_key", routingKey))
	return nil
}

func (b *AMQPBus) startConsumerLocked(sub subscription) error {
	q, err := b.ch.QueueDeclare("", false, false, true, false, nil)
	if err != nil {
		return models.NewConnectionError("message broker", err)
	}
	if err := b.ch.QueueBind(q.Name, sub.routingKey, ExchangeName, false, nil); err != nil {
		return models.NewConnectionError("message broker", err)
	}
	// Durable per-routing-key dead-letter queue on the default exchange.
	if _, err := b.ch.QueueDeclare(sub.routingKey+".dlq", true, false, false, false, nil); err != nil {
		return models.NewConnectionError("message broker", err)
	}

	deliveries, err := b.ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return models.NewConnectionError("message broker", err)
	}

	go b.consumeLoop(sub, deliveries)
	return nil
}

func (b *AMQPBus) consumeLoop(sub subscription, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		b.handleDelivery(sub, d)
	}
}

func (b *AMQPBus) handleDelivery(sub subscription, d amqp.Delivery) {
	ctx := context.Background()
	attempt := deliveryAttempt(d.Headers)

	err := sub.handler(ctx, d.Body)
	if err == nil {
		observability.EventsConsumed.WithLabelValues(sub.routingKey, "ok").Inc()
		_ = d.Ack(false)
		return
	}

	observability.EventsConsumed.WithLabelValues(sub.routingKey, "error").Inc()
	observability.LogAsyncOperationError(ctx, "consume "+sub.routingKey, err, map[string]interface{}{
		"attempt": attempt,
	})

	if attempt >= MaxDeliveryAttempts {
		b.deadLetter(ctx, sub.routingKey, d)
		_ = d.Ack(false)
		return
	}

	// Republish with an incremented attempt header instead of a broker
	// requeue: requeue cannot carry the attempt count.
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()
	republishErr := ch.PublishWithContext(ctx, ExchangeName, d.RoutingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        d.Body,
		Headers:     amqp.Table{attemptsHeader: int32(attempt + 1)},
	})
	if republishErr != nil {
		// Fall back to a broker requeue so the message is not lost.
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (b *AMQPBus) deadLetter(ctx context.Context, routingKey string, d amqp.Delivery) {
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()
	err := ch.PublishWithContext(ctx, "", routingKey+".dlq", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        d.Body,
		Headers:     d.Headers,
	})
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to dead-letter delivery",
			slog.String("routing_key", routingKey),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.EventsDeadLettered.WithLabelValues(routingKey).Inc()
}

func deliveryAttempt(headers amqp.Table) int {
	if headers == nil {
		return 1
	}
	switch v := headers[attemptsHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 1
	}
}

// Close implements Bus.
func (b *AMQPBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
