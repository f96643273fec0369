package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"chirper/internal/observability"
)

// Message is a published event as recorded by the in-memory bus.
type Message struct {
	RoutingKey string
	Body       []byte
}

// MemoryBus is an in-process Bus with the same delivery semantics as the
// AMQP implementation: handlers run synchronously on publish, a failing
// handler is retried up to MaxDeliveryAttempts and then dead-lettered.
// Used in tests and broker-less local runs.
type MemoryBus struct {
	mu          sync.Mutex
	subs        []subscription
	published   []Message
	deadLetters []Message
	closed      bool
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Publish implements Bus. Matching handlers are invoked synchronously, so
// by the time Publish returns all projections have been applied.
func (b *MemoryBus) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bus is closed")
	}
	b.published = append(b.published, Message{RoutingKey: routingKey, Body: body})
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	observability.EventsPublished.WithLabelValues(routingKey).Inc()

	for _, sub := range subs {
		if !topicMatch(sub.routingKey, routingKey) {
			continue
		}
		b.deliver(ctx, sub, routingKey, body)
	}
	return nil
}

func (b *MemoryBus) deliver(ctx context.Context, sub subscription, routingKey string, body []byte) {
	for attempt := 1; attempt <= MaxDeliveryAttempts; attempt++ {
		err := sub.handler(ctx, body)
		if err == nil {
			observability.EventsConsumed.WithLabelValues(routingKey, "ok").Inc()
			return
		}
		observability.EventsConsumed.WithLabelValues(routingKey, "error").Inc()
	}

	b.mu.Lock()
	b.deadLetters = append(b.deadLetters, Message{RoutingKey: routingKey, Body: body})
	b.mu.Unlock()
	observability.EventsDeadLettered.WithLabelValues(routingKey).Inc()
}

// Subscribe implements Bus. The binding pattern supports the broker's
// topic wildcards ("*" for one word, "#" for zero or more).
func (b *MemoryBus) Subscribe(_ context.Context, routingKey string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}
	b.subs = append(b.subs, subscription{routingKey: routingKey, handler: handler})
	return nil
}

// Close implements Bus.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Published returns every message published under routingKey, in order.
func (b *MemoryBus) Published(routingKey string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.published {
		if m.RoutingKey == routingKey {
			out = append(out, m)
		}
	}
	return out
}

// DeadLetters returns messages dead-lettered after retry exhaustion.
func (b *MemoryBus) DeadLetters() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.deadLetters))
	copy(out, b.deadLetters)
	return out
}

// topicMatch reports whether a routing key matches a topic binding
// pattern, word by word.
func topicMatch(pattern, key string) bool {
	pw := strings.Split(pattern, ".")
	kw := strings.Split(key, ".")
	return matchWords(pw, kw)
}

func matchWords(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(key); i++ {
			if matchWords(pattern[1:], key[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(key) > 0 && matchWords(pattern[1:], key[1:])
	default:
		return len(key) > 0 && pattern[0] == key[0] && matchWords(pattern[1:], key[1:])
	}
}
