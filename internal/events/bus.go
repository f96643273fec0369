package events

import "context"

// Handler processes the JSON body of a delivered event. Returning an error
// marks the delivery as failed; the bus redelivers it up to
// MaxDeliveryAttempts times and then dead-letters it.
type Handler func(ctx context.Context, body []byte) error

// Bus is a topic-based publish/subscribe event bus. Implementations must be
// safe for concurrent use; services share a single Bus handle.
type Bus interface {
	// Publish serializes payload to JSON and publishes it under routingKey.
	// Delivery to consumers is at-least-once; there is no replay for
	// consumers that bind after the message was published.
	Publish(ctx context.Context, routingKey string, payload any) error

	// Subscribe binds a private queue for routingKey and consumes matching
	// messages with handler. A message is acknowledged only after handler
	// returns nil. Subscriptions are registered once at startup.
	Subscribe(ctx context.Context, routingKey string, handler Handler) error

	// Close tears down the connection and stops all consumers.
	Close() error
}
