// Package events provides the domain event bus: payload contracts, the
// transport-agnostic Bus interface, an AMQP topic-exchange implementation
// and an in-memory implementation for tests and local runs.
package events

import "time"

// ExchangeName is the single topic exchange shared by all services.
const ExchangeName = "social.events"

// Routing keys for post lifecycle events.
const (
	RouteKeyPostCreated = "post.created"
	RouteKeyPostDeleted = "post.deleted"
)

// MaxDeliveryAttempts bounds redelivery of a failing message before it is
// routed to the dead-letter queue.
const MaxDeliveryAttempts = 3

// PostCreated is published after a post has been durably written.
type PostCreated struct {
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostDeleted is published after a post has been removed. MediaIDs carries
// the media references the media service must cascade-delete.
type PostDeleted struct {
	PostID   string   `json:"postId"`
	UserID   string   `json:"userId"`
	MediaIDs []string `json:"mediaIds"`
}
