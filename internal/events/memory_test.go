package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"post.created", "post.created", true},
		{"post.created", "post.deleted", false},
		{"post.*", "post.created", true},
		{"post.*", "post.created.extra", false},
		{"post.#", "post.created.extra", true},
		{"#", "anything.at.all", true},
		{"*.created", "post.created", true},
		{"*.created", "created", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, topicMatch(tt.pattern, tt.key))
		})
	}
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	var mu sync.Mutex
	var received []PostCreated
	err := bus.Subscribe(ctx, RouteKeyPostCreated, func(_ context.Context, body []byte) error {
		var event PostCreated
		if err := json.Unmarshal(body, &event); err != nil {
			return err
		}
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	event := PostCreated{
		PostID:    "p-1",
		UserID:    "u-1",
		Content:   "hello world",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, bus.Publish(ctx, RouteKeyPostCreated, event))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "p-1", received[0].PostID)
	assert.Equal(t, "hello world", received[0].Content)
}

func TestMemoryBus_NonMatchingKeyNotDelivered(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	calls := 0
	require.NoError(t, bus.Subscribe(ctx, RouteKeyPostDeleted, func(_ context.Context, _ []byte) error {
		calls++
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, RouteKeyPostCreated, PostCreated{PostID: "p-1"}))
	assert.Zero(t, calls)
	assert.Len(t, bus.Published(RouteKeyPostCreated), 1)
	assert.Empty(t, bus.Published(RouteKeyPostDeleted))
}

func TestMemoryBus_RetriesThenDeadLetters(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	attempts := 0
	require.NoError(t, bus.Subscribe(ctx, RouteKeyPostCreated, func(_ context.Context, _ []byte) error {
		attempts++
		return errors.New("handler failure")
	}))

	require.NoError(t, bus.Publish(ctx, RouteKeyPostCreated, PostCreated{PostID: "p-1"}))

	assert.Equal(t, MaxDeliveryAttempts, attempts)
	require.Len(t, bus.DeadLetters(), 1)
	assert.Equal(t, RouteKeyPostCreated, bus.DeadLetters()[0].RoutingKey)
}

func TestMemoryBus_RecoversWithinRetryBudget(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	attempts := 0
	require.NoError(t, bus.Subscribe(ctx, RouteKeyPostCreated, func(_ context.Context, _ []byte) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient failure")
		}
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, RouteKeyPostCreated, PostCreated{PostID: "p-1"}))

	assert.Equal(t, 2, attempts)
	assert.Empty(t, bus.DeadLetters())
}

func TestMemoryBus_ClosedRejectsPublish(t *testing.T) {
	bus := NewMemoryBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), RouteKeyPostCreated, PostCreated{PostID: "p-1"})
	assert.Error(t, err)
}
