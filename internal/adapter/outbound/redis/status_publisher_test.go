package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// MockStatusClient keeps values in memory and records published messages.
type MockStatusClient struct {
	mu        sync.Mutex
	values    map[string]string
	ttls      map[string]time.Duration
	published map[string][]string
	failSet   error
}

func newMockStatusClient() *MockStatusClient {
	return &MockStatusClient{
		values:    make(map[string]string),
		ttls:      make(map[string]time.Duration),
		published: make(map[string][]string),
	}
}

func (m *MockStatusClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return redis.NewStatusResult("", m.failSet)
	}
	m.values[key] = string(value.([]byte))
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *MockStatusClient) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MockStatusClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *MockStatusClient) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[channel] = append(m.published[channel], string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func TestStatusPublisher(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	snap := generation.Snapshot{
		SessionID: id,
		Kind:      generation.KindTextToVideo,
		Status:    generation.StatusRunning,
		Progress:  42,
		Execution: 1,
		Version:   3,
	}

	t.Run("publish stores and broadcasts", func(t *testing.T) {
		client := newMockStatusClient()
		pub := newStatusPublisher(client, "", "", time.Hour)

		require.NoError(t, pub.Publish(ctx, snap))
		assert.Len(t, client.published[defaultStatusChannel], 1)
		assert.Equal(t, time.Hour, client.ttls[defaultStatusPrefix+id.String()])

		last, err := pub.Last(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, 42, last.Progress)
		assert.Equal(t, generation.StatusRunning, last.Status)
	})

	t.Run("last is nil for unknown sessions", func(t *testing.T) {
		pub := newStatusPublisher(newMockStatusClient(), "c", "p:", 0)
		last, err := pub.Last(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, last)
	})

	t.Run("forget removes the snapshot", func(t *testing.T) {
		client := newMockStatusClient()
		pub := newStatusPublisher(client, "c", "p:", 0)
		require.NoError(t, pub.Publish(ctx, snap))
		require.NoError(t, pub.Forget(ctx, id))

		last, err := pub.Last(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, last)
	})

	t.Run("store failure skips broadcast", func(t *testing.T) {
		client := newMockStatusClient()
		client.failSet = errors.New("READONLY")
		pub := newStatusPublisher(client, "c", "p:", 0)

		err := pub.Publish(ctx, snap)
		assert.ErrorContains(t, err, "READONLY")
		assert.Empty(t, client.published["c"])
	})
}
