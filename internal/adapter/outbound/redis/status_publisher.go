package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/port/outbound"
)

const (
	defaultStatusChannel = "studio:status"
	defaultStatusPrefix  = "studio:session:"
)

// statusClient is the subset of the Redis client used by the publisher.
type statusClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// statusPublisherAdapter implements outbound.StatusPublisherPort.
type statusPublisherAdapter struct {
	client    statusClient
	channel   string
	keyPrefix string
	ttl       time.Duration
}

// NewStatusPublisherAdapter creates a status publisher that stores the last
// snapshot of each session under keyPrefix and publishes every snapshot on channel.
func NewStatusPublisherAdapter(client redis.UniversalClient, channel, keyPrefix string, ttl time.Duration) outbound.StatusPublisherPort {
	return newStatusPublisher(client, channel, keyPrefix, ttl)
}

func newStatusPublisher(client statusClient, channel, keyPrefix string, ttl time.Duration) *statusPublisherAdapter {
	if channel == "" {
		channel = defaultStatusChannel
	}
	if keyPrefix == "" {
		keyPrefix = defaultStatusPrefix
	}
	return &statusPublisherAdapter{
		client:    client,
		channel:   channel,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (a *statusPublisherAdapter) Publish(ctx context.Context, snap generation.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := a.client.Set(ctx, a.key(snap.SessionID), data, a.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	if err := a.client.Publish(ctx, a.channel, data).Err(); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (a *statusPublisherAdapter) Last(ctx context.Context, sessionID uuid.UUID) (*generation.Snapshot, error) {
	val, err := a.client.Get(ctx, a.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap generation.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (a *statusPublisherAdapter) Forget(ctx context.Context, sessionID uuid.UUID) error {
	return a.client.Del(ctx, a.key(sessionID)).Err()
}

func (a *statusPublisherAdapter) key(sessionID uuid.UUID) string {
	return a.keyPrefix + sessionID.String()
}

// Compile-time check
var _ outbound.StatusPublisherPort = (*statusPublisherAdapter)(nil)
