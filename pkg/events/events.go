// Package events delivers membership domain events to downstream
// consumers. Channels implement the publisher contract the team service
// expects: publication happens strictly after the state change that
// produced the event has been persisted, and a failed publish never fails
// the originating command.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/huddlehq/huddle/pkg/async"
	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/team"
)

// Channel publishes one domain event. Implementations must be safe for
// concurrent use.
type Channel interface {
	Publish(ctx context.Context, ev team.Event) error
}

// Envelope is the wire form of a published event. The payload carries the
// event's own fields.
type Envelope struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// LogChannel writes events to the structured log. It is the default
// channel when no broker is configured.
type LogChannel struct {
	logger *observability.Logger
}

// NewLogChannel creates a log-backed channel.
func NewLogChannel(logger *observability.Logger) *LogChannel {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Publish(ctx context.Context, ev team.Event) error {
	c.logger.WithFields(map[string]interface{}{
		"event_id": uuid.NewString(),
		"event":    ev.EventName(),
		"payload":  ev,
	}).Info("domain event published")
	return nil
}

// RedisChannel publishes events to a Redis pub/sub channel as JSON
// envelopes. Consumers subscribe to the configured channel name.
type RedisChannel struct {
	client  *redis.Client
	channel string
}

// NewRedisChannel connects to Redis and verifies the connection.
func NewRedisChannel(ctx context.Context, addr, password string, db int, channel string) (*RedisChannel, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisChannel{client: client, channel: channel}, nil
}

func (c *RedisChannel) Publish(ctx context.Context, ev team.Event) error {
	env := Envelope{
		ID:         uuid.NewString(),
		Name:       ev.EventName(),
		OccurredAt: time.Now().UTC(),
		Payload:    ev,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", ev.EventName(), err)
	}
	if err := c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", ev.EventName(), err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *RedisChannel) Close() error {
	return c.client.Close()
}

// AsyncChannel decorates another channel with background delivery so a
// slow broker never blocks the command path. Publish enqueues and returns
// immediately; delivery failures are the pool's to log.
type AsyncChannel struct {
	inner Channel
	pool  *async.Pool
}

// NewAsyncChannel starts delivery workers over the inner channel.
func NewAsyncChannel(ctx context.Context, inner Channel, workers int, logger *observability.Logger) *AsyncChannel {
	return &AsyncChannel{
		inner: inner,
		pool:  async.NewPool(ctx, workers, "event delivery", 10*time.Second, logger),
	}
}

func (c *AsyncChannel) Publish(ctx context.Context, ev team.Event) error {
	return c.pool.Submit(func(taskCtx context.Context) error {
		return c.inner.Publish(taskCtx, ev)
	})
}

// Close drains queued events and stops the workers.
func (c *AsyncChannel) Close() error {
	return c.pool.Shutdown(30 * time.Second)
}
