package events

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/team"
)

func TestLogChannelPublish(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)
	channel := NewLogChannel(logger)

	ev := team.MemberJoined{TeamID: "t1", UserID: "u2", Role: "member", JoinedAt: time.Now()}
	require.NoError(t, channel.Publish(context.Background(), ev))

	out := buf.String()
	assert.Contains(t, out, "team.member_joined")
	assert.Contains(t, out, "domain event published")
}

func TestRedisChannelPublish(t *testing.T) {
	srv := miniredis.RunT(t)

	ctx := context.Background()
	channel, err := NewRedisChannel(ctx, srv.Addr(), "", 0, "huddle.events")
	require.NoError(t, err)
	defer channel.Close()

	sub := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer sub.Close()
	pubsub := sub.Subscribe(ctx, "huddle.events")
	defer pubsub.Close()
	_, err = pubsub.Receive(ctx)
	require.NoError(t, err)

	ev := team.RoleChanged{TeamID: "t1", UserID: "u2", OldRole: "member", NewRole: "admin", ChangedAt: time.Now()}
	require.NoError(t, channel.Publish(ctx, ev))

	select {
	case msg := <-pubsub.Channel():
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, "team.role_changed", env.Name)
		assert.NotEmpty(t, env.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

type countingChannel struct {
	mu        sync.Mutex
	published []team.Event
}

func (c *countingChannel) Publish(ctx context.Context, ev team.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, ev)
	return nil
}

func TestAsyncChannelDeliversInBackground(t *testing.T) {
	inner := &countingChannel{}
	channel := NewAsyncChannel(context.Background(), inner, 2, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, channel.Publish(context.Background(), team.MemberLeft{TeamID: "t1", UserID: "u1"}))
	}

	require.NoError(t, channel.Close(), "close drains the queue")
	inner.mu.Lock()
	defer inner.mu.Unlock()
	assert.Len(t, inner.published, 5)
}

func TestRedisChannelConnectFailure(t *testing.T) {
	_, err := NewRedisChannel(context.Background(), "127.0.0.1:1", "", 0, "huddle.events")
	assert.Error(t, err)
}
