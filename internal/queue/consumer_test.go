package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatfinder/internal/config"
)

const (
	testStream = "flatfinder:tasks"
	testGroup  = "workers"
)

// flakyHandler fails the first failures calls and records every task it sees.
type flakyHandler struct {
	mu       sync.Mutex
	failures int
	seen     []Task
}

func (h *flakyHandler) Handle(_ context.Context, msg redis.XMessage) error {
	task, err := DecodeTask(msg.Values)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, task)
	if h.failures > 0 {
		h.failures--
		return errors.New("object store unavailable")
	}
	return nil
}

func (h *flakyHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func newTestConsumer(t *testing.T, handler MessageHandler) (*Consumer, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	consumer := NewConsumer(client,
		config.WorkerRedisConfig{Stream: testStream, Group: testGroup, Consumer: "worker-1"},
		config.QueueConfig{ClaimInterval: 20 * time.Millisecond, BlockTimeout: 20 * time.Millisecond, BatchSize: 5},
		zerolog.Nop(),
		handler,
	)
	return consumer, client
}

func pendingCount(t *testing.T, client *redis.Client) int64 {
	t.Helper()
	pending, err := client.XPending(context.Background(), testStream, testGroup).Result()
	require.NoError(t, err)
	return pending.Count
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	consumer, client := newTestConsumer(t, &flakyHandler{})
	ctx := context.Background()

	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, consumer.EnsureGroup(ctx), "existing group is not an error")

	exists, err := client.Exists(ctx, testStream).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, exists, "stream is created with the group")
	assert.Zero(t, pendingCount(t, client))
}

func TestReadAcknowledgesHandledTasks(t *testing.T) {
	handler := &flakyHandler{}
	consumer, client := newTestConsumer(t, handler)
	ctx := context.Background()
	require.NoError(t, consumer.EnsureGroup(ctx))

	require.NoError(t, NewPublisher(client, testStream).Publish(ctx, PurgePhotos("flat-1")))
	require.NoError(t, consumer.read(ctx))

	require.Equal(t, 1, handler.calls())
	assert.Equal(t, PurgePhotos("flat-1"), handler.seen[0])
	assert.Zero(t, pendingCount(t, client))
}

func TestFailedTaskIsReclaimedAndRetried(t *testing.T) {
	handler := &flakyHandler{failures: 1}
	consumer, client := newTestConsumer(t, handler)
	ctx := context.Background()
	require.NoError(t, consumer.EnsureGroup(ctx))

	require.NoError(t, NewPublisher(client, testStream).Publish(ctx, PurgePhotos("flat-2")))
	require.NoError(t, consumer.read(ctx))
	require.Equal(t, 1, handler.calls())
	assert.EqualValues(t, 1, pendingCount(t, client), "failed task stays pending")

	// Nothing new to read; the entry only comes back through a claim.
	require.NoError(t, consumer.read(ctx))
	assert.Equal(t, 1, handler.calls())

	time.Sleep(3 * consumer.claimInterval)
	require.NoError(t, consumer.claimStalled(ctx))

	require.Equal(t, 2, handler.calls())
	assert.Equal(t, PurgePhotos("flat-2"), handler.seen[1])
	assert.Zero(t, pendingCount(t, client))
}

func TestClaimSkipsFreshEntries(t *testing.T) {
	handler := &flakyHandler{failures: 1}
	consumer, client := newTestConsumer(t, handler)
	consumer.claimInterval = time.Hour
	ctx := context.Background()
	require.NoError(t, consumer.EnsureGroup(ctx))

	require.NoError(t, NewPublisher(client, testStream).Publish(ctx, PurgePhotos("flat-3")))
	require.NoError(t, consumer.read(ctx))
	require.NoError(t, consumer.claimStalled(ctx))

	assert.Equal(t, 1, handler.calls())
	assert.EqualValues(t, 1, pendingCount(t, client))
}

func TestStartProcessesUntilCancelled(t *testing.T) {
	handler := &flakyHandler{failures: 1}
	consumer, client := newTestConsumer(t, handler)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, NewPublisher(client, testStream).Publish(ctx, PurgePhotos("flat-4")))

	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	assert.Eventually(t, func() bool {
		pending, err := client.XPending(context.Background(), testStream, testGroup).Result()
		return err == nil && pending.Count == 0 && handler.calls() >= 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
