package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(Job{ID: "job-1", Type: "alert.created"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to success")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	require.Error(t, q.TryEnqueue(Job{ID: "job-1"}))
}

func TestQueueTryEnqueueFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	var full bool
	for i := 0; i < 5; i++ {
		if err := q.TryEnqueue(Job{ID: "job"}); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)
}

func TestQueueShutdownDrainsBufferedJobs(t *testing.T) {
	var processed int32
	gate := make(chan struct{})
	q := NewQueue("drain", func(ctx context.Context, job Job) error {
		<-gate
		atomic.AddInt32(&processed, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())
	for i := 0; i < 3; i++ {
		require.NoError(t, q.TryEnqueue(Job{ID: "job"}))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- q.Shutdown(context.Background()) }()
	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.stopping
	}, time.Second, time.Millisecond)
	assert.Error(t, q.TryEnqueue(Job{ID: "late"}))

	close(gate)
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&processed))
}

func TestQueueShutdownHonoursDeadline(t *testing.T) {
	q := NewQueue("slow", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	require.NoError(t, q.TryEnqueue(Job{ID: "job"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Shutdown(ctx), context.DeadlineExceeded)
	assert.NoError(t, q.Shutdown(context.Background()))
}
