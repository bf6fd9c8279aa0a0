package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_RunsTasksInOrder(t *testing.T) {
	pool := NewPool(1, discardLogger())

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		pool.Enqueue("task", func(context.Context) {
			defer wg.Done()

			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}, nil)
	}

	assert.Equal(t, 50, pool.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- pool.Run(ctx) }()

	wg.Wait()
	cancel()
	require.NoError(t, <-done)

	require.Len(t, order, 50)

	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestPool_UsesAllWorkers(t *testing.T) {
	const workers = 3

	pool := NewPool(workers, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = pool.Run(ctx) }()

	started := make(chan struct{}, workers)
	release := make(chan struct{})

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		pool.Enqueue("blocking", func(context.Context) {
			defer wg.Done()
			started <- struct{}{}
			<-release
		}, nil)
	}

	for i := 0; i < workers; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d tasks started concurrently", i, workers)
		}
	}

	close(release)
	wg.Wait()
}

func TestPool_SurvivesPanic(t *testing.T) {
	pool := NewPool(1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = pool.Run(ctx) }()

	ran := make(chan struct{})

	pool.Enqueue("panics", func(context.Context) { panic("boom") }, nil)
	pool.Enqueue("after", func(context.Context) { close(ran) }, nil)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task after panic did not run")
	}
}

func TestPool_RunningTaskOutlivesShutdown(t *testing.T) {
	pool := NewPool(1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- pool.Run(ctx) }()

	started := make(chan struct{})
	taskErr := make(chan error, 1)

	pool.Enqueue("long", func(taskCtx context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		taskErr <- taskCtx.Err()
	}, nil)

	<-started
	cancel()

	require.NoError(t, <-done)
	assert.NoError(t, <-taskErr)
}

func TestPool_AbandonsQueuedTasksOnShutdown(t *testing.T) {
	pool := NewPool(1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- pool.Run(ctx) }()

	started := make(chan struct{})
	release := make(chan struct{})

	pool.Enqueue("busy", func(context.Context) {
		close(started)
		<-release
	}, nil)

	var (
		mu        sync.Mutex
		ran       []string
		abandoned []string
	)

	for _, name := range []string{"first", "second"} {
		pool.Enqueue(name, func(context.Context) {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
		}, func(hookCtx context.Context) {
			assert.NoError(t, hookCtx.Err())

			mu.Lock()
			abandoned = append(abandoned, name)
			mu.Unlock()
		})
	}

	pool.Enqueue("no hook", func(context.Context) {
		mu.Lock()
		ran = append(ran, "no hook")
		mu.Unlock()
	}, nil)

	<-started
	cancel()
	close(release)

	require.NoError(t, <-done)

	assert.Empty(t, ran)
	assert.Equal(t, []string{"first", "second"}, abandoned)
	assert.Zero(t, pool.Pending())
}
