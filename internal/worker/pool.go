// Package worker runs background tasks on a fixed number of goroutines fed by an
// unbounded FIFO queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of background work. The context it receives is never
// cancelled by pool shutdown.
type Task func(ctx context.Context)

type queued struct {
	name    string
	run     Task
	abandon Task
}

type Pool struct {
	workers int
	log     *slog.Logger

	mu     sync.Mutex
	queue  []queued
	notify chan struct{}
}

func NewPool(workers int, log *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}

	return &Pool{
		workers: workers,
		log:     log,
		notify:  make(chan struct{}, 1),
	}
}

// Enqueue appends a task and returns at once; it never blocks on busy workers.
// abandon, if not nil, is called instead of task when the pool stops first.
func (p *Pool) Enqueue(name string, task, abandon Task) {
	p.mu.Lock()
	p.queue = append(p.queue, queued{name: name, run: task, abandon: abandon})
	p.mu.Unlock()

	p.wake()
}

// Pending is the number of tasks waiting for a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.queue)
}

// Run starts the workers and blocks until ctx is done and every task already
// taken from the queue has finished. Tasks still queued at that point are
// abandoned.
func (p *Pool) Run(ctx context.Context) error {
	const op = "internal.worker.Run"

	p.log.Info("worker pool started", slog.String("op", op), slog.Int("workers", p.workers))

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < p.workers; i++ {
		id := i
		g.Go(func() error {
			p.work(gctx, id)
			return nil
		})
	}

	err := g.Wait()

	dropped := p.drain(context.WithoutCancel(ctx))

	p.log.Info("worker pool stopped", slog.String("op", op), slog.Int("dropped", dropped))

	return err
}

// drain empties the queue, running the abandon hook of every task left in it.
func (p *Pool) drain(ctx context.Context) int {
	p.mu.Lock()
	left := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, t := range left {
		if t.abandon == nil {
			continue
		}

		p.execute(ctx, -1, queued{name: t.name, run: t.abandon})
	}

	return len(left)
}

func (p *Pool) work(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		t, ok := p.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-p.notify:
				continue
			}
		}

		p.execute(context.WithoutCancel(ctx), id, t)
	}
}

func (p *Pool) next() (queued, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return queued{}, false
	}

	t := p.queue[0]
	p.queue[0] = queued{}
	p.queue = p.queue[1:]

	if len(p.queue) > 0 {
		p.wake()
	}

	return t, true
}

func (p *Pool) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// execute runs t and keeps a panicking task from taking the worker down.
func (p *Pool) execute(ctx context.Context, id int, t queued) {
	const op = "internal.worker.execute"
	log := p.log.With(slog.String("op", op), slog.Int("worker", id), slog.String("task", t.name))

	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked",
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	log.Debug("task started")
	t.run(ctx)
	log.Debug("task finished")
}
