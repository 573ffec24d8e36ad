// Package async provides panic-safe background execution for work that
// must not block or crash the request path, such as domain event delivery.
package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/huddlehq/huddle/pkg/observability"
)

// Go executes fn in a goroutine with a bounded context, panic recovery,
// and error logging. Use it instead of a bare `go func()`.
func Go(parent context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context) error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	go func() {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("background task panicked")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}

// Pool runs submitted tasks on a fixed set of workers. Each task gets a
// bounded context; panics are contained per task. Shutdown drains queued
// tasks before returning.
type Pool struct {
	taskName string
	timeout  time.Duration
	logger   *observability.Logger

	workCh       chan func(context.Context) error
	doneCh       chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewPool starts workers goroutines processing submitted tasks.
func NewPool(ctx context.Context, workers int, taskName string, timeout time.Duration, logger *observability.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	ctx, cancel := context.WithCancel(ctx)

	p := &Pool{
		taskName: taskName,
		timeout:  timeout,
		logger:   logger,
		workCh:   make(chan func(context.Context) error, workers*2),
		doneCh:   make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}

	go func() {
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.worker()
			}()
		}
		wg.Wait()
		close(p.doneCh)
	}()

	return p
}

// Submit queues a task. It fails once the pool has shut down.
func (p *Pool) Submit(fn func(context.Context) error) (err error) {
	select {
	case <-p.doneCh:
		return fmt.Errorf("pool %s shut down", p.taskName)
	default:
	}

	// Shutdown can close workCh between the check above and the send
	// below; the recover turns that panic into the shutdown error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pool %s shut down", p.taskName)
		}
	}()

	select {
	case p.workCh <- fn:
		return nil
	case <-p.doneCh:
		return fmt.Errorf("pool %s shut down", p.taskName)
	}
}

// Shutdown stops accepting tasks, drains the queue, and waits up to
// timeout for in-flight tasks to finish.
func (p *Pool) Shutdown(timeout time.Duration) error {
	var err error
	p.shutdownOnce.Do(func() {
		close(p.workCh)
		select {
		case <-p.doneCh:
		case <-time.After(timeout):
			err = fmt.Errorf("pool %s shutdown timed out after %v", p.taskName, timeout)
		}
		p.cancel()
	})
	return err
}

func (p *Pool) worker() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case fn, ok := <-p.workCh:
			if !ok {
				return
			}
			p.runTask(fn)
		}
	}
}

func (p *Pool) runTask(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(map[string]interface{}{
				"task":  p.taskName,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("pool task panicked")
		}
	}()

	if err := fn(ctx); err != nil {
		p.logger.WithError(err).WithField("task", p.taskName).Warn("pool task failed")
	}
}
