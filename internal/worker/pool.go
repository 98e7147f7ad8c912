// Package worker runs fire-and-forget background tasks on a bounded pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/portal-admin/internal/logging"
)

// ErrPoolClosed is returned by Submit after Stop
var ErrPoolClosed = errors.New("worker pool stopped")

// ErrQueueFull is returned by Submit when the backlog is at capacity
var ErrQueueFull = errors.New("worker queue full")

// Task is one unit of background work
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Observer is notified after every task completes
type Observer func(name string, err error, elapsed time.Duration)

// Pool runs tasks on a fixed number of goroutines. Submitting never blocks the
// caller: when the backlog is full the task is dropped and reported.
type Pool struct {
	mu       sync.RWMutex
	tasks    chan Task
	workers  int
	timeout  time.Duration
	observer Observer
	wg       sync.WaitGroup
	stopCh   chan struct{}
	started  bool
	stopped  bool
	logger   *logging.Logger
}

// Config holds pool settings
type Config struct {
	Workers   int
	QueueSize int
	// TaskTimeout bounds each task run; zero means 30s
	TaskTimeout time.Duration
	Observer    Observer
	Logger      *logging.Logger
}

// NewPool creates a pool. Call Start before submitting.
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 128
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetGlobalLogger()
	}

	return &Pool{
		tasks:    make(chan Task, cfg.QueueSize),
		workers:  cfg.Workers,
		timeout:  cfg.TaskTimeout,
		observer: cfg.Observer,
		stopCh:   make(chan struct{}),
		logger:   cfg.Logger.WithField("component", "worker_pool"),
	}
}

// Start launches the workers. Tasks run with a context derived from ctx.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("pool already started")
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	return nil
}

// Submit queues a task without blocking
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		p.logger.WithField("task", task.Name).Warn("dropping background task: queue full")
		return ErrQueueFull
	}
}

// Stop stops accepting tasks, drains the backlog and waits for the workers,
// giving up when ctx ends
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return fmt.Errorf("pool already stopped")
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		close(p.stopCh)
		return ctx.Err()
	}
}

// Pending returns the number of queued tasks
func (p *Pool) Pending() int {
	return len(p.tasks)
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.execute(ctx, task)
		}
	}
}

func (p *Pool) execute(ctx context.Context, task Task) {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		return task.Run(taskCtx)
	}()
	elapsed := time.Since(start)

	if err != nil {
		p.logger.WithFields(map[string]interface{}{
			"task":       task.Name,
			"elapsed_ms": elapsed.Milliseconds(),
		}).WithError(err).Error("background task failed")
	}
	if p.observer != nil {
		p.observer(task.Name, err, elapsed)
	}
}
