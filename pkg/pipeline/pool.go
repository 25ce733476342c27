package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

var ErrPoolFailed = errors.New("worker pool stopped after a task failure")

type Task func() error

// PanicError is returned for a task that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Pool runs tasks on a fixed number of goroutines. The first task error is
// kept; once it is set, queued tasks are skipped and Submit refuses new ones.
type Pool struct {
	numWorkers int
	tasks      chan Task
	once       sync.Once
	wg         sync.WaitGroup

	errOnce sync.Once
	err     error
	failed  chan struct{}
}

func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		tasks:      make(chan Task, numWorkers),
		failed:     make(chan struct{}),
	}
}

func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.numWorkers; i++ {
			p.wg.Go(func() {
				for task := range p.tasks {
					if task == nil || p.hasFailed() {
						continue
					}
					if err := run(task); err != nil {
						p.fail(err)
					}
				}
			})
		}
	})
}

func run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return task()
}

func (p *Pool) fail(err error) {
	p.errOnce.Do(func() {
		p.err = err
		close(p.failed)
	})
}

func (p *Pool) hasFailed() bool {
	select {
	case <-p.failed:
		return true
	default:
		return false
	}
}

// Failed is closed when the first task fails.
func (p *Pool) Failed() <-chan struct{} {
	return p.failed
}

// Submit blocks until a worker can take task, ctx is done or the pool has
// failed.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if p.hasFailed() {
		return ErrPoolFailed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.failed:
		return ErrPoolFailed
	}
}

// Close stops accepting tasks, waits for the workers and returns the first
// task error.
func (p *Pool) Close() error {
	close(p.tasks)
	p.wg.Wait()
	return p.err
}
