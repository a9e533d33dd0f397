// Package pool runs functions on a fixed set of workers fed by a bounded
// queue.
package pool

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrPoolTerminated = errors.New("pool is terminated")
	ErrTimeout        = errors.New("timeout")
)

type Pool struct {
	mux    sync.RWMutex
	closed bool

	tasks chan Task
	wait  sync.WaitGroup
	log   *zap.SugaredLogger
}

// NewPool starts workers goroutines reading from a queue holding up to size
// pending tasks.
func NewPool(size int, workers int, log *zap.SugaredLogger) *Pool {
	if log == nil {
		log = zap.S()
	}
	pool := &Pool{
		tasks: make(chan Task, size),
		log:   log,
	}

	pool.wait.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.consume()
	}

	return pool
}

func (p *Pool) SubmitFn(timeout time.Duration, fn func()) error {
	if fn == nil {
		return errors.New("fn is nil")
	}
	return p.Submit(timeout, &task{fn: fn, log: p.log})
}

// Submit queues task, waiting at most timeout for room in the queue.
func (p *Pool) Submit(timeout time.Duration, task Task) error {
	if task == nil {
		return errors.New("task is nil")
	}

	p.mux.RLock()
	defer p.mux.RUnlock()
	if p.closed {
		return ErrPoolTerminated
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case p.tasks <- task:
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}

func (p *Pool) consume() {
	defer p.wait.Done()
	for t := range p.tasks {
		t.Execute()
	}
}

// Shutdown stops accepting tasks and waits until the queued ones are done.
func (p *Pool) Shutdown() {
	p.mux.Lock()
	if p.closed {
		p.mux.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mux.Unlock()

	p.wait.Wait()
}
