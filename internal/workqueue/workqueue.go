// Package workqueue provides the single-worker serialization context that
// session and orchestrator state is mutated on.
//
// Tasks run one at a time in submission order. Submitting never blocks the
// caller, so host threads delivering events cannot stall on the worker.
package workqueue

import (
	"errors"
	"sync"

	logs "github.com/danmuck/assurance/internal/logging"
)

var ErrClosed = errors.New("workqueue: closed")

type Queue struct {
	name   string
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
	done   chan struct{}
}

// New starts the worker goroutine for a named queue.
func New(name string) *Queue {
	q := &Queue{
		name: name,
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Async schedules fn and returns immediately.
func (q *Queue) Async(fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.tasks = append(q.tasks, fn)
	q.cond.Signal()
	return nil
}

// Sync schedules fn and waits for it to finish. Calling Sync from a task
// running on the same queue deadlocks.
func (q *Queue) Sync(fn func()) error {
	finished := make(chan struct{})
	if err := q.Async(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-q.done:
		// Close may drop the task before it runs.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Close stops the worker after the task currently running; queued tasks are
// discarded.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := len(q.tasks)
	q.tasks = nil
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
	if dropped > 0 {
		logs.Debugf("workqueue.Queue.Close name=%s dropped=%d", q.name, dropped)
	}
}

// Pending reports the number of tasks waiting to run.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		fn := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.invoke(fn)
	}
}

func (q *Queue) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("workqueue.Queue task panic name=%s panic=%v", q.name, r)
		}
	}()
	fn()
}
