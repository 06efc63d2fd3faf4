package event

import "sync"

// DefaultQueueCapacity bounds both session directions.
const DefaultQueueCapacity = 200

// Queue is a bounded FIFO safe for many producers and one consumer.
// A full queue rejects the newest event; it never blocks and never evicts.
type Queue struct {
	mu       sync.Mutex
	buf      []Event
	head     int
	n        int
	capacity int
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		buf:      make([]Event, capacity),
		capacity: capacity,
	}
}

// Enqueue appends e and reports false when the queue is at capacity.
func (q *Queue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == q.capacity {
		return false
	}
	q.buf[(q.head+q.n)%q.capacity] = e
	q.n++
	return true
}

// Dequeue pops the oldest event without blocking.
func (q *Queue) Dequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return Event{}, false
	}
	e := q.buf[q.head]
	q.buf[q.head] = Event{}
	q.head = (q.head + 1) % q.capacity
	q.n--
	return e, true
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.buf)
	q.head = 0
	q.n = 0
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

func (q *Queue) Capacity() int {
	return q.capacity
}
