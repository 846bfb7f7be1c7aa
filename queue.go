package conveyor

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

var (
	ErrInvalidCapacity = errors.New("invalid queue capacity")
)

// envelope wraps a queue element so the stop marker is a checked case rather than a sentinel payload.
type envelope[T any] struct {
	item T
	stop bool
}

// Queue is a FIFO shared by many producers and consumers, augmented with a close and a join operation.
//
// Close pushes one stop marker; each marker terminates exactly one consumer loop, so a queue feeding K
// consumers must be closed exactly K times. Join blocks until every pushed element, markers included,
// has been popped and acknowledged. All mutation is synchronized inside the queue, callers never need
// external locks.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	notFull  sync.Cond
	drained  sync.Cond

	buf      []envelope[T]
	capacity int // 0 means unbounded
	pending  int // pushed but not yet acknowledged, stop markers included

	metrics *queueMetrics
}

type queueConfig struct {
	capacity int
	name     string
	metrics  *Metrics
}

// QueueOption tunes a queue at construction.
type QueueOption func(*queueConfig)

// WithCapacity bounds the queue buffer. Push and Close block while the buffer is full, which gives
// backpressure between stages of different speed. Zero keeps the queue unbounded.
func WithCapacity(capacity int) QueueOption {
	return func(cfg *queueConfig) { cfg.capacity = capacity }
}

// WithMetrics instruments the queue under the given name on the pushed/popped/acked counters and the
// pending gauge of m.
func WithMetrics(m *Metrics, name string) QueueOption {
	return func(cfg *queueConfig) {
		cfg.metrics = m
		cfg.name = name
	}
}

// NewQueue builds an empty queue.
func NewQueue[T any](opts ...QueueOption) (*Queue[T], error) {
	var cfg queueConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.capacity)
	}
	q := &Queue[T]{
		capacity: cfg.capacity,
		metrics:  cfg.metrics.queue(cfg.name),
	}
	q.notEmpty.L = &q.mu
	q.notFull.L = &q.mu
	q.drained.L = &q.mu
	return q, nil
}

// Push appends an item to the back of the queue. It blocks while a bounded queue is full.
func (q *Queue[T]) Push(item T) {
	q.put(envelope[T]{item: item})
}

// Close pushes one stop marker. It must be called exactly once per consumer of the queue; like Push it
// blocks while a bounded queue is full. The marker counts in the pending accounting so Join stays
// consistent.
func (q *Queue[T]) Close() {
	q.put(envelope[T]{stop: true})
}

func (q *Queue[T]) put(e envelope[T]) {
	q.mu.Lock()
	for q.capacity > 0 && len(q.buf) >= q.capacity {
		q.notFull.Wait()
	}
	q.buf = append(q.buf, e)
	q.pending++
	q.notEmpty.Signal()
	q.mu.Unlock()
	q.metrics.pushed()
}

// Pop blocks until an element is available and returns it. stop reports that a stop marker was
// consumed instead of an item; the consumer must exit its loop in that case. Either outcome must be
// followed by Ack.
func (q *Queue[T]) Pop() (item T, stop bool) {
	q.mu.Lock()
	for len(q.buf) == 0 {
		q.notEmpty.Wait()
	}
	e := q.buf[0]
	q.buf[0] = envelope[T]{}
	q.buf = q.buf[1:]
	q.notFull.Signal()
	q.mu.Unlock()
	q.metrics.popped()
	return e.item, e.stop
}

// Ack marks one previously popped element as fully processed. It panics when called without a matching
// Pop, which is a caller protocol violation.
func (q *Queue[T]) Ack() {
	q.mu.Lock()
	if q.pending == 0 {
		q.mu.Unlock()
		panic("conveyor: Ack called without a matching Pop")
	}
	q.pending--
	if q.pending == 0 {
		q.drained.Broadcast()
	}
	q.mu.Unlock()
	q.metrics.acked()
}

// Join blocks until the pending count reaches zero. Producers must have stopped pushing before Join is
// called, otherwise it may return early or never.
func (q *Queue[T]) Join() {
	q.mu.Lock()
	for q.pending > 0 {
		q.drained.Wait()
	}
	q.mu.Unlock()
}

// All returns a sequence of items terminating on the next stop marker. Every yielded item is
// acknowledged after the consumer body returns, the terminating marker included, so ranging to
// exhaustion drains the caller's share of the queue. Breaking out early leaves the queue usable and
// the sequence can be ranged again.
func (q *Queue[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			item, stop := q.Pop()
			if stop {
				q.Ack()
				return
			}
			ok := yield(item)
			q.Ack()
			if !ok {
				return
			}
		}
	}
}

// Len returns the number of elements currently buffered, stop markers included.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Pending returns the number of elements pushed but not yet acknowledged, stop markers included.
func (q *Queue[T]) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}
