package conveyor_test

import (
	"slices"
	"testing"
	"time"

	"github.com/fogfactory/conveyor"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/lo"
)

func InitQueue[T any](t testing.TB, opts ...conveyor.QueueOption) *conveyor.Queue[T] {
	q, err := conveyor.NewQueue[T](opts...)
	td.Require(t).CmpNoError(err)
	return q
}

// returnsWithin reports whether fn returned before the timeout. It is the tool to observe blocking
// calls (Join on a non-drained queue, Push on a full queue) without hanging the test.
func returnsWithin(timeout time.Duration, fn func()) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestQueue(t *testing.T) {
	t.Run("error_invalid_capacity", func(t *testing.T) {
		// Act
		_, err := conveyor.NewQueue[int](conveyor.WithCapacity(-1))

		// Assert
		td.CmpErrorIs(t, err, conveyor.ErrInvalidCapacity)
	})

	t.Run("fifo_single_consumer", func(t *testing.T) {
		// Arrange
		q := InitQueue[int](t)
		input := lo.Range(10)

		// Act
		for _, i := range input {
			q.Push(i)
		}

		// Assert
		for _, want := range input {
			item, stop := q.Pop()
			td.CmpFalse(t, stop)
			td.Cmp(t, item, want)
			q.Ack()
		}
		td.Cmp(t, q.Pending(), 0)
		td.CmpTrue(t, returnsWithin(time.Second, q.Join), "Join should return on a drained queue")
	})

	t.Run("pending_counts_stop_markers", func(t *testing.T) {
		// Arrange
		q := InitQueue[string](t)

		// Act
		q.Push("a")
		q.Push("b")
		q.Close()

		// Assert
		td.Cmp(t, q.Len(), 3)
		td.Cmp(t, q.Pending(), 3)
		_, stop := q.Pop()
		td.CmpFalse(t, stop)
		td.Cmp(t, q.Len(), 2)
		td.Cmp(t, q.Pending(), 3, "popped but not acknowledged elements stay pending")
		q.Ack()
		td.Cmp(t, q.Pending(), 2)
	})

	t.Run("iterator_drains_to_marker", func(t *testing.T) {
		// Arrange
		q := InitQueue[int](t)
		input := lo.Range(5)
		for _, i := range input {
			q.Push(i)
		}
		q.Close()

		// Act
		results := slices.Collect(q.All())

		// Assert
		td.Cmp(t, results, input)
		td.Cmp(t, q.Pending(), 0, "the iterator acknowledges every element, marker included")
		td.CmpTrue(t, returnsWithin(time.Second, q.Join))
	})

	t.Run("iterator_restartable_after_break", func(t *testing.T) {
		// Arrange
		q := InitQueue[int](t)
		q.Push(1)
		q.Push(2)

		// Act
		var first int
		for item := range q.All() {
			first = item
			break
		}
		q.Close()
		rest := slices.Collect(q.All())

		// Assert
		td.Cmp(t, first, 1)
		td.Cmp(t, rest, []int{2})
		td.Cmp(t, q.Pending(), 0)
	})

	t.Run("join_waits_for_ack", func(t *testing.T) {
		// Arrange
		q := InitQueue[int](t)
		q.Push(42)
		_, stop := q.Pop()
		td.CmpFalse(t, stop)

		// Act & Assert
		td.CmpFalse(t, returnsWithin(50*time.Millisecond, q.Join), "Join must block while an element is popped but not acknowledged")
		q.Ack()
		td.CmpTrue(t, returnsWithin(time.Second, q.Join))
	})

	t.Run("join_idempotent_once_drained", func(t *testing.T) {
		// Arrange
		q := InitQueue[int](t)
		q.Push(1)
		q.Close()
		_ = slices.Collect(q.All())

		// Act & Assert
		for i := 0; i < 3; i++ {
			td.CmpTrue(t, returnsWithin(time.Second, q.Join), "Join #%d should return immediately", i+1)
		}
	})

	t.Run("bounded_queue_backpressure", func(t *testing.T) {
		// Arrange
		q := InitQueue[int](t, conveyor.WithCapacity(1))
		q.Push(1)
		pushed := make(chan struct{})

		// Act
		go func() {
			defer close(pushed)
			q.Push(2)
		}()

		// Assert
		select {
		case <-pushed:
			t.Fatal("Push on a full queue should block")
		case <-time.After(50 * time.Millisecond):
		}
		item, _ := q.Pop()
		q.Ack()
		td.Cmp(t, item, 1)
		select {
		case <-pushed:
		case <-time.After(time.Second):
			t.Fatal("Push should complete once room is made")
		}
		item, _ = q.Pop()
		q.Ack()
		td.Cmp(t, item, 2)
	})

	t.Run("one_marker_terminates_one_consumer", func(t *testing.T) {
		// Arrange
		q := InitQueue[int](t)
		exited := make(chan struct{}, 2)
		for i := 0; i < 2; i++ {
			go func() {
				for range q.All() {
					// drain
				}
				exited <- struct{}{}
			}()
		}

		// Act & Assert: one close stops exactly one of the two consumers
		q.Close()
		select {
		case <-exited:
		case <-time.After(time.Second):
			t.Fatal("one consumer should have exited after the first close")
		}
		select {
		case <-exited:
			t.Fatal("a single stop marker must not terminate both consumers")
		case <-time.After(50 * time.Millisecond):
		}

		// A second close stops the remaining consumer
		q.Close()
		select {
		case <-exited:
		case <-time.After(time.Second):
			t.Fatal("second close should terminate the remaining consumer")
		}
	})

	t.Run("panic_ack_without_pop", func(t *testing.T) {
		// Arrange
		q := InitQueue[int](t)

		// Act & Assert
		td.CmpPanic(t, q.Ack, td.Contains("Ack called without a matching Pop"))
	})

	t.Run("concurrent_producers_and_consumers", func(t *testing.T) {
		// Arrange
		const producers, consumers, perProducer = 4, 3, 250
		q := InitQueue[int](t, conveyor.WithCapacity(16))
		collected := make(chan int, producers*perProducer)
		consumed := make(chan struct{}, consumers)
		for i := 0; i < consumers; i++ {
			go func() {
				for item := range q.All() {
					collected <- item
				}
				consumed <- struct{}{}
			}()
		}

		// Act
		produced := make(chan struct{}, producers)
		for p := 0; p < producers; p++ {
			go func(base int) {
				for i := 0; i < perProducer; i++ {
					q.Push(base + i)
				}
				produced <- struct{}{}
			}(p * perProducer)
		}
		for p := 0; p < producers; p++ {
			<-produced
		}
		for c := 0; c < consumers; c++ {
			q.Close()
		}
		for c := 0; c < consumers; c++ {
			<-consumed
		}
		close(collected)

		// Assert
		results := lo.ChannelToSlice(collected)
		expected := lo.Map(lo.Range(producers*perProducer), func(i, _ int) any { return i })
		td.CmpBag(t, results, expected)
		td.Cmp(t, q.Pending(), 0)
	})
}
