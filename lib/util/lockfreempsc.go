package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// maxBackoffShift caps the number of yields a producer does after a lost CAS
const maxBackoffShift = 8

// link is one cell of the queue's singly linked list. The list always starts
// with an empty cell, the value of the cell after it is the next to deliver.
type link[T any] struct {
	value *T
	next  atomic.Pointer[link[T]]
}

// LockFreeMPSC is an unbounded multi-producer single-consumer queue.
//
// Producers append with compare-and-swap and never wait for each other. A
// single internal goroutine moves values to the Recv channel in list order,
// so values pushed by one goroutine (or by goroutines ordered through a
// strand) arrive in push order. Concurrent producers are ordered by whoever
// links first.
//
// Every Push that returns true is delivered, even when Close runs
// concurrently.
type LockFreeMPSC[T any] struct {
	first atomic.Pointer[link[T]] // consumer end, already delivered
	last  atomic.Pointer[link[T]] // producer end, may lag behind by one cell

	out       chan *T
	closed    atomic.Bool
	producers atomic.Int32 // pushes between their closed check and their link
	pending   atomic.Int64

	mu   sync.Mutex // consumer sleep/wake handshake
	cond *sync.Cond
}

// NewLockFreeMPSC returns an open queue with a running consumer goroutine.
// The goroutine exits once the queue is closed and drained.
func NewLockFreeMPSC[T any]() *LockFreeMPSC[T] {
	q := &LockFreeMPSC[T]{out: make(chan *T)}
	q.cond = sync.NewCond(&q.mu)

	empty := &link[T]{}
	q.first.Store(empty)
	q.last.Store(empty)

	go q.consume()
	return q
}

// Push appends value. It returns false for nil values and once the queue is
// closed; the value is then not delivered.
func (q *LockFreeMPSC[T]) Push(value *T) bool {
	if value == nil {
		return false
	}

	q.producers.Add(1)
	defer q.producers.Add(-1)

	if q.closed.Load() {
		return false
	}

	q.pending.Add(1)
	cell := &link[T]{value: value}
	for attempt := 0; !q.tryLink(cell); attempt++ {
		yield(attempt)
	}
	q.wake()
	return true
}

// tryLink makes one attempt to link cell behind the current last cell
func (q *LockFreeMPSC[T]) tryLink(cell *link[T]) bool {
	last := q.last.Load()

	if next := last.next.Load(); next != nil {
		// a producer linked its cell but has not advanced last yet
		q.last.CompareAndSwap(last, next)
		return false
	}
	if !last.next.CompareAndSwap(nil, cell) {
		return false
	}
	q.last.CompareAndSwap(last, cell)
	return true
}

func yield(attempt int) {
	shift := attempt
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	for i := 0; i < 1<<shift; i++ {
		runtime.Gosched()
	}
}

func (q *LockFreeMPSC[T]) wake() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

func (q *LockFreeMPSC[T]) empty() bool {
	return q.first.Load().next.Load() == nil
}

// take unlinks the next value, only the consumer goroutine calls it
func (q *LockFreeMPSC[T]) take() (*T, bool) {
	next := q.first.Load().next.Load()
	if next == nil {
		return nil, false
	}
	q.first.Store(next)

	value := next.value
	next.value = nil
	return value, true
}

func (q *LockFreeMPSC[T]) consume() {
	defer close(q.out)

	for {
		if value, ok := q.take(); ok {
			q.out <- value
			q.pending.Add(-1)
			continue
		}
		if !q.await() {
			return
		}
	}
}

// await parks the consumer until the list is non-empty. It returns false
// when the queue is closed, drained and no Push can still link a value.
func (q *LockFreeMPSC[T]) await() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.empty() {
		if !q.closed.Load() {
			q.cond.Wait()
			continue
		}
		// closed must be read before producers, producers before the list
		if q.producers.Load() == 0 && q.empty() {
			return false
		}
		q.mu.Unlock()
		runtime.Gosched()
		q.mu.Lock()
	}
	return true
}

// Recv returns the channel values are delivered on. It is closed after Close
// once every accepted value was received.
func (q *LockFreeMPSC[T]) Recv() <-chan *T {
	return q.out
}

// Close rejects further pushes. Values already accepted are still delivered.
func (q *LockFreeMPSC[T]) Close() {
	q.closed.Store(true)
	q.wake()
}

func (q *LockFreeMPSC[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of accepted values not yet received
func (q *LockFreeMPSC[T]) Len() int {
	return int(q.pending.Load())
}
