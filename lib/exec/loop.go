package exec

import (
	"context"
	"github.com/ValentinKolb/lsrv/lib/util"
	"github.com/lni/dragonboat/v4/logger"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("exec")

// Executor runs posted callbacks. Post returns false if the executor no
// longer accepts work (e.g. after Close).
type Executor interface {
	Post(fn func()) bool
}

// TimerID identifies a timer armed with Loop.AfterFunc
type TimerID uint64

type task func()

// Loop is a run-loop: a task queue plus a timer queue. Callbacks are posted
// from any goroutine (I/O completions, timers, other callbacks) and executed
// by the goroutines that call Run. With one Run goroutine the loop is a
// single-threaded cooperative executor; with N of them callbacks may execute
// in parallel and ordering is left to strands.
type Loop struct {
	queue *util.LockFreeMPSC[task]

	timersMu  sync.Mutex
	timers    *util.MapHeap
	callbacks map[uint64]func()
	nextTimer atomic.Uint64
	wake      chan struct{}

	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Int32
}

// NewLoop creates a loop and starts its timer goroutine. No callback runs
// before at least one goroutine calls Run.
func NewLoop() *Loop {
	l := &Loop{
		queue:     util.NewLockFreeMPSC[task](),
		timers:    util.NewMapHeap(),
		callbacks: make(map[uint64]func()),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go l.pumpTimers()
	return l
}

// --------------------------------------------------------------------------
// Interface Methods (docu see Executor)
// --------------------------------------------------------------------------

func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	t := task(fn)
	return l.queue.Push(&t)
}

// --------------------------------------------------------------------------
// Timers
// --------------------------------------------------------------------------

// AfterFunc arms a timer that posts fn to the loop once d has elapsed.
// The callback runs on a Run goroutine like any other task, never on the
// timer goroutine itself.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (TimerID, bool) {
	if fn == nil || l.closed.Load() {
		return 0, false
	}

	id := l.nextTimer.Add(1)
	deadline := time.Now().Add(d).UnixNano()

	l.timersMu.Lock()
	l.timers.AddItem(id, uint64(deadline))
	l.callbacks[id] = fn
	l.timersMu.Unlock()

	// the new timer may be the earliest one
	select {
	case l.wake <- struct{}{}:
	default:
	}

	return TimerID(id), true
}

// Cancel disarms a timer. It returns false if the timer already fired (its
// callback is posted or running) or never existed.
func (l *Loop) Cancel(id TimerID) bool {
	l.timersMu.Lock()
	defer l.timersMu.Unlock()

	if _, ok := l.timers.RemoveByKey(uint64(id)); !ok {
		return false
	}
	delete(l.callbacks, uint64(id))
	return true
}

// Timers returns the number of armed timers
func (l *Loop) Timers() int {
	l.timersMu.Lock()
	defer l.timersMu.Unlock()
	return l.timers.Len()
}

// collectDue pops every timer whose deadline is not after now. It returns
// the callbacks in deadline order and the time until the next deadline
// (-1 if no timer is armed).
func (l *Loop) collectDue(now time.Time) ([]func(), time.Duration) {
	l.timersMu.Lock()
	defer l.timersMu.Unlock()

	var due []func()
	nowNs := uint64(now.UnixNano())
	for {
		key, deadline, ok := l.timers.Peek()
		if !ok {
			return due, -1
		}
		if deadline > nowNs {
			return due, time.Duration(deadline - nowNs)
		}
		l.timers.PopMin()
		due = append(due, l.callbacks[key])
		delete(l.callbacks, key)
	}
}

// pumpTimers sleeps until the earliest deadline and posts due callbacks
func (l *Loop) pumpTimers() {
	for {
		due, wait := l.collectDue(time.Now())
		for _, fn := range due {
			if !l.Post(fn) {
				return
			}
		}

		var timer *time.Timer
		var fire <-chan time.Time
		if wait >= 0 {
			timer = time.NewTimer(wait)
			fire = timer.C
		}

		select {
		case <-l.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-l.wake:
		case <-fire:
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

// --------------------------------------------------------------------------
// Running
// --------------------------------------------------------------------------

// Run executes posted callbacks until ctx is cancelled or the loop is closed
// and drained. Any number of goroutines may call Run on the same loop.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Add(1)
	defer l.running.Add(-1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-l.queue.Recv():
			if !ok {
				return nil
			}
			safeRun(*t)
		}
	}
}

// Close stops accepting tasks and timers. Tasks already queued are still
// handed to Run goroutines; armed timers are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.queue.Close()
		close(l.done)

		l.timersMu.Lock()
		dropped := l.timers.Len()
		l.timers = util.NewMapHeap()
		l.callbacks = make(map[uint64]func())
		l.timersMu.Unlock()

		if dropped > 0 {
			Logger.Debugf("loop closed with %d armed timers", dropped)
		}
	})
}

// Pending returns the number of queued callbacks not yet picked up by a Run goroutine
func (l *Loop) Pending() int {
	return l.queue.Len()
}

// Workers returns the number of goroutines currently inside Run
func (l *Loop) Workers() int {
	return int(l.running.Load())
}

// safeRun executes fn and logs a panic instead of letting it kill the worker.
// A failing callback only affects the session it belongs to.
func safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("recovered panic in task: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}
