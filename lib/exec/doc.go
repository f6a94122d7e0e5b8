// Package exec provides the execution substrate the session engine runs on.
//
// Key Components:
//
//   - Executor: anything callbacks can be posted to.
//
//   - Loop: a run-loop made of a lock-free task queue and a timer heap. I/O
//     completions and due timers are posted to it from any goroutine and
//     executed by the goroutines that call Run. One Run goroutine gives a
//     single-threaded cooperative loop: a callback that blocks stalls every
//     other callback. N Run goroutines give a shared executor where callbacks
//     of different owners run in parallel.
//
//   - Strand: a serialization domain on top of an Executor. At most one task
//     of a strand runs at a time, in submission order, on whichever worker
//     claims it. Strands are not locks: nothing blocks while waiting for a
//     strand, the waiting tasks simply stay queued.
//
// Timers:
//
//	Loop.AfterFunc arms a timer, Loop.Cancel disarms it. Due callbacks are
//	posted to the task queue, so they obey the same execution rules as any
//	other callback. Closing the loop drops all armed timers.
//
// Panics:
//
//	A panicking task is recovered and logged; the worker keeps running.
package exec
