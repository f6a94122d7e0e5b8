// Package engine implements the concurrent session-handling core of the line
// servers: the acceptor, the session state machine and the three executor
// modes it runs on.
//
// Every connection is a session cycling through
//
//	Reading -> Dispatching -> Replying -> Reading ... -> Closed
//
// and never reads its next line before the reply to the current one (or the
// acknowledgment of a reminder) was written. Replies on one connection are
// therefore delivered in request order; a reminder's message follows its
// acknowledgment.
//
// Executor modes:
//
//   - threaded: one goroutine per connection with blocking I/O. Sessions share
//     nothing, reminders use runtime timers and there is no shared log.
//
//   - loop: a single goroutine runs every callback of every session on an
//     exec.Loop. Socket reads and writes complete on helper goroutines and
//     post their continuation to the loop. A factorial runs inline and stalls
//     all sessions for its whole duration; reminders are loop timers and do
//     not block; averages are posted to the loop once more before they run.
//
//   - pool: like loop, but N goroutines run the same loop. Each session owns a
//     strand, so its own callbacks never overlap, while different sessions
//     proceed in parallel. Every processed request is appended to the shared
//     reqlog.Log through the log's strand.
//
// In the asynchronous modes a session is shared by its pending operations
// through reference counting: each pending read, write, deferred dispatch and
// armed reminder holds a reference and the last release closes the
// connection. A reminder whose session closed first is cancelled, or dropped
// when it fires.
//
// Failed accepts are logged and the acceptor continues. Transport errors end
// one session only; parse and domain errors are answered and the connection
// stays open.
package engine
