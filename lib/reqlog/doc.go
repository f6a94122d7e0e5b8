// Package reqlog provides the shared request log of the worker-pool server:
// an append-only list of (request, result) records written by many sessions
// running on many goroutines.
//
// The log is not guarded by a mutex. It owns an exec.Strand and every
// operation (Append, Snapshot) is a task on that strand, so at most one of
// them runs at any time and they run in submission order. Readers always get
// a copy. Nothing is persisted; the log lives as long as the process.
package reqlog
