// Package handler implements the request handlers of the line protocol.
//
// All handlers are pure functions of their input except Factorial, which
// deliberately occupies the calling goroutine for n * FactorialStep to
// simulate expensive work. Whether that blocks one connection or every
// connection depends on the executor the caller runs on.
//
// Domain errors (division by zero, empty average, bad factorial input) and
// parse errors are returned as sentinel errors; ReplyFor maps each of them to
// the exact reply text of the protocol.
package handler
