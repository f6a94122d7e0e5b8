// Package admin serves the optional HTTP inspection endpoint of a line
// server:
//
//	GET /metrics   Prometheus text format
//	GET /log       the shared request log as JSON (pool mode only, 404 otherwise)
//	GET /sessions  the open connections as JSON
//
// The endpoint is separate from the line protocol listener and never touches
// session state; /log reads the log through a snapshot on its strand.
package admin
