// Package tcp implements the transport connectors for TCP sockets.
//
// The server connector applies the configured socket options (no delay,
// buffer sizes, keep-alive and linger) to every accepted connection.
package tcp
