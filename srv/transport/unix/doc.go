// Package unix implements the transport connectors for Unix domain sockets,
// for clients running on the same machine as the server.
//
// Listen removes a stale socket file left behind by a previous run before
// binding the path.
package unix
