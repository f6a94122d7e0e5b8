// Package transport defines the connector abstractions the line servers and
// the client use to open stream sockets, so the engine never depends on a
// concrete socket family.
//
// Key Components:
//
//   - IServerConnector: creates listeners and tunes accepted connections.
//     Implemented by the tcp and unix sub packages.
//
//   - IClientConnector: dials a single connection to an endpoint.
//
//   - ApplySocketBuffers: kernel buffer sizing shared by the connectors.
package transport
