// Package cmd implements the command-line interface of lsrv. It provides
// commands for running a line server and for talking to one as a client.
//
// The package is organized into several subpackages:
//
//   - serve: starts a line server in one of the executor modes
//   - send: sends request lines and prints the replies
//   - bench: measures request throughput of a running server
//   - util: shared utilities for flags and configuration (internal use)
//
// Every flag can also be set through an environment variable LSRV_<FLAG>
// (dashes become underscores), or in a .env / .env.local file.
//
// See lsrv -help for a list of all commands.
package cmd
