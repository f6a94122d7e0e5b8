// Package client implements the collaborator side of the line protocol:
// connect, write one line, read one line, close.
//
// A Client serializes its calls, so one goroutine's request and reply never
// interleave with another's on the same connection. Reminder messages arrive
// as extra lines after the acknowledgment and are read with ReadLine.
package client
