// Package util provides the low-level data structures the execution layer
// is built on.
//
// The package contains:
//   - lockfreempsc: A lock-free Multi-Producer Single-Consumer (MPSC) queue. The
//     run-loop uses it as its task queue, asynchronous sessions use it as their
//     ordered write mailbox.
//   - mapheap: A min-heap with key-based access. The run-loop uses it as its timer
//     queue (key = timer id, priority = deadline), key-based removal implements
//     timer cancellation.
//
// Neither structure knows anything about connections or requests, see package
// exec for the run-loop and strands built on top of them.
package util
