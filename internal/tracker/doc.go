// Package tracker owns the node registry and the timeout scan.
//
// Every heartbeat pushes an entry onto a min-heap ordered by the instant the
// entry becomes due. A scan pops every due entry, processes them oldest
// heartbeat first and applies the retry policy: each detection increments the
// node's retries, the node fails once retries reach the configured maximum
// and is marked inactive otherwise. Entries left behind by a newer heartbeat
// are recognised by their heartbeat generation and discarded.
//
// Failure fan-out (failure callback, then every notifier) runs after the heap
// lock is released so slow sinks never block heartbeat recording.
package tracker
