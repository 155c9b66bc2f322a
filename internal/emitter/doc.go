// Package emitter runs the periodic heartbeat/scan loop.
//
// One cycle refreshes node heartbeats, waits one timeout interval, scans for
// timeouts and signals reassignment. Small populations are refreshed
// sequentially; large ones are split into batches that run concurrently in
// chunks of at most MaxWorkers, each chunk joined before the next starts.
package emitter
