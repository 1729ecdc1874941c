// Package metrics collects counters and latency percentiles for upstream
// API requests. Emitters push events onto a buffered channel; a single
// collector goroutine owns the bookkeeping, so hot paths never block.
package metrics
