// Package sinks implements concrete progress consumers: structured logging,
// Prometheus collectors, and the repository-backed run store. Each sink
// satisfies the progress.Sink interface and tolerates repeated Consume/Close
// cycles.
package sinks
