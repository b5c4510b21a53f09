// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces that pipeline workers use to report per-article status.
// It batches events on a background goroutine and fans them out to pluggable
// sinks such as Prometheus metrics or the run store.
package progress
