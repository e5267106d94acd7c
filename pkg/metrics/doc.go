// Package metrics defines the Prometheus instrumentation for the notifier:
// publish/capture outcomes on the producer side, task lifecycle counters on
// the worker side, and mail transport results.
package metrics
