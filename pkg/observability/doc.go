/*
Package observability turns draft lifecycle events into Prometheus metrics
and structured log lines.

Metrics.Hooks and LogHooks both return domain.LifecycleHooks; combine them
with domain.ComposeHooks and pass the result to the draft store and the step
controllers.
*/
package observability
