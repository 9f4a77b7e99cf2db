// Package telemetry implements the metrics sinks for the API and the payment
// flows. Prometheus serves a pull endpoint; CloudWatch pushes each datum.
package telemetry

import (
	"context"
	"time"
)

// Recorder is the full set of metrics emitted by the service. It satisfies
// core.MetricsCollector as well as the payment and webhook metric hooks.
type Recorder interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
	RecordOrder(ctx context.Context, result string)
	RecordWebhook(ctx context.Context, outcome string)
}

// Nop discards every metric.
type Nop struct{}

func (Nop) RecordRequest(string, string, string, time.Duration) {}
func (Nop) RecordOrder(context.Context, string)                 {}
func (Nop) RecordWebhook(context.Context, string)               {}
