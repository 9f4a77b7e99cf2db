package types

// Telemetry metric names.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPILatency      = "APILatency"
	MetricAPIRequestCount = "APIRequestCount"
	MetricOrderCreated    = "OrderCreated"
	MetricWebhookOutcome  = "WebhookOutcome"

	// Dimension Keys
	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "Status"
	DimOutcome  = "Outcome"
	DimResult   = "Result"

	// Metric Namespace
	MetricNamespace = "PayGate"
)
