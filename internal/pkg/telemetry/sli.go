package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Pipeline
	MetricAnalysisLatency  = "analysis.duration_seconds"
	MetricVerifierLatency  = "verifier.call_latency"
	MetricVerifierFallback = "verifier.fallback_rate"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricAnalysesCompleted = "business.analyses_completed"
	MetricEstimatesCreated  = "business.estimates_created"
)
