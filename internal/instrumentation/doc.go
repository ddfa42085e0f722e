// Package instrumentation provides OpenTelemetry metrics and tracing for
// calsheet.
//
// # Metrics
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Calendar API calls by operation and status
//   - google_api_operation_duration_seconds: Histogram of Calendar API call durations
//
// Timesheet Metrics:
//   - timesheet_refreshes_total: Counter of events fetches by trigger
//     (manual, scheduled, navigation, mutation, auth, calendar)
//   - timesheet_pending_mutations: Gauge of events with an outstanding color change
//   - timesheet_dropped_events_total: Counter of malformed events dropped on load
//   - timesheet_color_batches_total: Counter of settled color-change batches by status
//   - auth_attempts_total: Counter of login flows by status
//
// Server Metrics:
//   - http_requests_total / http_request_duration_seconds for the MCP HTTP transport
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds for MCP tools
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and Calendar API
// calls (google.calendar.<operation>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calsheet)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordRefresh(ctx, "scheduled")
//	metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, "list_events", "success", time.Since(start))
package instrumentation
