package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrTrigger   = "trigger"
)

// Metrics provides methods for recording observability metrics. The zero value
// is a no-op recorder.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// Timesheet metrics
	refreshesTotal     metric.Int64Counter
	pendingMutations   metric.Int64UpDownCounter
	droppedEventsTotal metric.Int64Counter
	colorBatchesTotal  metric.Int64Counter
	colorBatchSize     metric.Int64Histogram
	authAttemptsTotal  metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.refreshesTotal, err = meter.Int64Counter(
		"timesheet_refreshes_total",
		metric.WithDescription("Total number of events fetches by trigger"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create timesheet_refreshes_total counter: %w", err)
	}

	m.pendingMutations, err = meter.Int64UpDownCounter(
		"timesheet_pending_mutations",
		metric.WithDescription("Number of events with an outstanding color change"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create timesheet_pending_mutations gauge: %w", err)
	}

	m.droppedEventsTotal, err = meter.Int64Counter(
		"timesheet_dropped_events_total",
		metric.WithDescription("Total number of malformed events dropped while loading a week"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create timesheet_dropped_events_total counter: %w", err)
	}

	m.colorBatchesTotal, err = meter.Int64Counter(
		"timesheet_color_batches_total",
		metric.WithDescription("Total number of settled color-change batches"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create timesheet_color_batches_total counter: %w", err)
	}

	m.colorBatchSize, err = meter.Int64Histogram(
		"timesheet_color_batch_size",
		metric.WithDescription("Number of events per color-change batch"),
		metric.WithUnit("{event}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create timesheet_color_batch_size histogram: %w", err)
	}

	m.authAttemptsTotal, err = meter.Int64Counter(
		"auth_attempts_total",
		metric.WithDescription("Total number of login flows"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_attempts_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation records a Google API call.
//
// Parameters:
//   - service: Google service name, normally ServiceCalendar
//   - operation: list_calendars, colors, list_events, create, patch
//   - status: "success" or "error"
//   - duration: Time taken for the call
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRefresh records an events fetch and what triggered it.
func (m *Metrics) RecordRefresh(ctx context.Context, trigger string) {
	if m.refreshesTotal == nil {
		return // Instrumentation not initialized
	}

	m.refreshesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTrigger, trigger)))
}

// AddPendingMutations moves the pending mutations gauge by delta.
func (m *Metrics) AddPendingMutations(ctx context.Context, delta int64) {
	if m.pendingMutations == nil {
		return // Instrumentation not initialized
	}

	m.pendingMutations.Add(ctx, delta)
}

// RecordDroppedEvents counts malformed events dropped while loading a week.
func (m *Metrics) RecordDroppedEvents(ctx context.Context, n int64) {
	if m.droppedEventsTotal == nil {
		return // Instrumentation not initialized
	}

	m.droppedEventsTotal.Add(ctx, n)
}

// RecordColorBatch records a settled color-change batch. Status is "error"
// when at least one update in the batch failed.
func (m *Metrics) RecordColorBatch(ctx context.Context, status string, size int) {
	if m.colorBatchesTotal == nil || m.colorBatchSize == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.colorBatchesTotal.Add(ctx, 1, attrs)
	m.colorBatchSize.Record(ctx, int64(size), attrs)
}

// RecordAuthAttempt records a login flow with its status.
func (m *Metrics) RecordAuthAttempt(ctx context.Context, status string) {
	if m.authAttemptsTotal == nil {
		return // Instrumentation not initialized
	}

	m.authAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
