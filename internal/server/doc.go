// Package server provides the runtime shared by the calsheet MCP server:
// the ServerContext that owns the timesheet orchestrator, health endpoints
// and the dedicated Prometheus metrics server.
//
// # Key Components
//
// ServerContext starts the orchestrator Runner on a cancellable context and
// exposes it, the pending Google authorizer and the metrics recorder to the
// MCP tool handlers.
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed. The server
// is ready once a calendar has been resolved.
//
// HTTPServer serves the streamable-HTTP MCP transport on /mcp next to the
// health endpoints.
//
// MetricsServer serves /metrics on its own port, isolated from MCP traffic.
package server
