// Package common provides shared utilities for MCP tool implementations:
// the instrumented handler wrapper and typed argument accessors.
package common
