// Package batch provides helpers for MCP tools that act on several client
// names at once.
//
// This package includes helpers for:
//   - Parsing parameters that accept both single values and arrays
//   - Running an operation per item with partial failures
//   - Formatting the per-item outcomes in a consistent JSON structure
package batch
