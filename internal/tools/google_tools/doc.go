// Package google_tools provides the MCP tools that complete the Google OAuth
// consent flow while the server waits for authorization.
package google_tools
