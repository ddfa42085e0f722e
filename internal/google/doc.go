// Package google provides OAuth2 authentication and token management for the
// Google Calendar API.
//
// Tokens are stored per account as JSON files named google-<account>.token in
// the calsheet cache directory. Refreshed tokens are written back so a login
// survives restarts.
//
// Two Authenticators drive the login flow when no valid token exists:
//   - InteractiveAuthenticator prints the consent URL and reads the
//     authorization code from a terminal (CLI mode)
//   - PendingAuthenticator logs the consent URL and waits until a code has been
//     submitted through SaveTokenForAccount (MCP server mode, via the
//     google_save_auth_code tool)
package google
