// Package http provides the HTTP client shared by the API retry engine and
// the WebDriver wire client.
//
// It wraps the standard library's http package with additional features:
//   - Configurable timeouts, honouring the caller's context
//   - Redirect handling
//   - Base URL resolution for relative endpoints
//   - Response buffering with JSON path lookups
package http
