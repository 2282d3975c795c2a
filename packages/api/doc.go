// Package api sends HTTP requests to the backend under test with bounded,
// status-aware retries.
//
// Every request carries the environment's API key and a JSON content type.
// When the caller's AuthSource holds a token it is sent as a bearer
// credential. Responses below 500 are returned at once; server errors and
// transport failures are retried according to the caller's retry.Policy.
package api
