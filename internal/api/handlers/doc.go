// Package handlers implements the HTTP surface of the mail-in buyback API.
// Request and quote operations are registered with Huma; the liveness and
// readiness probes are plain Echo handlers.
package handlers

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
