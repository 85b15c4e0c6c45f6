// Package api provides the HTTP server the browser extension talks to.
package api

import "net/http"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8123")
	ListenAddr string

	// MCP, when set, is mounted at /mcp so agents can reach the corpus
	// over the Model Context Protocol alongside the extension endpoints.
	MCP http.Handler
}
