package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Registry holds all registered endpoints.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// RegisterRoutes registers all endpoint HTTP routes with the given mux.
// authMiddleware wraps handlers that require an authenticated caller.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		var h http.Handler = handler
		if ep.RequiresAuth() {
			h = authMiddleware(h)
		}
		mux.Handle(method+" "+path, h)
	}
}

// BuildCommands returns a cobra.Command tree for all registered endpoints.
// getServerURL is called at runtime to get the server URL.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running server",
		Long: `API commands call the running Fable server via HTTP.

These commands require a running server (fable serve).
Use --server to specify a custom server URL.

Examples:
  fable api health                  # Check server health
  fable api books list              # List your books
  fable api books illustrate <id>   # Start or retry illustration`,
	}

	for _, ep := range r.endpoints {
		if cmd := ep.Command(getServerURL); cmd != nil {
			apiCmd.AddCommand(cmd)
		}
	}

	return apiCmd
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
