package api

import (
	"github.com/spf13/cobra"
)

// Endpoint is one bridge operation the CLI can drive. The bridge's route
// table is fixed by its dispatch contract, so endpoints describe only the
// client side: a cobra command that calls the running bridge.
type Endpoint interface {
	// Command returns a cobra command that calls this endpoint via HTTP.
	// getServerURL is called at runtime so the --server flag has been
	// parsed by the time the URL is needed.
	Command(getServerURL func() string) *cobra.Command
}

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

// BuildCommands returns the `api` command group with one subcommand per
// registered endpoint. getServerURL is called at runtime to get the
// bridge URL.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running bridge",
		Long: `API commands call the running quill bridge via HTTP.

These commands require a running bridge (quill serve).
Use --server to specify a custom bridge URL.

Examples:
  quill api ping                                  # Check the bridge is up
  quill api tool parse_instructions --params '{"text":"..."}'`,
	}

	for _, ep := range r.endpoints {
		apiCmd.AddCommand(ep.Command(getServerURL))
	}

	return apiCmd
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
