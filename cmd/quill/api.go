package main

import (
	"github.com/quillform/quill/internal/api"
	"github.com/quillform/quill/internal/bridge"
)

var serverURL string

// getServerURL returns the bridge URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	registry := api.NewRegistry()
	registry.Register(&api.PingEndpoint{})
	registry.Register(&api.ToolEndpoint{})

	apiCmd := registry.BuildCommands(getServerURL)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:"+bridge.DefaultPort, "Bridge URL",
	)

	rootCmd.AddCommand(apiCmd)
}
