// Package hostinfo hosts the host_info bridge tool, which reports the
// daemon's wiring so the browser layer can render a status view without
// poking individual components.
package hostinfo

import (
	"context"

	"github.com/quillform/quill/internal/svcctx"
	"github.com/quillform/quill/internal/tools"
	"github.com/quillform/quill/version"
)

const paramsSchema = `{
  "type": "object",
  "additionalProperties": false
}`

// Tool returns the host_info tool.
func Tool() tools.Tool {
	return tools.Tool{
		Name:    "host_info",
		Doing:   "Checking host status",
		Params:  paramsSchema,
		Handler: info,
	}
}

// info reports whatever is wired; fields for absent services are omitted
// rather than errored so a partially configured daemon still answers.
func info(ctx context.Context, _ map[string]any) (any, error) {
	data := map[string]any{
		"version":            version.GitRelease,
		"backend_configured": svcctx.BackendFrom(ctx) != nil,
	}
	if h := svcctx.HomeFrom(ctx); h != nil {
		data["home"] = h.Path()
	}
	if store := svcctx.ConfigFrom(ctx); store != nil {
		if cfg := store.Get(); cfg != nil {
			data["default_provider"] = cfg.Agent.Provider
		}
	}
	if reg := svcctx.RegistryFrom(ctx); reg != nil {
		data["providers"] = reg.List()
	}
	if reg := svcctx.ToolsFrom(ctx); reg != nil {
		data["tools"] = reg.Names()
	}
	return data, nil
}
