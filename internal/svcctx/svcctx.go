// Package svcctx provides service context for dependency injection via context.
// This package is separate from the command wiring to avoid import cycles.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/quillform/quill/internal/backend"
	"github.com/quillform/quill/internal/config"
	"github.com/quillform/quill/internal/home"
	"github.com/quillform/quill/internal/providers"
	"github.com/quillform/quill/internal/runlog"
	"github.com/quillform/quill/internal/status"
	"github.com/quillform/quill/internal/tools"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Logger    *slog.Logger
	Config    config.Store
	Home      *home.Dir
	Tools     *tools.Registry
	Backend   *backend.Client
	Providers *providers.Registry
	Runs      *runlog.Store
	Status    status.Sink
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// ConfigFrom extracts the config store from context.
func ConfigFrom(ctx context.Context) config.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// ToolsFrom extracts the tool registry from context.
func ToolsFrom(ctx context.Context) *tools.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Tools
	}
	return nil
}

// BackendFrom extracts the backend API client from context.
func BackendFrom(ctx context.Context) *backend.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.Backend
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Providers
	}
	return nil
}

// RunsFrom extracts the run record store from context.
func RunsFrom(ctx context.Context) *runlog.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Runs
	}
	return nil
}

// StatusFrom extracts the status sink from context. Returns a no-op sink
// when no services are attached so callers never nil-check.
func StatusFrom(ctx context.Context) status.Sink {
	if s := ServicesFrom(ctx); s != nil && s.Status != nil {
		return s.Status
	}
	return status.Nop()
}

// WrapExecutor returns an executor whose dispatch contexts carry s. Tools
// that need daemon services extract them with the *From helpers.
func WrapExecutor(exec tools.Executor, s *Services) tools.Executor {
	return serviceExecutor{exec: exec, services: s}
}

type serviceExecutor struct {
	exec     tools.Executor
	services *Services
}

func (e serviceExecutor) Execute(ctx context.Context, name string, params map[string]any) tools.Result {
	return e.exec.Execute(WithServices(ctx, e.services), name, params)
}

// Doing forwards narration phrasing so wrapping does not hide the inner
// executor's Describer from the bridge.
func (e serviceExecutor) Doing(name string) string {
	if d, ok := e.exec.(tools.Describer); ok {
		return d.Doing(name)
	}
	return ""
}
