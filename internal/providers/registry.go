package providers

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"
)

// Registry holds the configured generation providers. It supports
// config-driven instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
	logger  *slog.Logger
}

type registryEntry struct {
	provider Provider
	cfg      ProviderConfig
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]registryEntry),
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a provider by name, replacing any existing one.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registryEntry{provider: p}
	if r.logger != nil {
		r.logger.Info("registered provider", "name", name)
	}
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return entry.provider, nil
}

// Has checks if a provider is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	Providers map[string]ProviderConfig
}

// ProviderConfig describes one provider entry in config.
type ProviderConfig struct {
	Type      string // "cli" or "openai"
	Command   string
	Args      []string
	PromptArg bool
	Model     string
	ModelFlag string
	APIKey    string // Resolved API key (openai)
	BaseURL   string
	RPM       int
	Timeout   time.Duration
	Enabled   bool
}

func (c ProviderConfig) equal(o ProviderConfig) bool {
	return c.Type == o.Type &&
		c.Command == o.Command &&
		slices.Equal(c.Args, o.Args) &&
		c.PromptArg == o.PromptArg &&
		c.Model == o.Model &&
		c.ModelFlag == o.ModelFlag &&
		c.APIKey == o.APIKey &&
		c.BaseURL == o.BaseURL &&
		c.RPM == o.RPM &&
		c.Timeout == o.Timeout &&
		c.Enabled == o.Enabled
}

// NewRegistryFromConfig creates a registry with providers based on
// configuration. Disabled or incomplete entries are skipped.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry from new configuration. Providers no longer
// configured are unregistered; providers with changed settings are rebuilt.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.Providers {
		if !provCfg.Enabled {
			continue
		}

		existing, hasExisting := r.entries[name]
		if hasExisting && existing.cfg.equal(provCfg) {
			want[name] = true
			continue
		}

		provider := createProvider(name, provCfg, r.logger)
		if provider == nil {
			if r.logger != nil {
				r.logger.Warn("skipping provider with incomplete config", "name", name, "type", provCfg.Type)
			}
			continue
		}

		want[name] = true
		r.entries[name] = registryEntry{provider: provider, cfg: provCfg}
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated provider", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered provider", "name", name, "type", provCfg.Type)
			}
		}
	}

	for name := range r.entries {
		if !want[name] {
			delete(r.entries, name)
			if r.logger != nil {
				r.logger.Info("unregistered provider", "name", name)
			}
		}
	}
}

// createProvider builds a provider from one config entry. Known CLI names
// get their stock invocation defaults.
func createProvider(name string, cfg ProviderConfig, logger *slog.Logger) Provider {
	switch cfg.Type {
	case "cli":
		cliCfg := CLIConfig{
			Name:      name,
			Command:   cfg.Command,
			Args:      cfg.Args,
			Model:     cfg.Model,
			ModelFlag: cfg.ModelFlag,
			PromptArg: cfg.PromptArg,
			Timeout:   cfg.Timeout,
			RPM:       cfg.RPM,
			Logger:    logger,
		}
		switch name {
		case "claude":
			return NewClaudeCLI(cliCfg)
		case "gemini":
			return NewGeminiCLI(cliCfg)
		case "codex":
			return NewCodexCLI(cliCfg)
		default:
			if cliCfg.Command == "" {
				return nil
			}
			return NewCLIProvider(cliCfg)
		}
	case "openai":
		if cfg.APIKey == "" {
			return nil
		}
		return NewOpenAIProvider(OpenAIConfig{
			Name:    name,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			RPM:     cfg.RPM,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
	default:
		return nil
	}
}
