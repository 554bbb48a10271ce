// Package tools defines the executor seam behind the dispatch bridge: a
// registry of named operations with schema-checked parameters. The browser
// layer registers the real automation tools at startup; this package ships
// the local parsing tools and the plumbing.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Result is the executor's verdict on one invocation. Failures stay
// in-band: the bridge reports them with success=false and HTTP 200, never
// as a transport error.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ok wraps data in a successful result.
func Ok(data any) Result { return Result{Success: true, Data: data} }

// Fail wraps a message in a failed result.
func Fail(msg string) Result { return Result{Success: false, Error: msg} }

// Failf formats a failed result.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Sprintf(format, args...))
}

// Executor runs one named tool. Implementations own concurrency control
// for overlapping tool effects; the bridge gives no ordering guarantee
// across requests.
type Executor interface {
	Execute(ctx context.Context, name string, params map[string]any) Result
}

// Describer is implemented by executors that can phrase progress lines for
// their tools. The bridge falls back to a generic phrase otherwise.
type Describer interface {
	Doing(name string) string
}

// Handler is the work behind a tool. Returning an error produces an
// in-band failure result.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Tool is one dispatchable operation.
type Tool struct {
	Name string

	// Doing is the present-progressive narration phrase, e.g. "Filling
	// form fields". Empty falls back to a generic phrase.
	Doing string

	// Params is a JSON Schema for the invocation parameters. Empty skips
	// validation.
	Params string

	Handler Handler
}

type registered struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry maps tool names to handlers and implements Executor.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registered
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registered)}
}

// Register adds a tool, compiling its params schema. Names are unique;
// re-registering is an error so collisions surface at startup.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}

	var schema *jsonschema.Schema
	if t.Params != "" {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(t.Name+".json", strings.NewReader(t.Params)); err != nil {
			return fmt.Errorf("failed to load params schema for %s: %w", t.Name, err)
		}
		compiled, err := compiler.Compile(t.Name + ".json")
		if err != nil {
			return fmt.Errorf("failed to compile params schema for %s: %w", t.Name, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = registered{tool: t, schema: schema}
	return nil
}

// MustRegister panics on registration failure; for static startup wiring.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Doing returns the narration phrase for a tool, or "" when unknown.
func (r *Registry) Doing(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if reg, ok := r.tools[name]; ok {
		return reg.tool.Doing
	}
	return ""
}

// Execute runs the named tool. Unknown tools, bad parameters, and handler
// errors all come back as in-band failures.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) Result {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Failf("unknown tool %q", name)
	}

	if reg.schema != nil {
		doc, err := normalizeParams(params)
		if err != nil {
			return Failf("invalid params for %s: %v", name, err)
		}
		if err := reg.schema.Validate(doc); err != nil {
			return Failf("invalid params for %s: %v", name, err)
		}
	}

	data, err := reg.tool.Handler(ctx, params)
	if err != nil {
		return Fail(err.Error())
	}
	return Ok(data)
}

// normalizeParams round-trips params through JSON so schema validation sees
// canonical types regardless of how the map was built.
func normalizeParams(params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
