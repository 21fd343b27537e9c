package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// ErrToolNotFound is returned when a named capability is not registered.
var ErrToolNotFound = fmt.Errorf("tool not found")

// Transport executes a named remote capability. The governor is the sole
// caller; implementations must honour ctx cancellation and tear down any
// resource the call opened when cancelled.
type Transport interface {
	Execute(ctx context.Context, name string, arguments map[string]any) (string, error)
}

// Registry is the in-process Transport: a name-keyed set of Tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	registry := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		registry.tools[tool.Name] = tool
	}
	return registry
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	r.tools[tool.Name] = tool
	r.mu.Unlock()
}

// Lookup returns the registered tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Tools returns the registered tools in unspecified order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool)
	}
	return out
}

// Execute implements Transport. Handlers run on the calling goroutine; a
// cancelled ctx abandons the result.
func (r *Registry) Execute(ctx context.Context, name string, arguments map[string]any) (string, error) {
	tool, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	raw, err := json.Marshal(arguments)
	if err != nil {
		return "", fmt.Errorf("failed to encode arguments for tool %q: %w", name, err)
	}

	type outcome struct {
		response string
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		response, err := tool.Execute(string(raw))
		done <- outcome{response: response, err: err}
	}()

	select {
	case out := <-done:
		return out.response, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
