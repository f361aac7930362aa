package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// Registry holds the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool already registered: %s", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAIDefinitions returns all tools in the OpenAI function-calling format,
// ordered by name.
func (r *Registry) OpenAIDefinitions() []openai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]openai.Tool, 0, len(names))
	for _, name := range names {
		defs = append(defs, OpenAIDefinition(r.tools[name]))
	}
	return defs
}

// Execute validates required parameters and runs the named tool. Validation
// and tool failures come back as unsuccessful Results, not errors; errors are
// reserved for unknown tools.
func (r *Registry) Execute(ctx context.Context, call Call) (*Result, error) {
	tool, ok := r.Get(call.Name)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", call.Name)
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	for _, p := range tool.Parameters() {
		if !p.Required {
			continue
		}
		if _, present := args[p.Name]; !present {
			return &Result{
				Success: false,
				Error:   fmt.Sprintf("missing required parameter: %s", p.Name),
			}, nil
		}
	}

	return tool.Execute(ctx, args)
}
