// Package tools dispatches agent tool invocations that execute locally in
// the host process. The registry is an instance handed to the turn
// controller at construction. Handlers receive their collaborators at
// registration time, never through package globals.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/cellpilot/cellpilot/core/protocol"
)

// Handler is the function signature for tool implementations. Handlers
// receive the request context and the invocation's decoded arguments.
type Handler func(ctx context.Context, args map[string]any) (Result, error)

// Result is the tool output that travels back to the agent. IsError
// signals a recoverable tool failure, not a system fault.
type Result struct {
	Content string
	IsError bool
}

type entry struct {
	tool    protocol.Tool
	handler Handler
}

// Registry maps tool names to handlers. Thread-safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a new tool. Returns ErrAlreadyExists if the name is taken.
func (r *Registry) Register(tool protocol.Tool, handler Handler) error {
	if tool.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, tool.Name)
	}
	r.entries[tool.Name] = entry{tool: tool, handler: handler}
	return nil
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entries[name]
	return exists
}

// List returns the definitions of all registered tools.
func (r *Registry) List() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]protocol.Tool, 0, len(r.entries))
	for _, e := range r.entries {
		tools = append(tools, e.tool)
	}
	return tools
}

// Execute dispatches an invocation to the registered handler. Returns
// ErrNotFound for unregistered names. Handler errors become error Results
// so the agent sees a tool failure rather than the turn aborting.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (Result, error) {
	r.mu.RLock()
	e, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	result, err := e.handler(ctx, args)
	if err != nil {
		return Result{Content: err.Error(), IsError: true}, nil
	}
	return result, nil
}
