package gateway

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/petal-labs/toolgate/schema"
)

// Handler executes one tool call with validated params and returns a domain
// result to be serialized into the envelope, or an error to be classified.
type Handler func(ctx context.Context, params schema.Params) (any, error)

// ToolDescriptor describes one registered tool. Immutable after Register.
type ToolDescriptor struct {
	Name        string        `json:"name"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Input       schema.Schema `json:"-"`
}

type toolEntry struct {
	desc    ToolDescriptor
	handler Handler
}

// Registry maps tool names to (input schema, handler) pairs. Registration
// happens only during startup; after that the table is read-only and safe
// for concurrent dispatch without locking.
type Registry struct {
	tools map[string]toolEntry
}

// NewRegistry returns an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]toolEntry)}
}

// Register adds a tool. Registering two tools under one name is a
// programming error and fails loudly so startup aborts before the transport
// binds.
func (r *Registry) Register(desc ToolDescriptor, handler Handler) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("gateway: tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("gateway: tool %q has no handler", name)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("gateway: tool %q is already registered", name)
	}
	desc.Name = name
	r.tools[name] = toolEntry{desc: desc, handler: handler}
	return nil
}

// MustRegister is Register for static tool tables; it panics on conflict.
func (r *Registry) MustRegister(desc ToolDescriptor, handler Handler) {
	if err := r.Register(desc, handler); err != nil {
		panic(err)
	}
}

// Descriptors returns registered descriptors in name order.
func (r *Registry) Descriptors() []ToolDescriptor {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]ToolDescriptor, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name].desc)
	}
	return out
}

// Lookup returns the entry for a tool name.
func (r *Registry) lookup(name string) (toolEntry, bool) {
	entry, ok := r.tools[strings.TrimSpace(name)]
	return entry, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}
