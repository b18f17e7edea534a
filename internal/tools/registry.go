package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sahilm/fuzzy"

	"github.com/samsaffron/bizarro/internal/llm"
)

// FaultKind describes why a tool call produced an error text.
type FaultKind int

const (
	FaultNone FaultKind = iota
	// FaultLookup means no tool with the requested name exists.
	FaultLookup
	// FaultRuntime means the tool ran and failed.
	FaultRuntime
)

// Result is the outcome of one tool call. Faults are data: Content always
// holds the text to send back to the model.
type Result struct {
	Name    string
	Content string
	Fault   FaultKind
}

// Registry maps tool names to tools, keeping registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// DefaultRegistry registers every built-in tool.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, k := range AllKinds {
		tool, err := Builtin(k)
		if err != nil {
			continue
		}
		r.Register(tool)
	}
	return r
}

func (r *Registry) Register(tool Tool) {
	name := tool.Spec().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// AllSpecs returns the specs for all registered tools.
func (r *Registry) AllSpecs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

// Filter returns a registry holding only tools whose names match one of the
// glob patterns. An empty pattern list keeps everything.
func (r *Registry) Filter(patterns []string) (*Registry, error) {
	if len(patterns) == 0 {
		return r, nil
	}
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid tool pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	out := NewRegistry()
	for _, name := range r.order {
		for _, g := range globs {
			if g.Match(name) {
				out.Register(r.tools[name])
				break
			}
		}
	}
	return out, nil
}

// Execute runs a tool call. It never returns an error: unknown tools and
// failing tools produce a Result with a Fault and a descriptive Content.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) Result {
	tool, ok := r.tools[call.Name]
	if !ok {
		return Result{Name: call.Name, Content: r.notFound(call.Name), Fault: FaultLookup}
	}
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	out, err := tool.Execute(ctx, args)
	if err != nil {
		return Result{
			Name:    call.Name,
			Content: fmt.Sprintf("Error executing %s: %v", call.Name, err),
			Fault:   FaultRuntime,
		}
	}
	return Result{Name: call.Name, Content: out}
}

func (r *Registry) notFound(name string) string {
	msg := fmt.Sprintf("Tool '%s' not found. Available tools: %s", name, strings.Join(r.order, ", "))
	if suggestion := r.closest(name); suggestion != "" {
		msg += fmt.Sprintf(". Did you mean '%s'?", suggestion)
	}
	return msg
}

func (r *Registry) closest(name string) string {
	if name == "" {
		return ""
	}
	matches := fuzzy.Find(name, r.order)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
