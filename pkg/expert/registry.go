package expert

import (
	"fmt"
	"sort"
)

// Registry holds the known tools, split into a default set every expert
// receives and an optional set enabled per agent via additional_tools.
type Registry struct {
	defaults []Tool
	optional map[string]Tool
	byName   map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		optional: map[string]Tool{},
		byName:   map[string]Tool{},
	}
}

// Register adds a default tool. Duplicate names are rejected.
func (r *Registry) Register(t Tool) error {
	if err := r.claim(t); err != nil {
		return err
	}
	r.defaults = append(r.defaults, t)
	return nil
}

// RegisterOptional adds a tool that is only handed out when an agent names
// it in additional_tools.
func (r *Registry) RegisterOptional(t Tool) error {
	if err := r.claim(t); err != nil {
		return err
	}
	r.optional[t.Name()] = t
	return nil
}

func (r *Registry) claim(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool with empty name")
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("tool %q registered twice", name)
	}
	r.byName[name] = t
	return nil
}

// Lookup finds a registered tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Select resolves one agent's tool set: the defaults, plus the named
// optional tools, minus the excluded names. Unknown additional names are an
// error; unknown excluded names are ignored.
func (r *Registry) Select(additional, exclude []string) ([]Tool, error) {
	excluded := map[string]bool{}
	for _, name := range exclude {
		excluded[name] = true
	}

	var tools []Tool
	for _, t := range r.defaults {
		if !excluded[t.Name()] {
			tools = append(tools, t)
		}
	}

	names := append([]string(nil), additional...)
	sort.Strings(names)
	for _, name := range names {
		t, ok := r.optional[name]
		if !ok {
			if _, isDefault := r.byName[name]; isDefault {
				continue
			}
			return nil, fmt.Errorf("additional tool %q not registered", name)
		}
		if !excluded[name] {
			tools = append(tools, t)
		}
	}
	return tools, nil
}
