// Package agent defines the task agents: their descriptors, the registry the
// router selects from, and the tool-use loop that executes a routed request
// against a bounded tool set.
package agent

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Descriptor describes one task agent. The summary is the capability text
// the router matches intents against; Tools bounds what the agent's loop may
// invoke. Descriptors are immutable after the registry is built.
type Descriptor struct {
	Name    string   `yaml:"name"`
	Summary string   `yaml:"summary"`
	Prompt  string   `yaml:"prompt"`
	Tools   []string `yaml:"tools"`
}

// Registry is the fixed set of agents available to the router.
type Registry struct {
	byName map[string]Descriptor
	names  []string
}

// NewRegistry builds a registry from descriptors. Names must be unique and
// non-empty.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("agent descriptor has no name")
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate agent name %q", d.Name)
		}
		r.byName[d.Name] = d
		r.names = append(r.names, d.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Get returns the descriptor for name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns the registered agent names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns the descriptors in name order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// overlayFile is the agents.yaml layout.
type overlayFile struct {
	Agents []struct {
		Name    string `yaml:"name"`
		Summary string `yaml:"summary"`
		Prompt  string `yaml:"prompt"`
	} `yaml:"agents"`
}

// LoadRegistry builds the registry from the built-in descriptors, applying
// optional summary/prompt overrides from the YAML overlay at path. The tool
// sets themselves cannot be changed from configuration. An empty path means
// no overlay.
func LoadRegistry(path string) (*Registry, error) {
	descriptors := BuiltinDescriptors()
	if path == "" {
		return NewRegistry(descriptors...)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agent overlay: %w", err)
	}
	var overlay overlayFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parsing agent overlay: %w", err)
	}

	index := make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		index[d.Name] = i
	}
	for _, o := range overlay.Agents {
		i, ok := index[o.Name]
		if !ok {
			return nil, fmt.Errorf("agent overlay references unknown agent %q", o.Name)
		}
		if o.Summary != "" {
			descriptors[i].Summary = o.Summary
		}
		if o.Prompt != "" {
			descriptors[i].Prompt = o.Prompt
		}
	}
	return NewRegistry(descriptors...)
}
