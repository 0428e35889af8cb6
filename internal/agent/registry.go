package agent

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrAgentNotFound reports an unknown agent id.
var ErrAgentNotFound = errors.New("agent not found")

// Registry holds the built-in agent definitions, immutable after load.
// Deployed (user-created) agents live in the store, not here.
type Registry struct {
	agents map[string]*Definition
}

// NewRegistry builds a registry from definitions. Later duplicates of an
// id replace earlier ones, so file-loaded agents can override built-ins.
func NewRegistry(defs []*Definition) *Registry {
	agents := make(map[string]*Definition, len(defs))
	for _, d := range defs {
		agents[d.ID] = d
	}
	return &Registry{agents: agents}
}

// LoadRegistry reads agent definitions from a YAML file and merges them
// over the built-ins. A missing file yields the built-ins alone; a
// malformed file is a startup error.
func LoadRegistry(path string) (*Registry, error) {
	defs := builtinDefinitions()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Built-ins only.
		case err != nil:
			return nil, fmt.Errorf("read agents file %s: %w", path, err)
		default:
			var file struct {
				Agents []*Definition `yaml:"agents"`
			}
			if err := yaml.Unmarshal(data, &file); err != nil {
				return nil, fmt.Errorf("parse agents file %s: %w", path, err)
			}
			for _, d := range file.Agents {
				if d.ID == "" {
					return nil, fmt.Errorf("agents file %s: definition missing id", path)
				}
			}
			defs = append(defs, file.Agents...)
		}
	}

	return NewRegistry(defs), nil
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (*Definition, error) {
	d, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return d, nil
}

// List returns all definitions sorted by id.
func (r *Registry) List() []*Definition {
	out := make([]*Definition, 0, len(r.agents))
	for _, d := range r.agents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
