// Package workflow defines the workflow catalog for ccg.
//
// A Workflow is a named bundle of one command definition and zero or more
// role-scoped prompt definitions. The catalog is read-only at runtime; it is
// loaded once (normally from the embedded catalog.yaml) and injected into the
// components that need it, so tests can substitute their own.
package workflow

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
)

// Kind identifies an artifact type.
type Kind string

const (
	KindCommand Kind = "command"
	KindPrompt  Kind = "prompt"
)

// Layout of rendered artifacts, relative to the installation directory.
const (
	CommandsDir = "commands/ccg"
	PromptsDir  = ".ccg/prompts"
)

// Artifact is one file a workflow produces.
type Artifact struct {
	Kind     Kind   `yaml:"kind"`
	Model    string `yaml:"model,omitempty"` // prompts only
	Role     string `yaml:"role,omitempty"`  // prompts only
	Template string `yaml:"template"`        // path of the template body in the catalog FS
	Optional bool   `yaml:"optional,omitempty"`

	// Body is the raw template text, filled in when the catalog is loaded.
	Body string `yaml:"-"`
}

// Definition is a catalog entry.
type Definition struct {
	ID          string     `yaml:"id"`
	Description string     `yaml:"description"`
	Artifacts   []Artifact `yaml:"artifacts"`
}

// PromptRef names an installed prompt.
type PromptRef struct {
	Model string `json:"model"`
	Role  string `json:"role"`
}

func (p PromptRef) String() string { return p.Model + "/" + p.Role }

// RelPath returns the artifact's destination relative to the installation
// directory. Names are deterministic in (workflow id, kind, model/role).
func (a Artifact) RelPath(workflowID string) string {
	switch a.Kind {
	case KindPrompt:
		return path.Join(PromptsDir, a.Model, a.Role+".md")
	default:
		return path.Join(CommandsDir, workflowID+".md")
	}
}

// Destination returns the absolute destination under targetDir.
func (a Artifact) Destination(targetDir, workflowID string) string {
	return filepath.Join(targetDir, filepath.FromSlash(a.RelPath(workflowID)))
}

// Prompt returns the prompt reference for a prompt artifact.
func (a Artifact) Prompt() PromptRef {
	return PromptRef{Model: a.Model, Role: a.Role}
}

// Registry is an immutable, validated workflow catalog.
type Registry struct {
	defs []Definition
	byID map[string]int
}

// NewRegistry validates defs and builds a Registry. IDs must be unique and
// no two artifacts may share a destination.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		defs: make([]Definition, len(defs)),
		byID: make(map[string]int, len(defs)),
	}
	copy(r.defs, defs)

	destinations := make(map[string]string)
	for i, d := range r.defs {
		if d.ID == "" {
			return nil, fmt.Errorf("workflow #%d has no id", i)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate workflow id %q", d.ID)
		}
		r.byID[d.ID] = i

		commands := 0
		for _, a := range d.Artifacts {
			switch a.Kind {
			case KindCommand:
				commands++
			case KindPrompt:
				if a.Model == "" || a.Role == "" {
					return nil, fmt.Errorf("workflow %q: prompt artifact needs model and role", d.ID)
				}
			default:
				return nil, fmt.Errorf("workflow %q: unknown artifact kind %q", d.ID, a.Kind)
			}

			rel := a.RelPath(d.ID)
			if owner, taken := destinations[rel]; taken {
				return nil, fmt.Errorf("workflow %q: destination %s already produced by %q", d.ID, rel, owner)
			}
			destinations[rel] = d.ID
		}
		if commands != 1 {
			return nil, fmt.Errorf("workflow %q: expected exactly one command artifact, got %d", d.ID, commands)
		}
	}

	return r, nil
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (Definition, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Has reports whether id is in the catalog.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// All returns every definition in catalog order.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// IDs returns every workflow id in catalog order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.defs))
	for i, d := range r.defs {
		ids[i] = d.ID
	}
	return ids
}

// Partition splits ids into those present in the catalog and those that are
// not, preserving input order and dropping duplicates.
func (r *Registry) Partition(ids []string) (known, unknown []string) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if r.Has(id) {
			known = append(known, id)
		} else {
			unknown = append(unknown, id)
		}
	}
	return known, unknown
}

// SortedIDs returns a sorted copy of ids.
func SortedIDs(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
