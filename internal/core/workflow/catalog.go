package workflow

import (
	"embed"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml templates
var builtin embed.FS

// catalogFile mirrors the YAML structure of catalog.yaml.
type catalogFile struct {
	Workflows []Definition `yaml:"workflows"`
}

// Builtin loads the catalog shipped with ccg.
func Builtin() (*Registry, error) {
	return Load(builtin, "catalog.yaml")
}

// Load reads a YAML catalog from fsys and fills each artifact's Body from
// the template file it names. Template paths are relative to the catalog's
// "templates" directory.
func Load(fsys fs.FS, catalogPath string) (*Registry, error) {
	data, err := fs.ReadFile(fsys, catalogPath)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	for i := range cf.Workflows {
		d := &cf.Workflows[i]
		for j := range d.Artifacts {
			a := &d.Artifacts[j]
			if a.Template == "" {
				return nil, fmt.Errorf("workflow %q: artifact #%d has no template", d.ID, j)
			}
			body, err := fs.ReadFile(fsys, "templates/"+a.Template)
			if err != nil {
				return nil, fmt.Errorf("workflow %q: reading template %s: %w", d.ID, a.Template, err)
			}
			a.Body = string(body)
		}
	}

	return NewRegistry(cf.Workflows)
}
