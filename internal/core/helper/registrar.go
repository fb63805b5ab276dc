package helper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/ccgkit/ccg/internal/core/failure"
	"github.com/ccgkit/ccg/internal/core/fileio"
	"github.com/ccgkit/ccg/internal/core/jsonc"
)

// ServersKey is the top-level registry key holding MCP entries.
const ServersKey = "mcpServers"

// Result is the outcome of one registration or removal.
type Result struct {
	Tool       string `json:"tool"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	ConfigPath string `json:"configPath,omitempty"`

	// Skipped marks a tool that was deliberately not registered, such as a
	// provider selected without its credentials. It is not a failure.
	Skipped bool `json:"skipped,omitempty"`
}

// Request asks for one tool to be registered.
type Request struct {
	ID          string
	Credentials Credentials
}

// Registered is an entry found in the registry.
type Registered struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
	Managed bool // name matches a known helper tool
}

// RegistrarOptions configures a Registrar.
type RegistrarOptions struct {
	RegistryPath string // e.g. ~/.claude.json
	Paths        Paths
	Platform     Platform
	Launcher     Launcher // nil = stdio subprocess launcher
	Logger       zerolog.Logger
}

// Registrar adds and removes helper tool entries in the host registry file.
// Read-modify-write cycles are serialized; each one leaves every entry it
// does not own untouched.
type Registrar struct {
	mu       sync.Mutex
	path     string
	paths    Paths
	platform Platform
	launcher Launcher
	log      zerolog.Logger
}

// NewRegistrar creates a Registrar.
func NewRegistrar(opts RegistrarOptions) *Registrar {
	launcher := opts.Launcher
	if launcher == nil {
		launcher = StdioLauncher{}
	}
	return &Registrar{
		path:     opts.RegistryPath,
		paths:    opts.Paths,
		platform: opts.Platform,
		launcher: launcher,
		log:      opts.Logger,
	}
}

// RegistryPath returns the registry file path.
func (r *Registrar) RegistryPath() string { return r.path }

// Install registers the tool id with creds. The registry is never written
// when validation fails or the existing file cannot be parsed.
func (r *Registrar) Install(ctx context.Context, id string, creds Credentials) Result {
	res := Result{Tool: id}
	if err := r.install(ctx, id, creds); err != nil {
		res.Message = err.Error()
		r.log.Warn().Err(err).Str("tool", id).Msg("helper tool registration failed")
		return res
	}
	res.Success = true
	res.ConfigPath = r.path
	r.log.Info().Str("tool", id).Str("registry", r.path).Msg("helper tool registered")
	return res
}

func (r *Registrar) install(ctx context.Context, id string, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tool, err := Lookup(id)
	if err != nil {
		return err
	}
	if err := tool.Validate(creds); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := jsonc.Load(r.path)
	if err != nil {
		return err
	}

	entry := tool.Entry(creds, r.platform)
	if err := doc.Set(jsonc.Pointer(ServersKey, tool.EntryName()), entry); err != nil {
		return err
	}
	if err := doc.Save(); err != nil {
		return err
	}

	if sf := tool.SideFile(creds, r.paths); sf != nil && len(sf.Vars) > 0 {
		if err := fileio.WriteEnvVars(sf.Path, sf.Vars); err != nil {
			return failure.IO("writing credentials for "+describe(tool), err)
		}
	}
	return nil
}

// Uninstall removes the registry entry for name. name may be a tool id or a
// raw entry name. A missing registry or entry counts as success. Side-files
// owned by the tool are removed; shared ones are kept.
func (r *Registrar) Uninstall(ctx context.Context, name string) Result {
	res := Result{Tool: name}
	if err := r.uninstall(ctx, name); err != nil {
		res.Message = err.Error()
		r.log.Warn().Err(err).Str("tool", name).Msg("helper tool removal failed")
		return res
	}
	res.Success = true
	res.ConfigPath = r.path
	r.log.Info().Str("tool", name).Msg("helper tool removed")
	return res
}

func (r *Registrar) uninstall(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entryName := name
	tool, known := ByID(name)
	if known {
		entryName = tool.EntryName()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := jsonc.Load(r.path)
	if err != nil {
		return err
	}
	if doc.Exists() {
		removed, err := doc.Remove(jsonc.Pointer(ServersKey, entryName))
		if err != nil {
			return err
		}
		if removed {
			if err := doc.Save(); err != nil {
				return err
			}
		}
	}

	if !known {
		return nil
	}
	if sf := tool.SideFile(Credentials{}, r.paths); sf != nil && sf.Owned {
		if err := os.Remove(sf.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return failure.IO("removing "+sf.Path, err)
		}
		fileio.CleanupEmptyDir(filepath.Dir(sf.Path))
	}
	return nil
}

// InstallMany registers each request independently and returns one result
// per request, in order.
func (r *Registrar) InstallMany(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, r.Install(ctx, req.ID, req.Credentials))
	}
	return results
}

// UninstallMany removes each name independently.
func (r *Registrar) UninstallMany(ctx context.Context, names []string) []Result {
	results := make([]Result, 0, len(names))
	for _, name := range names {
		results = append(results, r.Uninstall(ctx, name))
	}
	return results
}

// List returns every entry in the registry, sorted by name. A missing
// registry yields an empty list.
func (r *Registrar) List() ([]Registered, error) {
	r.mu.Lock()
	doc, err := jsonc.Load(r.path)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	managed := make(map[string]bool)
	for _, t := range All() {
		managed[t.EntryName()] = true
	}

	var out []Registered
	doc.Get(ServersKey).ForEach(func(key, value gjson.Result) bool {
		reg := Registered{
			Name:    key.String(),
			Command: value.Get("command").String(),
			Managed: managed[key.String()],
		}
		for _, a := range value.Get("args").Array() {
			reg.Args = append(reg.Args, a.String())
		}
		if env := value.Get("env"); env.IsObject() {
			reg.Env = make(map[string]string)
			env.ForEach(func(k, v gjson.Result) bool {
				reg.Env[k.String()] = v.String()
				return true
			})
		}
		out = append(out, reg)
		return true
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Lookup returns the registered entry for name. name may be a tool id or an
// entry name. The error wraps failure.ErrNotFound when there is no entry.
func (r *Registrar) Lookup(name string) (Registered, error) {
	entryName := name
	if t, ok := ByID(name); ok {
		entryName = t.EntryName()
	}

	entries, err := r.List()
	if err != nil {
		return Registered{}, err
	}
	for _, e := range entries {
		if e.Name == entryName {
			return e, nil
		}
	}
	return Registered{}, fmt.Errorf("%w: no entry %q in %s", failure.ErrNotFound, entryName, r.path)
}
