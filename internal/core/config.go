package core

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/ccgkit/ccg/internal/core/failure"
	"github.com/ccgkit/ccg/internal/core/fileio"
	"github.com/ccgkit/ccg/internal/core/helper"
	"github.com/ccgkit/ccg/internal/core/workflow"
)

const (
	stateDirName   = ".ccg"
	configFileName = "config.toml"

	defaultLanguage = "zh-CN"
	defaultMode     = "smart"
)

// knownSections are the top-level keys decoded into InstallationConfig.
var knownSections = map[string]bool{
	"general":     true,
	"routing":     true,
	"workflows":   true,
	"mcp":         true,
	"performance": true,
}

// ConfigStore reads and writes the installation config document.
type ConfigStore struct {
	installDir string
	version    int
	catalog    *workflow.Registry
	mu         sync.Mutex
}

// NewConfigStore creates a store for the config under installDir. version is
// the schema this store reads and writes; catalog supplies the default
// workflow set.
func NewConfigStore(installDir string, version int, catalog *workflow.Registry) *ConfigStore {
	return &ConfigStore{installDir: installDir, version: version, catalog: catalog}
}

// Version returns the schema version the store writes.
func (s *ConfigStore) Version() int { return s.version }

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return ConfigPath(s.installDir)
}

// ConfigPath returns the config file path for installDir.
func ConfigPath(installDir string) string {
	return filepath.Join(installDir, stateDirName, configFileName)
}

// Read loads the config. It returns (nil, nil) when the file does not exist.
func (s *ConfigStore) Read() (*InstallationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := fileio.ReadFile(s.Path())
	if err != nil {
		return nil, failure.IO("reading config", err)
	}
	if data == nil {
		return nil, nil
	}
	return decodeConfig(data)
}

// Write replaces the config document atomically. It refuses a document
// stamped with a different schema version.
func (s *ConfigStore) Write(cfg *InstallationConfig) error {
	if cfg == nil {
		return failure.Validation("nil config")
	}
	if cfg.General.SchemaVersion != s.version {
		return failure.Validation("config schema version %d does not match current version %d",
			cfg.General.SchemaVersion, s.version)
	}

	data, err := encodeConfig(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fileio.WriteFileAtomic(s.Path(), data, 0o644); err != nil {
		return failure.IO("writing config", err)
	}
	return nil
}

// CreateDefault returns a config built from the defaults with overrides
// applied, stamped with the store's schema version.
func (s *ConfigStore) CreateDefault(o ConfigOverrides) *InstallationConfig {
	cfg := &InstallationConfig{
		General: GeneralConfig{
			SchemaVersion: s.version,
			Language:      defaultLanguage,
		},
		Routing:   DefaultRouting(),
		Workflows: WorkflowsConfig{Installed: s.defaultWorkflows()},
		MCP:       MCPConfig{Provider: helper.ProviderSkip},
	}

	if o.Language != "" {
		cfg.General.Language = o.Language
	}
	if o.Routing != nil {
		cfg.Routing = *o.Routing
	}
	if len(o.Workflows) > 0 {
		cfg.Workflows.Installed = workflow.SortedIDs(o.Workflows)
	}
	if o.Provider != "" {
		cfg.MCP.Provider = o.Provider
	}
	if o.LiteMode != nil {
		cfg.Performance.LiteMode = *o.LiteMode
	}
	return cfg
}

func (s *ConfigStore) defaultWorkflows() []string {
	if s.catalog == nil {
		return []string{}
	}
	return workflow.SortedIDs(s.catalog.IDs())
}

// DefaultRouting returns the built-in routing: Gemini for frontend, Codex
// for backend, both reviewing in parallel.
func DefaultRouting() Routing {
	return Routing{
		Mode: defaultMode,
		Frontend: RoutingRole{
			Models:   []string{"gemini"},
			Primary:  "gemini",
			Strategy: StrategyFallback,
		},
		Backend: RoutingRole{
			Models:   []string{"codex"},
			Primary:  "codex",
			Strategy: StrategyFallback,
		},
		Review: RoutingRole{
			Models:   []string{"codex", "gemini"},
			Strategy: StrategyParallel,
		},
	}
}

// ValidateRouting checks that every role names at least one model and a
// known strategy.
func ValidateRouting(r Routing) error {
	roles := []struct {
		name string
		role RoutingRole
	}{
		{"frontend", r.Frontend},
		{"backend", r.Backend},
		{"review", r.Review},
	}
	for _, rr := range roles {
		if len(rr.role.Models) == 0 {
			return failure.Validation("routing.%s needs at least one model", rr.name)
		}
		switch rr.role.Strategy {
		case StrategyFallback, StrategyParallel:
		default:
			return failure.Validation("routing.%s: unknown strategy %q", rr.name, rr.role.Strategy)
		}
	}
	return nil
}

func decodeConfig(data []byte) (*InstallationConfig, error) {
	var cfg InstallationConfig
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, failure.Parse("parsing config", err)
	}

	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, failure.Parse("parsing config", err)
	}
	for k, v := range raw {
		if knownSections[k] {
			continue
		}
		if cfg.Extra == nil {
			cfg.Extra = make(map[string]any)
		}
		cfg.Extra[k] = v
	}

	sort.Strings(cfg.Workflows.Installed)
	return &cfg, nil
}

func encodeConfig(cfg *InstallationConfig) ([]byte, error) {
	installed := append([]string{}, cfg.Workflows.Installed...)
	sort.Strings(installed)

	doc := make(map[string]any, len(cfg.Extra)+len(knownSections))
	for k, v := range cfg.Extra {
		if !knownSections[k] {
			doc[k] = v
		}
	}
	doc["general"] = cfg.General
	doc["routing"] = cfg.Routing
	doc["workflows"] = WorkflowsConfig{Installed: installed}
	doc["mcp"] = cfg.MCP
	doc["performance"] = cfg.Performance

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// stampSchemaVersion rewrites a TOML document with general.schema_version
// set to version, keeping every other key.
func stampSchemaVersion(data []byte, version int) ([]byte, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, failure.Parse("parsing legacy config", err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}

	general, ok := raw["general"].(map[string]any)
	if !ok {
		general = make(map[string]any)
	}
	general["schema_version"] = version
	raw["general"] = general

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
