package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ccgkit/ccg/internal/core/failure"
	"github.com/ccgkit/ccg/internal/core/helper"
	"github.com/ccgkit/ccg/internal/core/workflow"
)

// EngineOptions configures an Engine. Zero paths resolve to the defaults
// under the user's home directory.
type EngineOptions struct {
	InstallDir    string // default ~/.claude
	Home          string // default os.UserHomeDir()
	RegistryPath  string // default <Home>/.claude.json
	SchemaVersion int    // default CurrentSchemaVersion
	Catalog       *workflow.Registry
	Platform      helper.Platform
	Launcher      helper.Launcher
	Logger        zerolog.Logger
}

// Engine runs the provisioning pipeline: migrate, write config, install
// workflows, register helper tools, merge host settings.
type Engine struct {
	installDir string
	home       string
	catalog    *workflow.Registry
	store      *ConfigStore
	migrator   *Migrator
	registrar  *helper.Registrar
	log        zerolog.Logger
}

// HelperToolRequest asks for one helper tool registration.
type HelperToolRequest = helper.Request

// Request describes one provisioning run. Unset fields are taken from the
// existing config when there is one, otherwise from the defaults.
type Request struct {
	Workflows           []string
	Force               bool
	Language            string
	Routing             *Routing
	LiteMode            *bool
	Provider            string
	ProviderCredentials helper.Credentials
	HelperTools         []HelperToolRequest
	API                 *APISettings
	WrapperSource       string
}

// RunReport aggregates the outcome of every stage of a run.
type RunReport struct {
	RunID       string              `json:"runId"`
	Migration   *MigrationOutcome   `json:"migration,omitempty"`
	ConfigPath  string              `json:"configPath"`
	ConfigError string              `json:"configError,omitempty"`
	Install     InstallationOutcome `json:"install"`
	HelperTools []helper.Result     `json:"helperTools"`
	Settings    *SettingsResult     `json:"settings,omitempty"`
}

// Failed reports whether any unit in any stage failed.
func (r *RunReport) Failed() bool {
	if r.Migration != nil && r.Migration.Failed() {
		return true
	}
	if r.ConfigError != "" || len(r.Install.Errors) > 0 {
		return true
	}
	for _, h := range r.HelperTools {
		if !h.Success && !h.Skipped {
			return true
		}
	}
	return r.Settings != nil && !r.Settings.Success
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	home := opts.Home
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		home = h
	}
	installDir := opts.InstallDir
	if installDir == "" {
		installDir = filepath.Join(home, ".claude")
	}
	registryPath := opts.RegistryPath
	if registryPath == "" {
		registryPath = filepath.Join(home, ".claude.json")
	}
	version := opts.SchemaVersion
	if version == 0 {
		version = CurrentSchemaVersion
	}
	catalog := opts.Catalog
	if catalog == nil {
		c, err := workflow.Builtin()
		if err != nil {
			return nil, fmt.Errorf("loading workflow catalog: %w", err)
		}
		catalog = c
	}

	return &Engine{
		installDir: installDir,
		home:       home,
		catalog:    catalog,
		store:      NewConfigStore(installDir, version, catalog),
		migrator:   NewMigrator(installDir, home, version, opts.Logger),
		registrar: helper.NewRegistrar(helper.RegistrarOptions{
			RegistryPath: registryPath,
			Paths:        helper.Paths{InstallDir: installDir, Home: home},
			Platform:     opts.Platform,
			Launcher:     opts.Launcher,
			Logger:       opts.Logger,
		}),
		log: opts.Logger,
	}, nil
}

func (e *Engine) InstallDir() string           { return e.installDir }
func (e *Engine) Catalog() *workflow.Registry  { return e.catalog }
func (e *Engine) Store() *ConfigStore          { return e.store }
func (e *Engine) Migrator() *Migrator          { return e.migrator }
func (e *Engine) Registrar() *helper.Registrar { return e.registrar }
func (e *Engine) SettingsPath() string         { return SettingsPath(e.installDir) }

// Installer returns an Installer copying the companion binary from src.
func (e *Engine) Installer(src string) *Installer {
	return NewInstaller(InstallerOptions{Catalog: e.catalog, WrapperSource: src, Logger: e.log})
}

// Run executes the pipeline. Every stage records its failures in the report;
// only a config document that exists but cannot be read aborts the run.
func (e *Engine) Run(ctx context.Context, req Request) (*RunReport, error) {
	report := &RunReport{
		RunID:       uuid.NewString(),
		ConfigPath:  e.store.Path(),
		HelperTools: []helper.Result{},
	}
	log := e.log.With().Str("run_id", report.RunID).Logger()

	if e.migrator.NeedsMigration() {
		out := e.migrator.Migrate()
		report.Migration = &out
	}

	existing, err := e.readConfig()
	if err != nil {
		log.Error().Err(err).Msg("config unusable")
		return report, err
	}

	if req.Routing != nil {
		if err := ValidateRouting(*req.Routing); err != nil {
			report.ConfigError = err.Error()
			req.Routing = nil
		}
	}
	if req.Provider != "" && !helper.IsProvider(req.Provider) {
		report.HelperTools = append(report.HelperTools, helper.Result{
			Tool:    req.Provider,
			Message: failure.Validation("%q is not a code-retrieval provider", req.Provider).Error(),
		})
		req.Provider = ""
	}

	cfg := e.resolveConfig(existing, req)

	if err := e.store.Write(cfg); err != nil && report.ConfigError == "" {
		report.ConfigError = err.Error()
		log.Warn().Err(err).Msg("config not written")
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	ids := req.Workflows
	if len(ids) == 0 {
		ids = cfg.Workflows.Installed
	}
	report.Install = e.Installer(req.WrapperSource).Install(ids, e.installDir, req.Force, e.renderParams(cfg))

	var tools []helper.Request
	if req.Provider != "" && req.Provider != helper.ProviderSkip {
		if res, ok := e.pendingProvider(req); ok {
			report.HelperTools = append(report.HelperTools, res)
		} else {
			tools = append(tools, helper.Request{ID: req.Provider, Credentials: req.ProviderCredentials})
		}
	}
	tools = append(tools, req.HelperTools...)
	if len(tools) > 0 {
		report.HelperTools = append(report.HelperTools, e.registrar.InstallMany(ctx, tools)...)
	}

	if req.API != nil {
		api := *req.API
		if api.WrapperPath == "" {
			api.WrapperPath = WrapperPath(e.installDir)
		}
		res := ApplyAPISettings(e.SettingsPath(), api)
		report.Settings = &res
	}

	log.Info().Bool("failed", report.Failed()).Msg("run finished")
	return report, nil
}

// Update re-renders every installed workflow with the stored settings.
// wrapperSource is passed through to the installer ("" = next to the
// running executable).
func (e *Engine) Update(ctx context.Context, wrapperSource string) (*RunReport, error) {
	if !e.migrator.NeedsMigration() {
		existing, err := e.store.Read()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.store.Path(), err)
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: no installation at %s; run ccg init first", failure.ErrNotFound, e.installDir)
		}
	}
	return e.Run(ctx, Request{Force: true, WrapperSource: wrapperSource})
}

// pendingProvider reports a provider selected without the credentials it
// needs. The selection is kept in the config and registration is left for a
// later "ccg mcp install".
func (e *Engine) pendingProvider(req Request) (helper.Result, bool) {
	tool, ok := helper.ByID(req.Provider)
	if !ok {
		return helper.Result{}, false
	}
	if err := tool.Validate(req.ProviderCredentials); err != nil {
		e.log.Warn().Err(err).Str("tool", req.Provider).Msg("provider selected without credentials")
		return helper.Result{
			Tool:    req.Provider,
			Skipped: true,
			Message: fmt.Sprintf("not installed (%v); run ccg mcp install %s to finish", err, req.Provider),
		}, true
	}
	return helper.Result{}, false
}

// resolveConfig layers the request over the existing config, or over the
// defaults for a fresh install.
func (e *Engine) resolveConfig(existing *InstallationConfig, req Request) *InstallationConfig {
	known, _ := e.catalog.Partition(req.Workflows)

	if existing == nil {
		return e.store.CreateDefault(ConfigOverrides{
			Language:  req.Language,
			Routing:   req.Routing,
			Workflows: known,
			Provider:  req.Provider,
			LiteMode:  req.LiteMode,
		})
	}

	cfg := *existing
	if req.Language != "" {
		cfg.General.Language = req.Language
	}
	if cfg.General.Language == "" {
		cfg.General.Language = defaultLanguage
	}
	if req.Routing != nil {
		cfg.Routing = *req.Routing
	}
	if len(cfg.Routing.Frontend.Models) == 0 && len(cfg.Routing.Backend.Models) == 0 {
		cfg.Routing = DefaultRouting()
	}
	if req.Provider != "" {
		cfg.MCP.Provider = req.Provider
	}
	if cfg.MCP.Provider == "" {
		cfg.MCP.Provider = helper.ProviderSkip
	}
	if req.LiteMode != nil {
		cfg.Performance.LiteMode = *req.LiteMode
	}

	installed, _ := e.catalog.Partition(append(append([]string{}, cfg.Workflows.Installed...), known...))
	if len(installed) == 0 {
		installed = e.store.defaultWorkflows()
	}
	cfg.Workflows.Installed = workflow.SortedIDs(installed)
	return &cfg
}

func (e *Engine) renderParams(cfg *InstallationConfig) workflow.Params {
	route := func(r RoutingRole) workflow.Route {
		return workflow.Route{Models: r.Models, Primary: r.Primary, Strategy: r.Strategy}
	}
	return workflow.Params{
		Frontend:    route(cfg.Routing.Frontend),
		Backend:     route(cfg.Routing.Backend),
		Review:      route(cfg.Routing.Review),
		Mode:        cfg.Routing.Mode,
		LiteMode:    cfg.Performance.LiteMode,
		Provider:    cfg.MCP.Provider,
		SearchTool:  helper.SearchToolFor(cfg.MCP.Provider),
		WrapperPath: WrapperPath(e.installDir),
		PromptsDir:  PromptsPath(e.installDir),
	}
}

// UninstallWorkflows removes the given workflows' files and drops them from
// the config's installed set. An older config is upgraded first; one written
// by a newer release is an error wrapping failure.ErrValidation and nothing
// is removed.
func (e *Engine) UninstallWorkflows(ids []string) (UninstallOutcome, error) {
	if e.migrator.NeedsMigration() {
		if out := e.migrator.Migrate(); len(out.Errors) > 0 {
			e.log.Warn().Strs("errors", out.Errors).Msg("migration incomplete")
		}
	}
	cfg, err := e.readConfig()
	if err != nil {
		return UninstallOutcome{Removed: []string{}, Errors: []string{}}, err
	}

	out := e.Installer("").Uninstall(ids, e.installDir)
	if cfg == nil {
		return out, nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := []string{}
	for _, id := range cfg.Workflows.Installed {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	cfg.Workflows.Installed = kept
	return out, e.store.Write(cfg)
}

// readConfig reads the stored config and refuses one whose schema version
// differs from the store's. Callers run the migrator first, which upgrades
// older documents; a newer one is never rewritten.
func (e *Engine) readConfig() (*InstallationConfig, error) {
	cfg, err := e.store.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.store.Path(), err)
	}
	if cfg != nil && cfg.General.SchemaVersion != e.store.Version() {
		return nil, failure.Validation("%s has schema version %d, this release uses %d",
			e.store.Path(), cfg.General.SchemaVersion, e.store.Version())
	}
	return cfg, nil
}
