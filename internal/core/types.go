// Package core provides the installation and migration engine for ccg.
// It has zero UI dependencies and is independently testable.
package core

import "github.com/ccgkit/ccg/internal/core/workflow"

// CurrentSchemaVersion is the config schema written by this release.
// Schema 1 is the layout used by ccg 1.3 and earlier.
const CurrentSchemaVersion = 2

// Strategy values for a routing role.
const (
	StrategyFallback = "fallback"
	StrategyParallel = "parallel"
)

// InstallationConfig is the document stored at <installDir>/.ccg/config.toml.
type InstallationConfig struct {
	General     GeneralConfig     `toml:"general"`
	Routing     Routing           `toml:"routing"`
	Workflows   WorkflowsConfig   `toml:"workflows"`
	MCP         MCPConfig         `toml:"mcp"`
	Performance PerformanceConfig `toml:"performance"`

	// Extra holds top-level keys this release does not know about. They are
	// written back unchanged.
	Extra map[string]any `toml:"-"`
}

type GeneralConfig struct {
	SchemaVersion int    `toml:"schema_version"`
	Language      string `toml:"language"`
}

// Routing assigns models to each role.
type Routing struct {
	Mode     string      `toml:"mode"`
	Frontend RoutingRole `toml:"frontend"`
	Backend  RoutingRole `toml:"backend"`
	Review   RoutingRole `toml:"review"`
}

// RoutingRole is the model policy for one role.
type RoutingRole struct {
	Models   []string `toml:"models"`
	Primary  string   `toml:"primary,omitempty"`
	Strategy string   `toml:"strategy"`
}

type WorkflowsConfig struct {
	Installed []string `toml:"installed"`
}

type MCPConfig struct {
	Provider string `toml:"provider"`
}

type PerformanceConfig struct {
	LiteMode bool `toml:"lite_mode"`
}

// ConfigOverrides are caller-supplied values applied over the defaults.
// Zero fields keep the default.
type ConfigOverrides struct {
	Language  string
	Routing   *Routing
	Workflows []string
	Provider  string
	LiteMode  *bool
}

// InstallationOutcome reports what a workflow install did.
type InstallationOutcome struct {
	InstalledCommands []string             `json:"installedCommands"`
	InstalledPrompts  []workflow.PromptRef `json:"installedPrompts"`
	Skipped           []string             `json:"skipped,omitempty"`
	Errors            []string             `json:"errors"`
	BinaryInstalled   bool                 `json:"binaryInstalled"`
	BinaryPath        string               `json:"binaryPath,omitempty"`
}

// UninstallOutcome reports what a workflow uninstall removed.
type UninstallOutcome struct {
	Removed []string `json:"removed"`
	Errors  []string `json:"errors"`
}

// MigrationOutcome reports a migration run. Every source file appears in
// exactly one of MigratedFiles, Skipped or Errors.
type MigrationOutcome struct {
	MigratedFiles []string `json:"migratedFiles"`
	Skipped       []string `json:"skipped"`
	Errors        []string `json:"errors"`

	// Identical lists the skipped sources whose target already had the same
	// content.
	Identical []string `json:"identical,omitempty"`
}

// Failed reports whether any file could not be migrated.
func (m MigrationOutcome) Failed() bool { return len(m.Errors) > 0 }
