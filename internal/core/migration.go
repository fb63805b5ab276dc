package core

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/ccgkit/ccg/internal/core/failure"
	"github.com/ccgkit/ccg/internal/core/fileio"
)

// RuleKind selects how a migration rule maps its source.
type RuleKind int

const (
	// RuleConfig rewrites a single TOML file, stamping the current schema
	// version.
	RuleConfig RuleKind = iota
	// RuleTree copies every file under a directory, keeping relative paths.
	RuleTree
)

// MigrationRule maps one legacy location to its current location.
type MigrationRule struct {
	Name   string
	Kind   RuleKind
	Source string
	Target string
}

// Migrator detects a legacy on-disk layout and copies it into the current
// one. Sources are never deleted.
type Migrator struct {
	installDir string
	home       string
	version    int
	rules      []MigrationRule
	log        zerolog.Logger
}

// NewMigrator creates a Migrator with the default rules for installDir and
// the user's home directory.
func NewMigrator(installDir, home string, version int, log zerolog.Logger) *Migrator {
	return &Migrator{
		installDir: installDir,
		home:       home,
		version:    version,
		rules:      DefaultMigrationRules(installDir, home),
		log:        log,
	}
}

// WithRules returns a copy of m that applies rules instead of the defaults.
func (m *Migrator) WithRules(rules []MigrationRule) *Migrator {
	c := *m
	c.rules = append([]MigrationRule(nil), rules...)
	return &c
}

// DefaultMigrationRules returns the schema 1 to schema 2 mapping, in the
// order it is applied.
func DefaultMigrationRules(installDir, home string) []MigrationRule {
	legacyHome := filepath.Join(home, ".ccg")
	promptsDir := filepath.Join(installDir, stateDirName, "prompts")
	return []MigrationRule{
		{
			Name:   "config",
			Kind:   RuleConfig,
			Source: filepath.Join(legacyHome, configFileName),
			Target: ConfigPath(installDir),
		},
		{
			Name:   "home prompts",
			Kind:   RuleTree,
			Source: filepath.Join(legacyHome, "prompts"),
			Target: promptsDir,
		},
		{
			Name:   "install prompts",
			Kind:   RuleTree,
			Source: filepath.Join(installDir, "prompts", "ccg"),
			Target: promptsDir,
		},
	}
}

// LegacyMarkers returns the paths whose presence indicates a schema 1
// layout.
func (m *Migrator) LegacyMarkers() []string {
	return []string{
		filepath.Join(m.home, ".ccg"),
		filepath.Join(m.installDir, "prompts", "ccg"),
		filepath.Join(m.installDir, "commands", "ccg", "_config.md"),
	}
}

// NeedsMigration reports whether a legacy marker exists and the current
// config does not, or whether the current config carries an older schema
// version.
func (m *Migrator) NeedsMigration() bool {
	if fileio.PathExists(ConfigPath(m.installDir)) {
		version, ok := m.storedVersion()
		return ok && version < m.version
	}
	for _, p := range m.LegacyMarkers() {
		if fileio.PathExists(p) {
			return true
		}
	}
	return false
}

// Migrate applies every rule in order. Existing targets are never
// overwritten. A failing file is recorded and the run continues.
func (m *Migrator) Migrate() MigrationOutcome {
	var out MigrationOutcome
	for _, rule := range m.rules {
		switch rule.Kind {
		case RuleConfig:
			m.migrateConfig(rule, &out)
		case RuleTree:
			m.migrateTree(rule, &out)
		default:
			out.Errors = append(out.Errors, fmt.Sprintf("%s: unknown rule kind %d", rule.Name, rule.Kind))
		}
	}
	m.upgradeConfig(&out)

	m.log.Info().
		Int("migrated", len(out.MigratedFiles)).
		Int("skipped", len(out.Skipped)).
		Int("errors", len(out.Errors)).
		Msg("migration finished")
	return out
}

func (m *Migrator) migrateConfig(rule MigrationRule, out *MigrationOutcome) {
	data, err := fileio.ReadFile(rule.Source)
	if err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", rule.Source, failure.IO("reading", err)))
		return
	}
	if data == nil {
		return
	}

	if fileio.PathExists(rule.Target) {
		m.skip(rule.Source, rule.Target, out)
		return
	}

	stamped, err := stampSchemaVersion(data, m.version)
	if err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", rule.Source, err))
		return
	}
	if err := fileio.WriteFileAtomic(rule.Target, stamped, 0o644); err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", rule.Source, failure.IO("writing "+rule.Target, err)))
		return
	}
	out.MigratedFiles = append(out.MigratedFiles, rule.Source)
	m.log.Debug().Str("from", rule.Source).Str("to", rule.Target).Msg("config migrated")
}

func (m *Migrator) migrateTree(rule MigrationRule, out *MigrationOutcome) {
	if !fileio.DirExists(rule.Source) {
		return
	}

	err := filepath.WalkDir(rule.Source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", path, failure.IO("walking", err)))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(rule.Source, path)
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		target := filepath.Join(rule.Target, rel)

		if fileio.PathExists(target) {
			m.skip(path, target, out)
			return nil
		}
		if err := fileio.CopyFile(path, target); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", path, failure.IO("copying to "+target, err)))
			return nil
		}
		out.MigratedFiles = append(out.MigratedFiles, path)
		m.log.Debug().Str("from", path).Str("to", target).Msg("file migrated")
		return nil
	})
	if err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", rule.Source, err))
	}
}

// storedVersion returns general.schema_version of the current config. A
// document without the key is schema 1. ok is false when the document is
// missing or does not parse.
func (m *Migrator) storedVersion() (version int, ok bool) {
	data, err := fileio.ReadFile(ConfigPath(m.installDir))
	if err != nil || data == nil {
		return 0, false
	}
	var doc struct {
		General struct {
			SchemaVersion int `toml:"schema_version"`
		} `toml:"general"`
	}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return 0, false
	}
	if doc.General.SchemaVersion == 0 {
		return 1, true
	}
	return doc.General.SchemaVersion, true
}

// upgradeConfig restamps a current-location config written under an older
// schema. Newer documents are left for the caller to reject.
func (m *Migrator) upgradeConfig(out *MigrationOutcome) {
	path := ConfigPath(m.installDir)
	version, ok := m.storedVersion()
	if !ok || version >= m.version {
		return
	}

	data, err := fileio.ReadFile(path)
	if err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", path, failure.IO("reading", err)))
		return
	}
	stamped, err := stampSchemaVersion(data, m.version)
	if err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", path, err))
		return
	}
	if err := fileio.WriteFileAtomic(path, stamped, fileio.FileMode(path, 0o644)); err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", path, failure.IO("writing", err)))
		return
	}
	out.MigratedFiles = append(out.MigratedFiles, path)
	m.log.Debug().Str("path", path).Int("from", version).Int("to", m.version).Msg("config schema upgraded")
}

func (m *Migrator) skip(source, target string, out *MigrationOutcome) {
	out.Skipped = append(out.Skipped, source)
	identical := fileio.SameContent(source, target)
	if identical {
		out.Identical = append(out.Identical, source)
	}
	m.log.Debug().Str("source", source).Str("target", target).Bool("identical", identical).
		Msg("target exists, keeping it")
}

