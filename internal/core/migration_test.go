package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type migrationEnv struct {
	home       string
	installDir string
	m          *Migrator
}

func newMigrationEnv(t *testing.T) migrationEnv {
	t.Helper()
	home := t.TempDir()
	installDir := filepath.Join(home, ".claude")
	return migrationEnv{
		home:       home,
		installDir: installDir,
		m:          NewMigrator(installDir, home, CurrentSchemaVersion, zerolog.Nop()),
	}
}

func TestNeedsMigration(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  bool
	}{
		{"empty", nil, false},
		{"current layout only", []string{".claude/.ccg/config.toml"}, false},
		{"legacy home dir", []string{".ccg/config.toml"}, true},
		{"legacy prompts", []string{".claude/prompts/ccg/codex/reviewer.md"}, true},
		{"legacy command marker", []string{".claude/commands/ccg/_config.md"}, true},
		{"legacy and current", []string{".ccg/config.toml", ".claude/.ccg/config.toml"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newMigrationEnv(t)
			for _, f := range tt.files {
				writeTestFile(t, filepath.Join(env.home, f), "x")
			}
			if got := env.m.NeedsMigration(); got != tt.want {
				t.Errorf("NeedsMigration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMigrate_UpgradesOutdatedConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		needs   bool
	}{
		{"no version", "[general]\nlanguage = \"en\"\n", true},
		{"older version", "[general]\nschema_version = 1\nlanguage = \"en\"\n", true},
		{"current version", "[general]\nschema_version = 2\nlanguage = \"en\"\n", false},
		{"newer version", "[general]\nschema_version = 3\nlanguage = \"en\"\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newMigrationEnv(t)
			path := ConfigPath(env.installDir)
			writeTestFile(t, path, tt.content)

			if got := env.m.NeedsMigration(); got != tt.needs {
				t.Fatalf("NeedsMigration() = %v, want %v", got, tt.needs)
			}
			out := env.m.Migrate()
			if len(out.Errors) != 0 {
				t.Fatalf("errors: %v", out.Errors)
			}

			got := readTestFile(t, path)
			if !tt.needs {
				if got != tt.content || len(out.MigratedFiles) != 0 {
					t.Errorf("config touched: %q, outcome %+v", got, out)
				}
				return
			}
			if len(out.MigratedFiles) != 1 || out.MigratedFiles[0] != path {
				t.Errorf("MigratedFiles = %v", out.MigratedFiles)
			}
			if !strings.Contains(got, "schema_version = 2") || !strings.Contains(got, `language = "en"`) {
				t.Errorf("config = %q", got)
			}
			if env.m.NeedsMigration() {
				t.Error("NeedsMigration() should be false after the upgrade")
			}
		})
	}
}

func TestMigrate_CopiesLegacyLayout(t *testing.T) {
	env := newMigrationEnv(t)
	writeTestFile(t, filepath.Join(env.home, ".ccg", "config.toml"), "[general]\nlanguage = \"en\"\n\n[custom]\nkeep = true\n")
	writeTestFile(t, filepath.Join(env.home, ".ccg", "prompts", "codex", "reviewer.md"), "home reviewer")
	writeTestFile(t, filepath.Join(env.installDir, "prompts", "ccg", "gemini", "frontend.md"), "frontend")

	out := env.m.Migrate()
	if len(out.Errors) != 0 {
		t.Fatalf("errors: %v", out.Errors)
	}
	if len(out.MigratedFiles) != 3 {
		t.Fatalf("MigratedFiles = %v", out.MigratedFiles)
	}

	cfg := readTestFile(t, ConfigPath(env.installDir))
	for _, want := range []string{"schema_version = 2", `language = "en"`, "keep = true"} {
		if !strings.Contains(cfg, want) {
			t.Errorf("config missing %q:\n%s", want, cfg)
		}
	}
	if got := readTestFile(t, filepath.Join(env.installDir, ".ccg", "prompts", "codex", "reviewer.md")); got != "home reviewer" {
		t.Errorf("reviewer prompt = %q", got)
	}
	if got := readTestFile(t, filepath.Join(env.installDir, ".ccg", "prompts", "gemini", "frontend.md")); got != "frontend" {
		t.Errorf("frontend prompt = %q", got)
	}

	// Sources are kept.
	if _, err := os.Stat(filepath.Join(env.home, ".ccg", "config.toml")); err != nil {
		t.Errorf("legacy config removed: %v", err)
	}
	if env.m.NeedsMigration() {
		t.Error("NeedsMigration() should be false after migrating")
	}
}

func TestMigrate_NeverOverwrites(t *testing.T) {
	env := newMigrationEnv(t)
	legacy := filepath.Join(env.home, ".ccg", "prompts", "codex", "reviewer.md")
	same := filepath.Join(env.home, ".ccg", "prompts", "codex", "tester.md")
	writeTestFile(t, legacy, "old reviewer")
	writeTestFile(t, same, "tester")

	current := filepath.Join(env.installDir, ".ccg", "prompts", "codex", "reviewer.md")
	writeTestFile(t, current, "user edited reviewer")
	writeTestFile(t, filepath.Join(env.installDir, ".ccg", "prompts", "codex", "tester.md"), "tester")

	out := env.m.Migrate()
	if len(out.MigratedFiles) != 0 || len(out.Errors) != 0 {
		t.Fatalf("outcome = %+v", out)
	}
	if len(out.Skipped) != 2 {
		t.Fatalf("Skipped = %v", out.Skipped)
	}
	if len(out.Identical) != 1 || out.Identical[0] != same {
		t.Errorf("Identical = %v", out.Identical)
	}
	if got := readTestFile(t, current); got != "user edited reviewer" {
		t.Errorf("existing target overwritten: %q", got)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	env := newMigrationEnv(t)
	writeTestFile(t, filepath.Join(env.home, ".ccg", "config.toml"), "[general]\nlanguage = \"en\"\n")
	writeTestFile(t, filepath.Join(env.installDir, "prompts", "ccg", "codex", "debugger.md"), "debug")

	first := env.m.Migrate()
	if len(first.MigratedFiles) != 2 {
		t.Fatalf("first run = %+v", first)
	}

	second := env.m.Migrate()
	if len(second.MigratedFiles) != 0 || len(second.Errors) != 0 {
		t.Errorf("second run = %+v", second)
	}
}

func TestMigrate_ContainsFailures(t *testing.T) {
	env := newMigrationEnv(t)
	writeTestFile(t, filepath.Join(env.home, ".ccg", "prompts", "codex", "a.md"), "a")
	writeTestFile(t, filepath.Join(env.home, ".ccg", "prompts", "gemini", "b.md"), "b")
	writeTestFile(t, filepath.Join(env.home, ".ccg", "prompts", "zeta", "c.md"), "c")

	// A file where the gemini target directory should be.
	writeTestFile(t, filepath.Join(env.installDir, ".ccg", "prompts", "gemini"), "blocker")

	out := env.m.Migrate()
	if len(out.MigratedFiles) != 2 {
		t.Errorf("MigratedFiles = %v", out.MigratedFiles)
	}
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "b.md") {
		t.Errorf("Errors = %v", out.Errors)
	}
}

func TestMigrate_MalformedLegacyConfig(t *testing.T) {
	env := newMigrationEnv(t)
	writeTestFile(t, filepath.Join(env.home, ".ccg", "config.toml"), "[general\n")
	writeTestFile(t, filepath.Join(env.home, ".ccg", "prompts", "codex", "a.md"), "a")

	out := env.m.Migrate()
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "parse failure") {
		t.Errorf("Errors = %v", out.Errors)
	}
	if len(out.MigratedFiles) != 1 {
		t.Errorf("MigratedFiles = %v", out.MigratedFiles)
	}
	if _, err := os.Stat(ConfigPath(env.installDir)); !os.IsNotExist(err) {
		t.Error("config should not be written")
	}
}

func TestMigrate_InjectedRules(t *testing.T) {
	env := newMigrationEnv(t)
	src := filepath.Join(env.home, "old")
	dst := filepath.Join(env.home, "new")
	writeTestFile(t, filepath.Join(src, "x.md"), "x")

	out := env.m.WithRules([]MigrationRule{{Name: "custom", Kind: RuleTree, Source: src, Target: dst}}).Migrate()
	if len(out.MigratedFiles) != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if got := readTestFile(t, filepath.Join(dst, "x.md")); got != "x" {
		t.Errorf("copied content = %q", got)
	}
}
