package core

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ccgkit/ccg/internal/core/workflow"
)

func testParams(targetDir string) workflow.Params {
	r := DefaultRouting()
	return workflow.Params{
		Frontend:    workflow.Route{Models: r.Frontend.Models, Primary: r.Frontend.Primary, Strategy: r.Frontend.Strategy},
		Backend:     workflow.Route{Models: r.Backend.Models, Primary: r.Backend.Primary, Strategy: r.Backend.Strategy},
		Review:      workflow.Route{Models: r.Review.Models, Strategy: r.Review.Strategy},
		Mode:        r.Mode,
		WrapperPath: WrapperPath(targetDir),
		PromptsDir:  PromptsPath(targetDir),
	}
}

func newTestInstaller(t *testing.T) *Installer {
	t.Helper()
	return NewInstaller(InstallerOptions{
		Catalog:       testCatalog(t),
		WrapperSource: fakeWrapper(t),
		Logger:        zerolog.Nop(),
	})
}

func TestInstall_FreshDirectory(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstaller(t)

	out := inst.Install([]string{"alpha", "beta"}, dir, false, testParams(dir))

	if len(out.Errors) != 0 {
		t.Fatalf("Errors = %v", out.Errors)
	}
	if !reflect.DeepEqual(out.InstalledCommands, []string{"alpha", "beta"}) {
		t.Errorf("InstalledCommands = %v", out.InstalledCommands)
	}
	if !reflect.DeepEqual(out.InstalledPrompts, []workflow.PromptRef{{Model: "codex", Role: "reviewer"}}) {
		t.Errorf("InstalledPrompts = %v", out.InstalledPrompts)
	}

	got := readTestFile(t, filepath.Join(dir, "commands", "ccg", "alpha.md"))
	if got != "alpha via codex" {
		t.Errorf("alpha.md = %q", got)
	}
	beta := readTestFile(t, filepath.Join(dir, "commands", "ccg", "beta.md"))
	if !strings.Contains(beta, WrapperPath(dir)+" --backend codex") {
		t.Errorf("beta.md = %q", beta)
	}
	if _, err := os.Stat(filepath.Join(dir, ".ccg", "prompts", "codex", "reviewer.md")); err != nil {
		t.Errorf("prompt missing: %v", err)
	}
}

func TestInstall_Idempotent(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstaller(t)
	inst.Install([]string{"alpha", "beta"}, dir, false, testParams(dir))

	out := inst.Install([]string{"alpha"}, dir, false, testParams(dir))
	if len(out.InstalledCommands) != 0 || len(out.InstalledPrompts) != 0 {
		t.Errorf("second run installed %v %v", out.InstalledCommands, out.InstalledPrompts)
	}
	if len(out.Errors) != 0 {
		t.Errorf("Errors = %v", out.Errors)
	}
	if len(out.Skipped) != 1 {
		t.Errorf("Skipped = %v", out.Skipped)
	}
}

func TestInstall_KeepsExistingUnlessForced(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstaller(t)
	path := filepath.Join(dir, "commands", "ccg", "alpha.md")
	writeTestFile(t, path, "customized")

	inst.Install([]string{"alpha"}, dir, false, testParams(dir))
	if got := readTestFile(t, path); got != "customized" {
		t.Errorf("file overwritten without force: %q", got)
	}

	out := inst.Install([]string{"alpha"}, dir, true, testParams(dir))
	if !reflect.DeepEqual(out.InstalledCommands, []string{"alpha"}) {
		t.Errorf("InstalledCommands = %v", out.InstalledCommands)
	}
	if got := readTestFile(t, path); got != "alpha via codex" {
		t.Errorf("forced install content = %q", got)
	}
}

func TestInstall_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstaller(t)

	// A file where the codex prompt directory should be: the second of
	// gamma's three artifacts cannot be written.
	writeTestFile(t, filepath.Join(dir, ".ccg", "prompts", "codex"), "blocker")

	out := inst.Install([]string{"gamma"}, dir, false, testParams(dir))

	if len(out.Errors) != 1 {
		t.Fatalf("Errors = %v", out.Errors)
	}
	if !strings.Contains(out.Errors[0], "codex/tester.md") {
		t.Errorf("error = %q", out.Errors[0])
	}
	if !reflect.DeepEqual(out.InstalledCommands, []string{"gamma"}) {
		t.Errorf("InstalledCommands = %v", out.InstalledCommands)
	}
	if !reflect.DeepEqual(out.InstalledPrompts, []workflow.PromptRef{{Model: "claude", Role: "tester"}}) {
		t.Errorf("InstalledPrompts = %v", out.InstalledPrompts)
	}
}

func TestInstall_LiteModeSkipsOptional(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstaller(t)
	params := testParams(dir)
	params.LiteMode = true

	out := inst.Install([]string{"gamma", "beta"}, dir, false, params)
	if len(out.InstalledPrompts) != 2 {
		t.Errorf("InstalledPrompts = %v", out.InstalledPrompts)
	}
	if _, err := os.Stat(filepath.Join(dir, ".ccg", "prompts", "claude", "tester.md")); !os.IsNotExist(err) {
		t.Error("optional prompt installed in lite mode")
	}
	beta := readTestFile(t, filepath.Join(dir, "commands", "ccg", "beta.md"))
	if !strings.Contains(beta, "--lite --backend codex") {
		t.Errorf("beta.md = %q", beta)
	}
}

func TestInstall_UnknownAndDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstaller(t)

	out := inst.Install([]string{"alpha", "nope", "alpha"}, dir, false, testParams(dir))
	if !reflect.DeepEqual(out.InstalledCommands, []string{"alpha"}) {
		t.Errorf("InstalledCommands = %v", out.InstalledCommands)
	}
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], `"nope"`) {
		t.Errorf("Errors = %v", out.Errors)
	}
}

func TestInstall_Binary(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstaller(t)

	out := inst.Install(nil, dir, false, testParams(dir))
	if !out.BinaryInstalled || out.BinaryPath != WrapperPath(dir) {
		t.Fatalf("outcome = %+v", out)
	}
	info, err := os.Stat(out.BinaryPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestInstall_MissingBinarySource(t *testing.T) {
	dir := t.TempDir()
	inst := NewInstaller(InstallerOptions{
		Catalog:       testCatalog(t),
		WrapperSource: filepath.Join(t.TempDir(), "missing"),
	})

	out := inst.Install([]string{"alpha"}, dir, false, testParams(dir))
	if out.BinaryInstalled {
		t.Error("BinaryInstalled should be false")
	}
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "codeagent-wrapper") {
		t.Errorf("Errors = %v", out.Errors)
	}
	if !reflect.DeepEqual(out.InstalledCommands, []string{"alpha"}) {
		t.Errorf("workflows should still install: %v", out.InstalledCommands)
	}
}

func TestUninstall(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstaller(t)
	inst.Install([]string{"alpha", "beta"}, dir, false, testParams(dir))

	out := inst.Uninstall([]string{"beta", "gamma"}, dir)
	if len(out.Errors) != 0 {
		t.Fatalf("Errors = %v", out.Errors)
	}
	want := []string{"commands/ccg/beta.md", ".ccg/prompts/codex/reviewer.md"}
	if !reflect.DeepEqual(out.Removed, want) {
		t.Errorf("Removed = %v, want %v", out.Removed, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "commands", "ccg", "alpha.md")); err != nil {
		t.Error("alpha should remain")
	}
	if _, err := os.Stat(filepath.Join(dir, ".ccg", "prompts", "codex")); !os.IsNotExist(err) {
		t.Error("empty prompt dir should be cleaned up")
	}

	again := inst.Uninstall([]string{"beta"}, dir)
	if len(again.Removed) != 0 || len(again.Errors) != 0 {
		t.Errorf("second uninstall = %+v", again)
	}
}
