package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ccgkit/ccg/internal/core/workflow"
)

// testCatalog returns a small catalog:
//
//	alpha: command only
//	beta:  command + codex/reviewer prompt
//	gamma: command + codex/tester + optional claude/tester
func testCatalog(t *testing.T) *workflow.Registry {
	t.Helper()
	reg, err := workflow.NewRegistry([]workflow.Definition{
		{ID: "alpha", Description: "Alpha", Artifacts: []workflow.Artifact{
			{Kind: workflow.KindCommand, Body: "alpha via {{BACKEND_PRIMARY}}"},
		}},
		{ID: "beta", Description: "Beta", Artifacts: []workflow.Artifact{
			{Kind: workflow.KindCommand, Body: "beta {{WRAPPER_BIN}} {{LITE_MODE_FLAG}}--backend codex"},
			{Kind: workflow.KindPrompt, Model: "codex", Role: "reviewer", Body: "review"},
		}},
		{ID: "gamma", Description: "Gamma", Artifacts: []workflow.Artifact{
			{Kind: workflow.KindCommand, Body: "gamma"},
			{Kind: workflow.KindPrompt, Model: "codex", Role: "tester", Body: "test"},
			{Kind: workflow.KindPrompt, Model: "claude", Role: "tester", Body: "rich", Optional: true},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

// fakeWrapper writes a stand-in companion binary and returns its path.
func fakeWrapper(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codeagent-wrapper")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
