package workflow

import "testing"

func testParams() Params {
	return Params{
		Frontend:    Route{Models: []string{"gemini"}, Primary: "gemini", Strategy: "fallback"},
		Backend:     Route{Models: []string{"codex", "gemini"}, Strategy: "fallback"},
		Review:      Route{Models: []string{"codex", "gemini"}, Strategy: "parallel"},
		Mode:        "smart",
		WrapperPath: "/home/u/.claude/bin/codeagent-wrapper",
		PromptsDir:  "/home/u/.claude/.ccg/prompts",
	}
}

func TestRender(t *testing.T) {
	lite := testParams()
	lite.LiteMode = true
	lite.SearchTool = "mcp__ace-tool__search_context"

	tests := []struct {
		name   string
		body   string
		params Params
		want   string
	}{
		{
			name:   "primary falls back to first model",
			body:   "backend={{BACKEND_PRIMARY}} models={{BACKEND_MODELS}}",
			params: testParams(),
			want:   "backend=codex models=codex, gemini",
		},
		{
			name:   "lite flag empty by default",
			body:   "{{WRAPPER_BIN}} {{LITE_MODE_FLAG}}--backend codex",
			params: testParams(),
			want:   "/home/u/.claude/bin/codeagent-wrapper --backend codex",
		},
		{
			name:   "lite flag set",
			body:   "{{WRAPPER_BIN}} {{LITE_MODE_FLAG}}--backend codex",
			params: lite,
			want:   "/home/u/.claude/bin/codeagent-wrapper --lite --backend codex",
		},
		{
			name:   "search tool fallback",
			body:   "use {{MCP_SEARCH_TOOL}}",
			params: testParams(),
			want:   "use Grep/Glob (no code-retrieval MCP configured)",
		},
		{
			name:   "search tool from provider",
			body:   "use {{MCP_SEARCH_TOOL}}",
			params: lite,
			want:   "use mcp__ace-tool__search_context",
		},
		{
			name:   "unknown tag kept verbatim",
			body:   "cd {{WORKDIR_PLACEHOLDER}} && {{ REVIEW_STRATEGY }}",
			params: testParams(),
			want:   "cd {{WORKDIR_PLACEHOLDER}} && parallel",
		},
		{
			name:   "no tags",
			body:   "plain text",
			params: testParams(),
			want:   "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.body, tt.params); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}
