package helper

import (
	"path/filepath"

	"github.com/ccgkit/ccg/internal/core/fileio"
)

// mcpSideDir is the directory, relative to the install dir, holding side-files
// ccg owns.
const mcpSideDir = ".ccg/mcp"

// baseTool provides the fields and default behavior shared by every variant.
// Concrete tools embed it and override what differs.
type baseTool struct {
	id          string
	displayName string
	kind        Kind
	entryName   string
	searchTool  string
	command     string   // executable; "npx" launches are wrapped on Windows
	args        []string // fixed arguments
}

func (b *baseTool) ID() string          { return b.id }
func (b *baseTool) DisplayName() string { return b.displayName }
func (b *baseTool) Kind() Kind          { return b.kind }
func (b *baseTool) SearchTool() string  { return b.searchTool }

func (b *baseTool) EntryName() string {
	if b.entryName != "" {
		return b.entryName
	}
	return b.id
}

func (b *baseTool) Validate(Credentials) error { return nil }

func (b *baseTool) Entry(_ Credentials, p Platform) Entry {
	return b.stdio(p, b.args, nil)
}

func (b *baseTool) SideFile(Credentials, Paths) *SideFile { return nil }

// stdio builds a stdio entry for the tool's command.
func (b *baseTool) stdio(p Platform, args []string, env map[string]string) Entry {
	command := b.command
	full := append([]string(nil), args...)
	if p.Windows && command == "npx" {
		full = append([]string{"/c", "npx"}, full...)
		command = "cmd"
	}
	return Entry{Type: "stdio", Command: command, Args: full, Env: env}
}

// --- ace-tool / ace-tool-rs ---

// aceTool is the hosted code-retrieval server. The Rust port registers under
// the same entry name, so installing one replaces the other.
type aceTool struct {
	baseTool
}

func newAceTool(id, displayName, pkg string) *aceTool {
	return &aceTool{baseTool{
		id:          id,
		displayName: displayName,
		kind:        KindPremium,
		entryName:   "ace-tool",
		searchTool:  "mcp__ace-tool__search_context",
		command:     "npx",
		args:        []string{"-y", pkg},
	}}
}

func (t *aceTool) Validate(creds Credentials) error {
	return requireField(t.id, "a token", creds.Token)
}

func (t *aceTool) Entry(creds Credentials, p Platform) Entry {
	args := append([]string(nil), t.args...)
	if creds.BaseURL != "" {
		args = append(args, "--base-url", creds.BaseURL)
	}
	args = append(args, "--token", creds.Token)
	return t.stdio(p, args, nil)
}

func (t *aceTool) SideFile(creds Credentials, paths Paths) *SideFile {
	sf := &SideFile{
		Path:  filepath.Join(paths.InstallDir, filepath.FromSlash(mcpSideDir), "ace-tool.env"),
		Owned: true,
	}
	if creds.Token != "" {
		sf.Vars = append(sf.Vars, fileio.EnvVar{Name: "ACE_TOOL_TOKEN", Value: creds.Token})
	}
	if creds.BaseURL != "" {
		sf.Vars = append(sf.Vars, fileio.EnvVar{Name: "ACE_TOOL_BASE_URL", Value: creds.BaseURL})
	}
	return sf
}

// --- contextweaver ---

// contextWeaver is a local semantic search server. Its API key lives in the
// tool's own dotenv file, which other programs read too.
type contextWeaver struct {
	baseTool
}

func newContextWeaver() *contextWeaver {
	return &contextWeaver{baseTool{
		id:          "contextweaver",
		displayName: "ContextWeaver",
		kind:        KindLocalSearch,
		searchTool:  "mcp__contextweaver__codebase-retrieval",
		command:     "contextweaver",
		args:        []string{"mcp"},
	}}
}

func (t *contextWeaver) Validate(creds Credentials) error {
	return requireField(t.id, "an API key", creds.APIKey)
}

func (t *contextWeaver) SideFile(creds Credentials, paths Paths) *SideFile {
	sf := &SideFile{Path: filepath.Join(paths.Home, ".contextweaver", ".env")}
	if creds.APIKey != "" {
		sf.Vars = []fileio.EnvVar{
			{Name: "EMBEDDINGS_API_KEY", Value: creds.APIKey},
			{Name: "RERANK_API_KEY", Value: creds.APIKey},
		}
	}
	return sf
}

// --- auxiliary npx servers ---

// npxTool is an auxiliary server launched through npx. When apiKeyEnv is set
// the key is passed in the entry's env and kept in an owned side-file.
type npxTool struct {
	baseTool
	apiKeyEnv string
}

func newNpxTool(id, displayName, pkg, apiKeyEnv string) *npxTool {
	return &npxTool{
		baseTool: baseTool{
			id:          id,
			displayName: displayName,
			kind:        KindAuxiliary,
			command:     "npx",
			args:        []string{"-y", pkg},
		},
		apiKeyEnv: apiKeyEnv,
	}
}

func (t *npxTool) Validate(creds Credentials) error {
	if t.apiKeyEnv == "" {
		return nil
	}
	return requireField(t.id, "an API key", creds.APIKey)
}

func (t *npxTool) Entry(creds Credentials, p Platform) Entry {
	var env map[string]string
	if t.apiKeyEnv != "" {
		env = map[string]string{t.apiKeyEnv: creds.APIKey}
	}
	return t.stdio(p, t.args, env)
}

func (t *npxTool) SideFile(creds Credentials, paths Paths) *SideFile {
	if t.apiKeyEnv == "" {
		return nil
	}
	sf := &SideFile{
		Path:  filepath.Join(paths.InstallDir, filepath.FromSlash(mcpSideDir), t.id+".env"),
		Owned: true,
	}
	if creds.APIKey != "" {
		sf.Vars = []fileio.EnvVar{{Name: t.apiKeyEnv, Value: creds.APIKey}}
	}
	return sf
}

func init() {
	register(newAceTool("ace-tool", "ace-tool", "ace-tool@latest"))
	register(newAceTool("ace-tool-rs", "ace-tool (Rust)", "ace-tool-rs"))
	register(newContextWeaver())
	register(newNpxTool("context7", "Context7", "@upstash/context7-mcp@latest", ""))
	register(newNpxTool("Playwright", "Playwright", "@playwright/mcp@latest", ""))
	register(newNpxTool("mcp-deepwiki", "DeepWiki", "mcp-deepwiki@latest", ""))
	register(newNpxTool("exa", "Exa", "exa-mcp-server@latest", "EXA_API_KEY"))
}
