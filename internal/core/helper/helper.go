// Package helper defines the MCP helper tools ccg can register with the host
// application.
//
// A Tool is a closed variant: it knows its registry entry name, the
// credentials it needs, how to build its launch entry, and which credentials
// side-file it writes. Variants are self-contained Go values registered in one
// lookup table; there is no external definition file.
package helper

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/ccgkit/ccg/internal/core/failure"
	"github.com/ccgkit/ccg/internal/core/fileio"
)

// ProviderSkip is the provider id meaning "no code-retrieval tool".
const ProviderSkip = "skip"

// Kind classifies a helper tool.
type Kind string

const (
	KindPremium     Kind = "premium"      // hosted code retrieval, needs a token
	KindLocalSearch Kind = "local-search" // local index, needs an embeddings key
	KindAuxiliary   Kind = "auxiliary"    // docs, browser, web search
)

// Credentials carries every credential any tool may need. Each tool reads
// only the fields it declares.
type Credentials struct {
	Token   string
	BaseURL string
	APIKey  string
}

// Entry is the JSON value stored under mcpServers.<name> in the registry.
type Entry struct {
	Type    string            `json:"type"`
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// CommandLine returns the entry's command and arguments joined for display.
func (e Entry) CommandLine() string {
	return strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
}

// Platform describes the host OS as far as launch commands care.
type Platform struct {
	Windows bool
}

// HostPlatform returns the platform ccg is running on.
func HostPlatform() Platform {
	return Platform{Windows: runtime.GOOS == "windows"}
}

// Paths locates the directories a tool's side-file may live in.
type Paths struct {
	InstallDir string // e.g. ~/.claude
	Home       string // user home directory
}

// SideFile is a KEY=value credentials file written next to a registration.
type SideFile struct {
	Path  string
	Owned bool // removed on uninstall; shared files are left alone
	Vars  []fileio.EnvVar
}

// Tool defines one registrable helper tool.
type Tool interface {
	ID() string
	DisplayName() string
	Kind() Kind

	// EntryName is the key under mcpServers. Variants of the same tool may
	// share an entry name.
	EntryName() string

	// SearchTool is the MCP tool name agents call for code retrieval, or ""
	// when the tool offers none.
	SearchTool() string

	// Validate checks that the credentials this tool requires are present.
	Validate(creds Credentials) error

	// Entry builds the registry entry.
	Entry(creds Credentials, p Platform) Entry

	// SideFile returns the credentials file for creds, or nil when the tool
	// keeps no side-file. With zero credentials it still returns the path so
	// the file can be removed on uninstall.
	SideFile(creds Credentials, paths Paths) *SideFile
}

// --- Registry ---

var tools []Tool

func register(t Tool) { tools = append(tools, t) }

// All returns every known tool in registration order.
func All() []Tool { return tools }

// ByID returns the tool with the given id.
func ByID(id string) (Tool, bool) {
	for _, t := range tools {
		if t.ID() == id {
			return t, true
		}
	}
	return nil, false
}

// Lookup resolves id to a Tool or returns a validation error listing the
// valid ids.
func Lookup(id string) (Tool, error) {
	if t, ok := ByID(id); ok {
		return t, nil
	}
	return nil, failure.Validation("unknown helper tool %q; available: %s", id, strings.Join(IDs(), ", "))
}

// IDs returns every tool id, sorted.
func IDs() []string {
	ids := make([]string, len(tools))
	for i, t := range tools {
		ids[i] = t.ID()
	}
	sort.Strings(ids)
	return ids
}

// OfKind returns the tools of the given kind in registration order.
func OfKind(kind Kind) []Tool {
	var result []Tool
	for _, t := range tools {
		if t.Kind() == kind {
			result = append(result, t)
		}
	}
	return result
}

// SearchToolFor returns the code-retrieval tool name for a provider id, or
// "" for skip and unknown providers.
func SearchToolFor(provider string) string {
	if provider == "" || provider == ProviderSkip {
		return ""
	}
	t, ok := ByID(provider)
	if !ok {
		return ""
	}
	return t.SearchTool()
}

// IsProvider reports whether id may be selected as the code-retrieval
// provider.
func IsProvider(id string) bool {
	if id == ProviderSkip {
		return true
	}
	t, ok := ByID(id)
	return ok && t.SearchTool() != ""
}

// ProviderIDs lists the values accepted for the provider selection, "skip"
// first, then the premium and local-search tools in registration order.
func ProviderIDs() []string {
	ids := []string{ProviderSkip}
	for _, kind := range []Kind{KindPremium, KindLocalSearch} {
		for _, t := range OfKind(kind) {
			ids = append(ids, t.ID())
		}
	}
	return ids
}

func requireField(tool, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return failure.Validation("%s requires %s", tool, field)
	}
	return nil
}

func describe(t Tool) string {
	return fmt.Sprintf("%s (%s)", t.DisplayName(), t.ID())
}
