package workflow

import (
	"io"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// Route is the routing policy for a single role.
type Route struct {
	Models   []string
	Primary  string
	Strategy string
}

// Params is everything a template may reference. Rendering is pure
// substitution: templates carry no conditionals, so every variant is
// expressed through the value of a placeholder.
type Params struct {
	Frontend Route
	Backend  Route
	Review   Route
	Mode     string

	LiteMode    bool
	Provider    string // selected helper-tool provider ("skip" = none)
	SearchTool  string // MCP tool name agents should call for code retrieval
	WrapperPath string // absolute path of the companion executable
	PromptsDir  string // absolute path of the installed prompts directory
}

// Values returns the placeholder table for p.
func (p Params) Values() map[string]string {
	lite := ""
	if p.LiteMode {
		lite = "--lite "
	}
	search := p.SearchTool
	if search == "" {
		search = "Grep/Glob (no code-retrieval MCP configured)"
	}

	return map[string]string{
		"FRONTEND_PRIMARY":  primaryOf(p.Frontend),
		"FRONTEND_MODELS":   strings.Join(p.Frontend.Models, ", "),
		"FRONTEND_STRATEGY": p.Frontend.Strategy,
		"BACKEND_PRIMARY":   primaryOf(p.Backend),
		"BACKEND_MODELS":    strings.Join(p.Backend.Models, ", "),
		"BACKEND_STRATEGY":  p.Backend.Strategy,
		"REVIEW_MODELS":     strings.Join(p.Review.Models, ", "),
		"REVIEW_STRATEGY":   p.Review.Strategy,
		"ROUTING_MODE":      p.Mode,
		"LITE_MODE_FLAG":    lite,
		"MCP_PROVIDER":      p.Provider,
		"MCP_SEARCH_TOOL":   search,
		"WRAPPER_BIN":       p.WrapperPath,
		"PROMPTS_DIR":       p.PromptsDir,
	}
}

// Render substitutes every known {{PLACEHOLDER}} in body. Unknown tags are
// written back unchanged so that text meant for the agent survives.
func Render(body string, p Params) string {
	values := p.Values()
	return fasttemplate.ExecuteFuncString(body, startTag, endTag, func(w io.Writer, tag string) (int, error) {
		if v, ok := values[strings.TrimSpace(tag)]; ok {
			return w.Write([]byte(v))
		}
		return w.Write([]byte(startTag + tag + endTag))
	})
}

func primaryOf(r Route) string {
	if r.Primary != "" {
		return r.Primary
	}
	if len(r.Models) > 0 {
		return r.Models[0]
	}
	return ""
}
