package core

import (
	"path/filepath"

	"github.com/ccgkit/ccg/internal/core/jsonc"
)

const settingsFileName = "settings.json"

// APISettings are the API credentials written into the host settings.
type APISettings struct {
	BaseURL     string
	APIKey      string
	WrapperPath string // used for the Bash permission entries
}

// SettingsResult reports a host settings merge.
type SettingsResult struct {
	Path    string   `json:"path"`
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Changed []string `json:"changed,omitempty"`
}

// settingsDefaults are env values set when the user has not chosen one.
var settingsDefaults = []struct{ key, value string }{
	{"DISABLE_TELEMETRY", "1"},
	{"DISABLE_ERROR_REPORTING", "1"},
	{"CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC", "1"},
	{"CLAUDE_CODE_ATTRIBUTION_HEADER", "0"},
	{"MCP_TIMEOUT", "60000"},
}

// SettingsPath returns the host settings file for installDir.
func SettingsPath(installDir string) string {
	return filepath.Join(installDir, settingsFileName)
}

// ApplyAPISettings merges s into the settings document at path. Keys it does
// not manage are kept. An unparseable document is not touched.
func ApplyAPISettings(path string, s APISettings) SettingsResult {
	res := SettingsResult{Path: path}

	doc, err := jsonc.Load(path)
	if err != nil {
		res.Message = err.Error()
		return res
	}

	set := func(key, value string) error {
		if doc.Get("env." + jsonc.EscapePath(key)).String() == value && doc.Has(jsonc.Pointer("env", key)) {
			return nil
		}
		if err := doc.Set(jsonc.Pointer("env", key), value); err != nil {
			return err
		}
		res.Changed = append(res.Changed, "env."+key)
		return nil
	}

	if s.BaseURL != "" {
		if err := set("ANTHROPIC_BASE_URL", s.BaseURL); err != nil {
			res.Message = err.Error()
			return res
		}
	}
	if s.APIKey != "" {
		if err := set("ANTHROPIC_API_KEY", s.APIKey); err != nil {
			res.Message = err.Error()
			return res
		}
		removed, err := doc.Remove(jsonc.Pointer("env", "ANTHROPIC_AUTH_TOKEN"))
		if err != nil {
			res.Message = err.Error()
			return res
		}
		if removed {
			res.Changed = append(res.Changed, "env.ANTHROPIC_AUTH_TOKEN")
		}
	}
	for _, d := range settingsDefaults {
		if doc.Has(jsonc.Pointer("env", d.key)) {
			continue
		}
		if err := set(d.key, d.value); err != nil {
			res.Message = err.Error()
			return res
		}
	}

	if s.WrapperPath != "" {
		if err := addPermissions(doc, s.WrapperPath, &res); err != nil {
			res.Message = err.Error()
			return res
		}
	}

	if len(res.Changed) > 0 || !doc.Exists() {
		if err := doc.Save(); err != nil {
			res.Message = err.Error()
			return res
		}
	}
	res.Success = true
	return res
}

func addPermissions(doc *jsonc.Document, wrapper string, res *SettingsResult) error {
	wanted := []string{
		"Bash(" + wrapper + " --backend gemini*)",
		"Bash(" + wrapper + " --backend codex*)",
	}

	var allow []string
	present := make(map[string]bool)
	for _, v := range doc.Get("permissions.allow").Array() {
		allow = append(allow, v.String())
		present[v.String()] = true
	}

	added := false
	for _, w := range wanted {
		if !present[w] {
			allow = append(allow, w)
			added = true
		}
	}
	if !added {
		return nil
	}
	if err := doc.Set(jsonc.Pointer("permissions", "allow"), allow); err != nil {
		return err
	}
	res.Changed = append(res.Changed, "permissions.allow")
	return nil
}
