package fileio

import (
	"fmt"
	"os"
	"strings"
)

// EnvVar is a single KEY=value pair in a credentials side-file.
type EnvVar struct {
	Name  string
	Value string
}

// ParseEnvFile returns the KEY=value pairs of the env file at path, with
// one level of surrounding quotes removed. A missing or unreadable file
// yields nil.
func ParseEnvFile(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	vars := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		key := envLineKey(line)
		if key == "" {
			continue
		}
		_, raw, _ := strings.Cut(line, "=")
		vars[key] = unquoteEnvValue(strings.TrimSpace(raw))
	}
	return vars
}

// WriteEnvVars writes or updates vars in the env file at path. Existing keys
// are updated in place, new keys are appended in the given order, and every
// other line (comments, unrelated keys) is kept. The file ends up with mode
// 0600; when every value already matches, only the mode is enforced.
func WriteEnvVars(path string, vars []EnvVar) error {
	if current := ParseEnvFile(path); current != nil && envUpToDate(current, vars) {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}

	for _, v := range vars {
		newLine := v.Name + "=" + quoteEnvValue(v.Value)

		found := false
		for i, line := range lines {
			if envLineKey(line) == v.Name {
				lines[i] = newLine
				found = true
				break
			}
		}
		if !found {
			lines = append(lines, newLine)
		}
	}

	content := strings.Join(lines, "\n") + "\n"
	return WriteFileAtomic(path, []byte(content), 0o600)
}

func envUpToDate(current map[string]string, vars []EnvVar) bool {
	for _, v := range vars {
		got, ok := current[v.Name]
		if !ok || got != v.Value {
			return false
		}
	}
	return true
}

// envLineKey returns the key of a KEY=value line, or "" for comments and
// lines without '='.
func envLineKey(line string) string {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		return ""
	}
	trimmed = strings.TrimPrefix(trimmed, "export ")
	idx := strings.IndexByte(trimmed, '=')
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(trimmed[:idx])
}

// quoteEnvValue quotes the value if it contains spaces, # or newlines.
func quoteEnvValue(value string) string {
	if strings.ContainsAny(value, " #\t\n\"") {
		return `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	}
	return value
}

// unquoteEnvValue reverses quoteEnvValue and also accepts single quotes.
func unquoteEnvValue(value string) string {
	if len(value) < 2 {
		return value
	}
	switch q := value[0]; {
	case q == '"' && value[len(value)-1] == '"':
		return strings.ReplaceAll(value[1:len(value)-1], `\"`, `"`)
	case q == '\'' && value[len(value)-1] == '\'':
		return value[1 : len(value)-1]
	}
	return value
}
