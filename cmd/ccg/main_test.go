package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"

	"github.com/ccgkit/ccg/cmd/ccg/cmd"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"ccg": func() {
			if err := cmd.Execute(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	})
}

func TestScript(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:                 filepath.Join("testdata", "script"),
		RequireExplicitExec: true,
		Setup: func(e *testscript.Env) error {
			// HOME=WORK keeps ~/.claude, ~/.claude.json and ~/.ccg inside the temp dir.
			e.Vars = append(e.Vars, "HOME="+e.WorkDir, "NO_COLOR=1")
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			// file-contains asserts that a file contains (or doesn't contain) a substring.
			// Usage: [!] file-contains <path> <substring>
			"file-contains": cmdFileContains,

			// dir-not-exists asserts that a directory does not exist.
			// Usage: [!] dir-not-exists <path>
			"dir-not-exists": cmdDirNotExists,

			// json-has asserts that a JSON document has a value at a gjson path,
			// optionally equal to the given string.
			// Usage: [!] json-has <path> <gjson-path> [value]
			"json-has": cmdJSONHas,

			// is-mode asserts the permission bits of a file.
			// Usage: is-mode <path> <octal>
			"is-mode": cmdIsMode,
		},
	})
}

// cmdFileContains checks if a file contains a substring.
func cmdFileContains(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) < 2 {
		ts.Fatalf("usage: file-contains <path> <substring>")
	}
	path := ts.MkAbs(args[0])
	substr := args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		ts.Fatalf("reading %s: %v", args[0], err)
	}

	contains := strings.Contains(string(data), substr)
	if neg {
		if contains {
			ts.Fatalf("file %s contains %q (expected not to)", args[0], substr)
		}
	} else {
		if !contains {
			ts.Fatalf("file %s does not contain %q\nContent:\n%s", args[0], substr, string(data))
		}
	}
}

// cmdDirNotExists checks that a directory does not exist.
func cmdDirNotExists(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 1 {
		ts.Fatalf("usage: dir-not-exists <path>")
	}
	path := ts.MkAbs(args[0])
	info, err := os.Stat(path)
	exists := err == nil && info.IsDir()

	if neg {
		if !exists {
			ts.Fatalf("directory %s does not exist (expected to)", args[0])
		}
	} else {
		if exists {
			ts.Fatalf("directory %s exists (expected not to)", args[0])
		}
	}
}

// cmdJSONHas checks a value in a JSON (or JSONC) document.
func cmdJSONHas(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) < 2 || len(args) > 3 {
		ts.Fatalf("usage: json-has <path> <gjson-path> [value]")
	}
	data, err := os.ReadFile(ts.MkAbs(args[0]))
	if err != nil {
		ts.Fatalf("reading %s: %v", args[0], err)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		ts.Fatalf("parsing %s: %v", args[0], err)
	}

	res := gjson.GetBytes(std, args[1])
	ok := res.Exists()
	if ok && len(args) == 3 {
		ok = res.String() == args[2]
	}

	if neg {
		if ok {
			ts.Fatalf("%s has %s = %s (expected not to)", args[0], args[1], res.Raw)
		}
	} else {
		if !ok {
			ts.Fatalf("%s: %s is %q\nContent:\n%s", args[0], args[1], res.Raw, string(data))
		}
	}
}

// cmdIsMode checks the permission bits of a file.
func cmdIsMode(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 2 {
		ts.Fatalf("usage: is-mode <path> <octal>")
	}
	want, err := strconv.ParseUint(args[1], 8, 32)
	if err != nil {
		ts.Fatalf("invalid mode %q: %v", args[1], err)
	}
	info, err := os.Stat(ts.MkAbs(args[0]))
	if err != nil {
		ts.Fatalf("%s: %v", args[0], err)
	}

	got := info.Mode().Perm()
	match := got == os.FileMode(want)
	if neg && match {
		ts.Fatalf("%s has mode %o (expected not to)", args[0], got)
	}
	if !neg && !match {
		ts.Fatalf("%s has mode %o, want %o", args[0], got, want)
	}
}
