package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/ccgkit/ccg/internal/core"
	"github.com/ccgkit/ccg/internal/core/helper"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headingStyle = lipgloss.NewStyle().Bold(true)
)

func markOK() string   { return okStyle.Render("✓") }
func markFail() string { return failStyle.Render("✗") }
func markSkip() string { return skipStyle.Render("○") }

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, headingStyle.Render(title))
}

// tally counts units across a report.
type tally struct {
	ok, skipped, failed int
}

func (t tally) String() string {
	return fmt.Sprintf("%d succeeded, %d skipped, %d failed", t.ok, t.skipped, t.failed)
}

// printReport writes the human-readable summary of a run.
func printReport(w io.Writer, r *core.RunReport) tally {
	var t tally
	fmt.Fprintf(w, "ccg run %s\n\n", r.RunID)

	if m := r.Migration; m != nil {
		heading(w, "Migration")
		t.add(printMigration(w, *m))
		fmt.Fprintln(w)
	}

	heading(w, "Config")
	if r.ConfigError != "" {
		fmt.Fprintf(w, "  %s %s: %s\n", markFail(), r.ConfigPath, r.ConfigError)
		t.failed++
	} else {
		fmt.Fprintf(w, "  %s %s\n", markOK(), r.ConfigPath)
		t.ok++
	}
	fmt.Fprintln(w)

	heading(w, "Workflows")
	t.add(printInstall(w, r.Install))
	fmt.Fprintln(w)

	if len(r.HelperTools) > 0 {
		heading(w, "Helper tools")
		for _, h := range r.HelperTools {
			t.add(printHelperResult(w, h))
		}
		fmt.Fprintln(w)
	}

	if s := r.Settings; s != nil {
		heading(w, "Settings")
		if s.Success {
			fmt.Fprintf(w, "  %s %s (%d changed)\n", markOK(), s.Path, len(s.Changed))
			t.ok++
		} else {
			fmt.Fprintf(w, "  %s %s: %s\n", markFail(), s.Path, s.Message)
			t.failed++
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %s\n", t)
	return t
}

func (t *tally) add(o tally) {
	t.ok += o.ok
	t.skipped += o.skipped
	t.failed += o.failed
}

func printMigration(w io.Writer, m core.MigrationOutcome) tally {
	identical := make(map[string]bool, len(m.Identical))
	for _, p := range m.Identical {
		identical[p] = true
	}
	for _, p := range m.MigratedFiles {
		fmt.Fprintf(w, "  %s %s\n", markOK(), p)
	}
	for _, p := range m.Skipped {
		note := "target exists, kept"
		if identical[p] {
			note = "target identical"
		}
		fmt.Fprintf(w, "  %s %s (%s)\n", markSkip(), p, note)
	}
	for _, e := range m.Errors {
		fmt.Fprintf(w, "  %s %s\n", markFail(), e)
	}
	return tally{ok: len(m.MigratedFiles), skipped: len(m.Skipped), failed: len(m.Errors)}
}

func printInstall(w io.Writer, o core.InstallationOutcome) tally {
	for _, id := range o.InstalledCommands {
		fmt.Fprintf(w, "  %s /ccg:%s\n", markOK(), id)
	}
	for _, p := range o.InstalledPrompts {
		fmt.Fprintf(w, "  %s prompt %s\n", markOK(), p)
	}
	if n := len(o.Skipped); n > 0 {
		fmt.Fprintf(w, "  %s %d existing file(s) kept (use --force to overwrite)\n", markSkip(), n)
	}
	if o.BinaryInstalled {
		fmt.Fprintf(w, "  %s %s\n", markOK(), o.BinaryPath)
	}
	for _, e := range o.Errors {
		fmt.Fprintf(w, "  %s %s\n", markFail(), e)
	}

	t := tally{
		ok:      len(o.InstalledCommands) + len(o.InstalledPrompts),
		skipped: len(o.Skipped),
		failed:  len(o.Errors),
	}
	if o.BinaryInstalled {
		t.ok++
	}
	return t
}

func printHelperResult(w io.Writer, h helper.Result) tally {
	if h.Success {
		fmt.Fprintf(w, "  %s %s (%s)\n", markOK(), h.Tool, h.ConfigPath)
		return tally{ok: 1}
	}
	if h.Skipped {
		fmt.Fprintf(w, "  %s %s: %s\n", markSkip(), h.Tool, h.Message)
		return tally{skipped: 1}
	}
	fmt.Fprintf(w, "  %s %s: %s\n", markFail(), h.Tool, h.Message)
	return tally{failed: 1}
}
