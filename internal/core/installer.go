package core

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/ccgkit/ccg/internal/core/failure"
	"github.com/ccgkit/ccg/internal/core/fileio"
	"github.com/ccgkit/ccg/internal/core/workflow"
)

// WrapperName is the companion executable installed next to the workflows.
const WrapperName = "codeagent-wrapper"

// InstallerOptions configures an Installer.
type InstallerOptions struct {
	Catalog *workflow.Registry

	// WrapperSource is the codeagent-wrapper binary to copy. Empty means the
	// file next to the running executable.
	WrapperSource string

	Logger zerolog.Logger
}

// Installer renders workflow artifacts into an installation directory.
type Installer struct {
	catalog       *workflow.Registry
	wrapperSource string
	log           zerolog.Logger
}

// NewInstaller creates an Installer.
func NewInstaller(opts InstallerOptions) *Installer {
	return &Installer{
		catalog:       opts.Catalog,
		wrapperSource: opts.WrapperSource,
		log:           opts.Logger,
	}
}

// WrapperPath returns the installed location of the companion executable.
func WrapperPath(targetDir string) string {
	return filepath.Join(targetDir, "bin", WrapperName+exeSuffix())
}

// PromptsPath returns the installed prompts directory.
func PromptsPath(targetDir string) string {
	return filepath.Join(targetDir, filepath.FromSlash(workflow.PromptsDir))
}

// Install renders every artifact of the given workflows into targetDir.
// Existing files are left alone unless force is set. A failing artifact is
// recorded in Errors and the remaining artifacts are still installed.
func (inst *Installer) Install(ids []string, targetDir string, force bool, params workflow.Params) InstallationOutcome {
	out := InstallationOutcome{
		InstalledCommands: []string{},
		InstalledPrompts:  []workflow.PromptRef{},
		Errors:            []string{},
	}

	known, unknown := inst.catalog.Partition(ids)
	for _, id := range unknown {
		out.Errors = append(out.Errors, failure.Validation("unknown workflow %q", id).Error())
	}

	for _, id := range known {
		def, _ := inst.catalog.Get(id)
		for _, a := range def.Artifacts {
			if a.Optional && params.LiteMode {
				continue
			}

			dest := a.Destination(targetDir, id)
			if !force && fileio.PathExists(dest) {
				out.Skipped = append(out.Skipped, dest)
				continue
			}

			body := workflow.Render(a.Body, params)
			if err := fileio.WriteFileAtomic(dest, []byte(body), 0o644); err != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", a.RelPath(id), failure.IO("writing "+dest, err)))
				inst.log.Warn().Err(err).Str("workflow", id).Str("path", dest).Msg("artifact write failed")
				continue
			}

			switch a.Kind {
			case workflow.KindCommand:
				out.InstalledCommands = append(out.InstalledCommands, id)
			case workflow.KindPrompt:
				out.InstalledPrompts = append(out.InstalledPrompts, a.Prompt())
			}
		}
	}

	path, err := inst.installWrapper(targetDir)
	if err != nil {
		out.Errors = append(out.Errors, err.Error())
		inst.log.Warn().Err(err).Msg("companion binary not installed")
	} else {
		out.BinaryInstalled = true
		out.BinaryPath = path
	}

	inst.log.Info().
		Int("commands", len(out.InstalledCommands)).
		Int("prompts", len(out.InstalledPrompts)).
		Int("skipped", len(out.Skipped)).
		Int("errors", len(out.Errors)).
		Msg("workflows installed")
	return out
}

// installWrapper copies the companion executable into <targetDir>/bin.
func (inst *Installer) installWrapper(targetDir string) (string, error) {
	src := inst.wrapperSource
	if src == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", failure.IO("locating "+WrapperName, err)
		}
		src = filepath.Join(filepath.Dir(exe), WrapperName+exeSuffix())
	}

	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("%s source %s: %w", WrapperName, src, failure.ErrNotFound)
	}
	if info.IsDir() {
		return "", failure.Validation("%s source %s is a directory", WrapperName, src)
	}

	dst := WrapperPath(targetDir)
	if err := fileio.CopyFile(src, dst); err != nil {
		return "", failure.IO("installing "+WrapperName, err)
	}
	if err := os.Chmod(dst, 0o755); err != nil {
		return "", failure.IO("making "+WrapperName+" executable", err)
	}
	return dst, nil
}

// Uninstall removes every artifact of the given workflows from targetDir.
// Files that are already gone are not errors.
func (inst *Installer) Uninstall(ids []string, targetDir string) UninstallOutcome {
	out := UninstallOutcome{Removed: []string{}, Errors: []string{}}

	known, unknown := inst.catalog.Partition(ids)
	for _, id := range unknown {
		out.Errors = append(out.Errors, failure.Validation("unknown workflow %q", id).Error())
	}

	dirs := make(map[string]bool)
	for _, id := range known {
		def, _ := inst.catalog.Get(id)
		for _, a := range def.Artifacts {
			dest := a.Destination(targetDir, id)
			dirs[filepath.Dir(dest)] = true
			if err := os.Remove(dest); err != nil {
				if !os.IsNotExist(err) {
					out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", a.RelPath(id), failure.IO("removing", err)))
				}
				continue
			}
			out.Removed = append(out.Removed, a.RelPath(id))
		}
	}

	for dir := range dirs {
		fileio.CleanupEmptyDir(dir)
	}
	fileio.CleanupEmptyDir(PromptsPath(targetDir))
	return out
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
