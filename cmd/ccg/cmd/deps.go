package cmd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/ccgkit/ccg/internal/core"
	"github.com/ccgkit/ccg/internal/core/fileio"
	"github.com/ccgkit/ccg/internal/core/helper"
)

// errUnitsFailed is returned after a summary has been printed in which at
// least one unit failed.
var errUnitsFailed = errors.New("one or more steps failed")

// cliLogger is set by the root command before any subcommand runs.
var cliLogger = zerolog.Nop()

// deps holds shared dependencies for CLI commands.
type deps struct {
	engine *core.Engine
}

// newDeps creates shared dependencies. Called lazily by commands that need them.
func newDeps() (*deps, error) {
	engine, err := core.NewEngine(core.EngineOptions{
		InstallDir: fileio.ExpandPath(settings.GetString("install-dir")),
		Home:       fileio.ExpandPath(settings.GetString("home")),
		Platform:   helper.HostPlatform(),
		Logger:     cliLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing engine: %w", err)
	}
	return &deps{engine: engine}, nil
}

// bindFlags makes each named flag resolvable through settings, so it can
// also be supplied as CCG_<NAME>.
func bindFlags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		_ = settings.BindPFlag(name, fs.Lookup(name))
	}
}
