package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ccgkit/ccg/internal/core/helper"
	"github.com/ccgkit/ccg/internal/logging"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// settings resolves flags and CCG_* environment variables.
var settings = newSettings()

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CCG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

var rootCmd = &cobra.Command{
	Use:   "ccg",
	Short: "Install and maintain multi-model workflows for Claude Code",
	Long: `ccg installs a versioned set of slash commands and role prompts into
~/.claude, routes work between Codex and Gemini, registers MCP helper tools
and migrates installations made by older releases.

Every option can also be set through a CCG_* environment variable, e.g.
--install-dir as CCG_INSTALL_DIR.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.ConfigureRuntime()
		if raw := settings.GetString("log-level"); raw != "" {
			lvl, ok := logging.ParseLevel(raw)
			if !ok {
				return fmt.Errorf("unknown log level %q", raw)
			}
			logger = logger.Level(lvl)
		}
		cliLogger = logger
		helper.ClientVersion = Version
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ccg %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("install-dir", "", "Installation directory (default ~/.claude)")
	pf.String("home", "", "Home directory used for legacy files and ~/.claude.json")
	pf.String("log-level", "", "Log level: debug, info, warn, error, off")
	bindFlags(pf, "install-dir", "home", "log-level")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
