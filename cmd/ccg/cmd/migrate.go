package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccgkit/ccg/internal/core/fileio"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move an installation made by an older release to the current layout",
	Long: `Copy config and prompts from the legacy locations (~/.ccg,
<install-dir>/prompts/ccg, <install-dir>/commands/ccg/_config.md) into
<install-dir>/.ccg. Files already present at the new location are kept.
Legacy files are never deleted. A config written under an older schema is
upgraded in place; one from a newer release is left alone.

Examples:
  ccg migrate --dry-run
  ccg migrate`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		out := cmd.OutOrStdout()
		m := d.engine.Migrator()

		if !m.NeedsMigration() {
			fmt.Fprintln(out, "Nothing to migrate.")
			return nil
		}

		if dryRun {
			if path := d.engine.Store().Path(); fileio.PathExists(path) {
				fmt.Fprintf(out, "Config uses an older schema (current is %d):\n  %s\n", d.engine.Store().Version(), path)
				return nil
			}
			fmt.Fprintln(out, "Legacy layout found:")
			for _, p := range m.LegacyMarkers() {
				if fileio.PathExists(p) {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			return nil
		}

		heading(out, "Migration")
		t := printMigration(out, m.Migrate())
		fmt.Fprintf(out, "\nSummary: %s\n", t)
		if t.failed > 0 {
			return errUnitsFailed
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("dry-run", false, "Report the legacy layout without copying anything")
	rootCmd.AddCommand(migrateCmd)
}
