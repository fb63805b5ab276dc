package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ccgkit/ccg/internal/core/workflow"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List and remove workflows",
}

// ---------------------------------------------------------------------------
// workflows list
// ---------------------------------------------------------------------------

var workflowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the workflow catalog and what is installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}

		installed := map[string]bool{}
		cfg, err := d.engine.Store().Read()
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if cfg != nil {
			for _, id := range cfg.Workflows.Installed {
				installed[id] = true
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, def := range d.engine.Catalog().All() {
			mark := markSkip()
			if installed[def.ID] {
				mark = markOK()
			}
			fmt.Fprintf(w, "%s\t%s\t%d prompt(s)\t%s\n", mark, def.ID, countPrompts(def), def.Description)
		}
		return w.Flush()
	},
}

func countPrompts(def workflow.Definition) int {
	n := 0
	for _, a := range def.Artifacts {
		if a.Kind == workflow.KindPrompt {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// workflows uninstall
// ---------------------------------------------------------------------------

var workflowsUninstallCmd = &cobra.Command{
	Use:   "uninstall <id> [id...]",
	Short: "Remove installed workflows",
	Long: `Remove the command and prompt files of the given workflows and drop them
from the installed set in the config.

Examples:
  ccg workflows uninstall frontend backend`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		_, unknown := d.engine.Catalog().Partition(args)
		if len(unknown) > 0 {
			return fmt.Errorf("unknown workflow(s): %v", unknown)
		}

		out, err := d.engine.UninstallWorkflows(args)
		for _, p := range out.Removed {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s removed %s\n", markOK(), p)
		}
		for _, e := range out.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", markFail(), e)
		}
		if err != nil {
			return err
		}
		if len(out.Errors) > 0 {
			return errUnitsFailed
		}
		return nil
	},
}

func init() {
	workflowsCmd.AddCommand(workflowsListCmd)
	workflowsCmd.AddCommand(workflowsUninstallCmd)
	rootCmd.AddCommand(workflowsCmd)
}
