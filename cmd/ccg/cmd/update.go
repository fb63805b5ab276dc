package cmd

import (
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-render installed workflows with the stored settings",
	Long: `Re-render every installed workflow from the current release, overwriting
the files on disk. Routing, language and provider are taken from the stored
config. An installation made by an older release is migrated first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}

		src, _ := cmd.Flags().GetString("wrapper")
		if src == "" {
			src = settings.GetString("wrapper")
		}

		report, err := d.engine.Update(cmd.Context(), src)
		if err != nil {
			return err
		}
		if printReport(cmd.OutOrStdout(), report).failed > 0 {
			return errUnitsFailed
		}
		return nil
	},
}

func init() {
	updateCmd.Flags().String("wrapper", "", "Path of the codeagent-wrapper binary to install")
	rootCmd.AddCommand(updateCmd)
}
