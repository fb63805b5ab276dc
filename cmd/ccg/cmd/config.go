package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the installation config",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the installation config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		store := d.engine.Store()

		// Parse first so a broken document is reported as such.
		cfg, err := store.Read()
		if err != nil {
			return err
		}
		if cfg == nil {
			return fmt.Errorf("no config at %s; run ccg init first", store.Path())
		}
		data, err := os.ReadFile(store.Path())
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n", store.Path())
		_, err = out.Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the location of the installation config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), d.engine.Store().Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
