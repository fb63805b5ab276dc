package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccgkit/ccg/internal/core/helper"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Manage MCP helper tools",
	Long: `Register, remove and check the MCP helper tools ccg knows about.

Entries are written under mcpServers in ~/.claude.json. Entries ccg does not
manage are never touched.`,
}

// ---------------------------------------------------------------------------
// mcp list
// ---------------------------------------------------------------------------

var mcpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known helper tools and registered MCP servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		reg := d.engine.Registrar()
		entries, err := reg.List()
		if err != nil {
			return err
		}
		registered := make(map[string]bool, len(entries))
		for _, e := range entries {
			registered[e.Name] = true
		}

		out := cmd.OutOrStdout()
		heading(out, "Helper tools")
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, t := range helper.All() {
			mark := markSkip()
			if registered[t.EntryName()] {
				mark = markOK()
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", mark, t.ID(), t.Kind(), t.DisplayName())
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintln(out)
		heading(out, "Registered in "+reg.RegistryPath())
		if len(entries) == 0 {
			fmt.Fprintln(out, "  (none)")
			return nil
		}
		w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, e := range entries {
			owner := "external"
			if e.Managed {
				owner = "ccg"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", e.Name, owner, strings.TrimSpace(e.Command+" "+strings.Join(e.Args, " ")))
		}
		return w.Flush()
	},
}

// ---------------------------------------------------------------------------
// mcp install
// ---------------------------------------------------------------------------

var mcpInstallCmd = &cobra.Command{
	Use:   "install <id>",
	Short: "Register a helper tool",
	Long: `Register one helper tool in ~/.claude.json, replacing any entry of the
same name. Credentials a tool needs are also written to its side-file.

Examples:
  ccg mcp install context7
  ccg mcp install ace-tool --token $ACE_TOKEN --base-url https://relay.example.com
  ccg mcp install contextweaver --key $SILICONFLOW_KEY
  ccg mcp install exa --key $EXA_API_KEY`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		token, _ := cmd.Flags().GetString("token")
		baseURL, _ := cmd.Flags().GetString("base-url")
		key, _ := cmd.Flags().GetString("key")

		res := d.engine.Registrar().Install(cmd.Context(), args[0], helper.Credentials{
			Token:   token,
			BaseURL: baseURL,
			APIKey:  key,
		})
		printHelperResult(cmd.OutOrStdout(), res)
		if !res.Success {
			return errUnitsFailed
		}
		return nil
	},
}

// ---------------------------------------------------------------------------
// mcp uninstall
// ---------------------------------------------------------------------------

var mcpUninstallCmd = &cobra.Command{
	Use:   "uninstall <name> [name...]",
	Short: "Remove registered MCP servers",
	Long: `Remove registry entries by helper tool id or entry name. Side-files owned
by ccg are removed with them. Removing an entry that is not registered is
not an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		failed := false
		for _, res := range d.engine.Registrar().UninstallMany(cmd.Context(), args) {
			printHelperResult(cmd.OutOrStdout(), res)
			failed = failed || !res.Success
		}
		if failed {
			return errUnitsFailed
		}
		return nil
	},
}

// ---------------------------------------------------------------------------
// mcp verify
// ---------------------------------------------------------------------------

var mcpVerifyCmd = &cobra.Command{
	Use:   "verify <name>",
	Short: "Start a registered MCP server and list its tools",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		v := d.engine.Registrar().Verify(ctx, args[0])
		out := cmd.OutOrStdout()
		if !v.Success {
			fmt.Fprintf(out, "  %s %s: %s\n", markFail(), v.Name, v.Message)
			return errUnitsFailed
		}
		fmt.Fprintf(out, "  %s %s: %s %s (protocol %s)\n", markOK(), v.Name, v.ServerName, v.ServerVersion, v.Protocol)
		for _, t := range v.Tools {
			fmt.Fprintf(out, "      %s\n", t)
		}
		return nil
	},
}

func init() {
	mcpInstallCmd.Flags().String("token", "", "Token (ace-tool, ace-tool-rs)")
	mcpInstallCmd.Flags().String("base-url", "", "Base URL (ace-tool, ace-tool-rs)")
	mcpInstallCmd.Flags().String("key", "", "API key (contextweaver, exa)")
	mcpVerifyCmd.Flags().Duration("timeout", 60*time.Second, "How long to wait for the server")

	mcpCmd.AddCommand(mcpListCmd)
	mcpCmd.AddCommand(mcpInstallCmd)
	mcpCmd.AddCommand(mcpUninstallCmd)
	mcpCmd.AddCommand(mcpVerifyCmd)
	rootCmd.AddCommand(mcpCmd)
}
