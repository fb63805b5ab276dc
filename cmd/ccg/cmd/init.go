package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccgkit/ccg/internal/core"
	"github.com/ccgkit/ccg/internal/core/helper"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Install ccg workflows, prompts and helper tools",
	Long: `Install the ccg workflows into the installation directory.

Existing files are kept unless --force is given. An installation made by an
older release is migrated first. Settings that are not given on the command
line are taken from an existing config, or from the defaults.

Examples:
  ccg init
  ccg init --workflows workflow,plan,review --lang en
  ccg init --provider ace-tool --provider-token $TOKEN --with context7,exa --exa-key $EXA
  ccg init --api-url https://relay.example.com --api-key sk-...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}

		req, err := buildInitRequest(cmd)
		if err != nil {
			return err
		}

		report, err := d.engine.Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		if printReport(cmd.OutOrStdout(), report).failed > 0 {
			return errUnitsFailed
		}
		return nil
	},
}

func buildInitRequest(cmd *cobra.Command) (core.Request, error) {
	workflows, _ := cmd.Flags().GetStringSlice("workflows")
	force, _ := cmd.Flags().GetBool("force")
	with, _ := cmd.Flags().GetStringSlice("with")

	req := core.Request{
		Workflows:     workflows,
		Force:         force,
		Language:      settings.GetString("lang"),
		Provider:      settings.GetString("provider"),
		WrapperSource: settings.GetString("wrapper"),
		ProviderCredentials: helper.Credentials{
			Token:   settings.GetString("provider-token"),
			BaseURL: settings.GetString("provider-base-url"),
			APIKey:  settings.GetString("provider-key"),
		},
	}

	if cmd.Flags().Changed("lite") {
		lite, _ := cmd.Flags().GetBool("lite")
		req.LiteMode = &lite
	}

	routing, err := routingFromFlags(cmd)
	if err != nil {
		return req, err
	}
	req.Routing = routing

	for _, id := range with {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		creds := helper.Credentials{}
		if id == "exa" {
			creds.APIKey = settings.GetString("exa-key")
		}
		req.HelperTools = append(req.HelperTools, core.HelperToolRequest{ID: id, Credentials: creds})
	}

	apiURL := settings.GetString("api-url")
	apiKey := settings.GetString("api-key")
	if apiURL != "" || apiKey != "" {
		req.API = &core.APISettings{BaseURL: apiURL, APIKey: apiKey}
	}
	return req, nil
}

// routingFromFlags returns nil when no routing flag was given.
func routingFromFlags(cmd *cobra.Command) (*core.Routing, error) {
	flags := []string{"frontend", "backend", "review", "mode"}
	changed := false
	for _, f := range flags {
		changed = changed || cmd.Flags().Changed(f)
	}
	if !changed {
		return nil, nil
	}

	r := core.DefaultRouting()
	if cmd.Flags().Changed("frontend") {
		models, _ := cmd.Flags().GetStringSlice("frontend")
		r.Frontend = core.RoutingRole{Models: models, Primary: first(models), Strategy: core.StrategyFallback}
	}
	if cmd.Flags().Changed("backend") {
		models, _ := cmd.Flags().GetStringSlice("backend")
		r.Backend = core.RoutingRole{Models: models, Primary: first(models), Strategy: core.StrategyFallback}
	}
	if cmd.Flags().Changed("review") {
		models, _ := cmd.Flags().GetStringSlice("review")
		r.Review = core.RoutingRole{Models: models, Strategy: core.StrategyParallel}
	}
	if cmd.Flags().Changed("mode") {
		r.Mode, _ = cmd.Flags().GetString("mode")
	}
	if err := core.ValidateRouting(r); err != nil {
		return nil, fmt.Errorf("invalid routing: %w", err)
	}
	return &r, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func init() {
	f := initCmd.Flags()
	f.StringSlice("workflows", nil, "Workflow ids to install (default: all, or the installed set)")
	f.Bool("force", false, "Overwrite existing workflow files")
	f.Bool("lite", false, "Lite mode: skip the richer optional prompts")
	f.String("lang", "", "Language tag stored in the config (default zh-CN)")
	f.StringSlice("frontend", nil, "Frontend models, primary first")
	f.StringSlice("backend", nil, "Backend models, primary first")
	f.StringSlice("review", nil, "Review models")
	f.String("mode", "", "Collaboration mode stored in the config")
	f.String("provider", "", "Code-retrieval provider: "+strings.Join(helper.ProviderIDs(), ", "))
	f.String("provider-token", "", "Token for ace-tool providers")
	f.String("provider-base-url", "", "Base URL for ace-tool providers")
	f.String("provider-key", "", "API key for contextweaver")
	f.StringSlice("with", nil, "Auxiliary helper tools to register (context7, Playwright, mcp-deepwiki, exa)")
	f.String("exa-key", "", "API key for exa")
	f.String("api-url", "", "ANTHROPIC_BASE_URL written to settings.json")
	f.String("api-key", "", "ANTHROPIC_API_KEY written to settings.json")
	f.String("wrapper", "", "Path of the codeagent-wrapper binary to install")
	bindFlags(f, "lang", "provider", "provider-token", "provider-base-url", "provider-key",
		"exa-key", "api-url", "api-key", "wrapper")

	rootCmd.AddCommand(initCmd)
}

