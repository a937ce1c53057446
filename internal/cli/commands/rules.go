package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/QodeSrl/infrar-engine/internal/cli/output"
	"github.com/QodeSrl/infrar-engine/internal/rules"
)

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules [provider]",
		Short: "List the loaded transformation rules",
		Long: `List the transformation rules the engine would apply.

Without arguments, rules for every loaded provider are shown. Pass a
provider name to limit the listing. The builtin rule sets are used unless
--rules-dir points at a custom rule directory.`,
		Example: `  # List all rules
  infrar rules

  # List the AWS rules only
  infrar rules aws

  # List rules from a custom directory as JSON
  infrar rules --rules-dir ./rules -f json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := ""
			if len(args) > 0 {
				provider = args[0]
			}
			return runRules(cmd, provider)
		},
	}

	return cmd
}

func runRules(cmd *cobra.Command, provider string) error {
	cmdCtx := NewCommandContext(cmd)

	repo, err := loadRepository(cmdCtx.Cfg)
	if err != nil {
		return err
	}

	providers := repo.Providers()
	if provider != "" {
		if len(repo.RulesFor(provider)) == 0 {
			return fmt.Errorf("no rules for provider %q (have: %s)", provider, strings.Join(providers, ", "))
		}
		providers = []string{provider}
	}

	if cmdCtx.Renderer.EffectiveMode() == output.ModeJSON {
		listing := make(map[string][]*rules.Rule, len(providers))
		for _, p := range providers {
			listing[p] = repo.RulesFor(p)
		}
		return cmdCtx.Renderer.JSON(listing)
	}

	styles := cmdCtx.Renderer.Styles()
	for _, p := range providers {
		cmdCtx.Renderer.Println("")
		cmdCtx.Renderer.Println(styles.Header.Render("Provider: " + p))

		t := table.NewWriter()
		t.SetOutputMirror(cmdCtx.Renderer.Writer())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Function", "Template", "Capture"})
		for _, r := range repo.RulesFor(p) {
			capture := "yes"
			if r.NoCapture {
				capture = "no"
			}
			t.AppendRow(table.Row{r.Function, r.Template, capture})
		}
		t.Render()
	}
	cmdCtx.Renderer.Println("")

	return nil
}
