package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/QodeSrl/infrar-engine/internal/sdk"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, buildDate, gitCommit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display infrar version, build and SDK contract information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "infrar v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "SDK contract: %s %s\n", sdk.ModulePath, sdk.ContractVersion)
			if buildDate != "unknown" || gitCommit != "unknown" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Built %s (%s)\n", buildDate, gitCommit)
			}
		},
	}
}
