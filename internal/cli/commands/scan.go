package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/QodeSrl/infrar-engine/internal/cli/output"
	"github.com/QodeSrl/infrar-engine/internal/engine"
	"github.com/QodeSrl/infrar-engine/internal/scanner"
	"github.com/QodeSrl/infrar-engine/internal/sdk"
	"github.com/QodeSrl/infrar-engine/pkg/core"
)

// ScanOptions holds options for the scan command.
type ScanOptions struct {
	Input string
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	opts := &ScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List infrar.storage call sites without rewriting anything",
		Long: `Scan Python sources and list every recognized infrar.storage call.

Nothing is written. The listing shows where each call sits and how its
result is used (standalone, assigned, returned, nested), which determines
whether a later transform can convert it.`,
		Example: `  # Scan a project
  infrar scan -i ./src

  # Machine-readable listing
  infrar scan -i ./src -f json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Input .py file or directory (required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runScan(cmd *cobra.Command, opts *ScanOptions) error {
	cmdCtx := NewCommandContext(cmd)

	inputs, _, err := engine.ListSources(opts.Input)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no Python sources found under %s", opts.Input)
	}

	sc := scanner.New(sdk.Storage())
	listing := &output.ScanListing{}

	for _, in := range inputs {
		src, err := os.ReadFile(in.Path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", in.Path, err)
		}

		unit, err := sc.Scan(in.Rel, src)
		if err != nil {
			var perr *scanner.ParseError
			if errors.As(err, &perr) {
				listing.ParseFailures = append(listing.ParseFailures, core.ParseFailure{
					File:    in.Rel,
					Message: perr.Error(),
				})
				continue
			}
			return err
		}

		for _, site := range unit.Calls {
			listing.Sites = append(listing.Sites, output.CallSiteRow{
				File:     in.Rel,
				Line:     site.Line,
				Col:      site.Col,
				Function: site.Function,
				Context:  site.Context.String(),
			})
		}
	}

	if err := output.RenderScan(cmdCtx.Renderer, listing); err != nil {
		return err
	}
	if len(listing.ParseFailures) > 0 {
		return fmt.Errorf("%d file(s) failed to parse", len(listing.ParseFailures))
	}
	return nil
}
