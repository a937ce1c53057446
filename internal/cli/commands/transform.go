package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/QodeSrl/infrar-engine/internal/cli/output"
	"github.com/QodeSrl/infrar-engine/internal/engine"
	"github.com/QodeSrl/infrar-engine/pkg/core"
)

// TransformOptions holds options for the transform command.
type TransformOptions struct {
	Input      string
	Output     string
	ReportPath string
	Watch      bool
}

// NewTransformCommand creates the transform command.
func NewTransformCommand() *cobra.Command {
	opts := &TransformOptions{}

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Rewrite infrar.storage calls into native provider SDK calls",
		Long: `Transform Python sources for one target provider.

Each input file is scanned for infrar.storage calls. Every recognized call
is rewritten into the provider's native SDK call, and the provider's
imports and client setup are inserted once per file. Files without
recognized calls are copied through byte-identical.

Call sites that cannot be converted safely (a comment inside the argument
list, a captured result for a call whose native form returns nothing) are
left untouched and reported as skips. A file that fails to parse is
dropped from the output and reported; the rest of the run continues.`,
		Example: `  # Transform a project for AWS
  infrar transform -p aws -i ./src -o ./build/aws

  # Transform one file for GCP and write a machine-readable report
  infrar transform -p gcp -i app.py -o out/app.py --report report.json

  # Keep re-transforming as sources change
  infrar transform -p aws -i ./src -o ./build/aws --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransform(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Input .py file or directory (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output file or directory (required)")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "Write a JSON run report to this path")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-run whenever an input source changes")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runTransform(cmd *cobra.Command, opts *TransformOptions) error {
	cmdCtx := NewCommandContext(cmd)

	if cmdCtx.Cfg.Provider == "" {
		return fmt.Errorf("a target provider is required (use --provider)")
	}

	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}

	req := engine.BatchRequest{
		Provider:   cmdCtx.Cfg.Provider,
		InputPath:  opts.Input,
		OutputPath: opts.Output,
		Workers:    cmdCtx.Cfg.Workers,
	}

	if opts.Watch {
		return runWatch(cmd, cmdCtx, eng, req, opts)
	}

	report, err := eng.TransformBatch(cmd.Context(), req)
	if err != nil {
		return err
	}
	return finishRun(cmdCtx, report, opts)
}

// runWatch keeps the transform running until interrupted, rendering each
// completed run.
func runWatch(cmd *cobra.Command, cmdCtx *CommandContext, eng *engine.Engine, req engine.BatchRequest, opts *TransformOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := eng.Watch(ctx, req, func(report *core.Report, runErr error) {
		if runErr != nil {
			fmt.Fprintf(cmdCtx.Renderer.ErrWriter(), "Error: %v\n", runErr)
			return
		}
		if ferr := finishRun(cmdCtx, report, opts); ferr != nil {
			fmt.Fprintf(cmdCtx.Renderer.ErrWriter(), "Error: %v\n", ferr)
		}
	})
	if err != nil && ctx.Err() != nil {
		// Interrupt is a clean exit in watch mode.
		return nil
	}
	return err
}

// finishRun renders the report, writes the optional report file, and turns
// parse failures into a non-zero exit.
func finishRun(cmdCtx *CommandContext, report *core.Report, opts *TransformOptions) error {
	if err := output.RenderReport(cmdCtx.Renderer, report); err != nil {
		return err
	}
	if opts.ReportPath != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := os.WriteFile(opts.ReportPath, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if !report.OK() {
		return fmt.Errorf("%d file(s) failed to parse", len(report.ParseFailures))
	}
	return nil
}
