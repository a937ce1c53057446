package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/QodeSrl/infrar-engine/internal/scanner"
	"github.com/QodeSrl/infrar-engine/pkg/core"
)

// BatchRequest describes one transform run: a file or directory of Python
// sources, rewritten for one target provider.
type BatchRequest struct {
	// Provider is the target provider (e.g. "aws").
	Provider string
	// InputPath is a .py file or a directory walked for .py files.
	InputPath string
	// OutputPath is the output file (file input) or directory mirror
	// (directory input).
	OutputPath string
	// Workers bounds concurrent file transforms; 0 means NumCPU.
	Workers int
}

// SourceFile pairs an input path with its path relative to the input root.
type SourceFile struct {
	Path string
	Rel  string
}

// TransformBatch transforms every input file for one provider. Files are
// independent and processed concurrently; the repository is shared
// read-only. A parse failure drops that file from the output and is
// recorded in the report; a missing rule aborts the whole run.
func (e *Engine) TransformBatch(ctx context.Context, req BatchRequest) (*core.Report, error) {
	inputs, singleFile, err := ListSources(req.InputPath)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no Python sources found under %s", req.InputPath)
	}

	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	e.logger.Info("starting transform run",
		"provider", req.Provider, "files", len(inputs), "workers", workers)

	// One outcome slot per input keeps report ordering deterministic
	// without locking.
	type outcome struct {
		result    *core.FileResult
		parseFail *core.ParseFailure
	}
	outcomes := make([]outcome, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			src, err := os.ReadFile(in.Path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", in.Path, err)
			}

			result, err := e.TransformSource(in.Rel, src, req.Provider)
			if err != nil {
				var perr *scanner.ParseError
				if errors.As(err, &perr) {
					outcomes[i].parseFail = &core.ParseFailure{File: in.Rel, Message: perr.Error()}
					return nil
				}
				return err
			}

			outPath := req.OutputPath
			if !singleFile {
				outPath = filepath.Join(req.OutputPath, in.Rel)
			}
			if err := writeOutput(outPath, result.Output); err != nil {
				return err
			}

			outcomes[i].result = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &core.Report{Provider: req.Provider, Files: len(inputs)}
	for _, o := range outcomes {
		switch {
		case o.parseFail != nil:
			report.ParseFailures = append(report.ParseFailures, *o.parseFail)
		case o.result != nil:
			if o.result.State == core.UnitFinalized {
				report.Rewritten++
			}
			report.Sites += len(o.result.Transformed)
			report.Transformed = append(report.Transformed, o.result.Transformed...)
			report.Skipped = append(report.Skipped, o.result.Skipped...)
		}
	}

	e.logger.Info("transform run complete",
		"provider", req.Provider,
		"files", report.Files,
		"rewritten", report.Rewritten,
		"sites", report.Sites,
		"skipped", len(report.Skipped),
		"parse_failures", len(report.ParseFailures))

	return report, nil
}

// ListSources resolves the input path to the file list. Hidden directories
// and __pycache__ are skipped. singleFile reports whether the input was a
// plain file rather than a directory.
func ListSources(input string) (files []SourceFile, singleFile bool, err error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, false, fmt.Errorf("failed to access input: %w", err)
	}

	if !info.IsDir() {
		return []SourceFile{{Path: input, Rel: filepath.Base(input)}}, true, nil
	}

	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != input && (strings.HasPrefix(name, ".") || name == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".py") {
			return nil
		}
		rel, err := filepath.Rel(input, path)
		if err != nil {
			return err
		}
		files = append(files, SourceFile{Path: path, Rel: rel})
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to walk input directory: %w", err)
	}
	return files, false, nil
}

func writeOutput(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
