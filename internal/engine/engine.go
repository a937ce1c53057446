// Package engine orchestrates the transformation pipeline: scan a source
// unit, look up the rule for each recognized call, resolve arguments,
// rewrite, and emit. Units are independent; the engine is safe for
// concurrent use across files.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/QodeSrl/infrar-engine/internal/rewrite"
	"github.com/QodeSrl/infrar-engine/internal/rules"
	"github.com/QodeSrl/infrar-engine/internal/scanner"
	"github.com/QodeSrl/infrar-engine/internal/sdk"
	"github.com/QodeSrl/infrar-engine/pkg/core"
)

// MissingRuleError reports a recognized function with no rule for the
// requested provider. It is fatal for the provider's whole run: an
// incomplete rule set must surface immediately rather than silently emit
// unconverted calls.
type MissingRuleError struct {
	Function string
	Provider string
}

func (e *MissingRuleError) Error() string {
	return fmt.Sprintf("no rule for %s on provider %q (incomplete rule set)", e.Function, e.Provider)
}

// Engine transforms source units for one rule repository.
type Engine struct {
	repo     *rules.Repository
	contract *sdk.Contract
	scanner  *scanner.Scanner
	logger   *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Repository is the loaded rule repository. Required.
	Repository *rules.Repository
	// Contract is the SDK signature set; defaults to sdk.Storage().
	Contract *sdk.Contract
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("engine: rule repository is required")
	}
	contract := cfg.Contract
	if contract == nil {
		contract = sdk.Storage()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		repo:     cfg.Repository,
		contract: contract,
		scanner:  scanner.New(contract),
		logger:   logger,
	}, nil
}

// TransformSource rewrites one source unit for the target provider.
//
// Per-site failures (unsupported shape, comment adjacency, capture on a
// no-capture rule) never fail the unit: the site is left untouched and
// recorded as a skip. A parse failure fails the unit (*scanner.ParseError);
// a recognized function without a rule fails the run (*MissingRuleError).
func (e *Engine) TransformSource(name string, src []byte, provider string) (*core.FileResult, error) {
	unit, err := e.scanner.Scan(name, src)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("scanned unit", "file", name, "calls", len(unit.Calls))

	result := &core.FileResult{File: name, Provider: provider}
	rw := rewrite.NewRewriter(unit)
	nested := nestedIn(unit.Calls)

	for _, site := range unit.Calls {
		rule, ok := e.repo.Lookup(site.Function, provider)
		if !ok {
			return nil, &MissingRuleError{Function: site.Function, Provider: provider}
		}
		fn, ok := e.contract.Lookup(site.Function)
		if !ok {
			// Scanner only emits contract functions.
			return nil, fmt.Errorf("scanner produced unknown function %q", site.Function)
		}

		if outer, ok := nested[site]; ok {
			skipped := &core.Skip{
				File:     name,
				Line:     site.Line,
				Col:      site.Col,
				Function: site.Function,
				Reason:   core.SkipNestedCall,
				Detail:   fmt.Sprintf("inside the %s call at %s", outer.Function, outer.Location()),
			}
			e.logger.Debug("skipping call site",
				"file", name, "line", site.Line, "function", site.Function, "reason", skipped.Reason)
			result.Skipped = append(result.Skipped, *skipped)
			continue
		}

		values, skipped := rewrite.Resolve(name, site, fn, rule)
		if skipped != nil {
			e.logger.Debug("skipping call site",
				"file", name, "line", site.Line, "function", site.Function, "reason", skipped.Reason)
			result.Skipped = append(result.Skipped, *skipped)
			continue
		}

		native, err := rules.ExpandTemplate(rule.Template, values)
		if err != nil {
			return nil, fmt.Errorf("rule %s/%s: %w", site.Function, provider, err)
		}

		rw.ReplaceCall(site, native, rule)
		result.Transformed = append(result.Transformed, core.TransformedSite{
			File:     name,
			Line:     site.Line,
			Function: site.Function,
			Native:   native,
		})
	}

	out, state, err := rw.Finalize(len(result.Skipped) > 0)
	if err != nil {
		return nil, fmt.Errorf("failed to emit %s: %w", name, err)
	}
	result.Output = out
	result.State = state

	e.logger.Info("transformed unit",
		"file", name, "state", state.String(),
		"sites", len(result.Transformed), "skipped", len(result.Skipped))

	return result, nil
}

// nestedIn maps every call whose span lies inside another recognized call's
// span to that enclosing call. The outer site owns those bytes, whether it
// is rewritten or skipped, so an enclosed site must never produce its own
// edit.
func nestedIn(calls []*core.CallSite) map[*core.CallSite]*core.CallSite {
	if len(calls) < 2 {
		return nil
	}
	nested := map[*core.CallSite]*core.CallSite{}
	for _, inner := range calls {
		for _, outer := range calls {
			if inner == outer {
				continue
			}
			if inner.StartByte >= outer.StartByte && inner.EndByte <= outer.EndByte {
				nested[inner] = outer
				break
			}
		}
	}
	return nested
}
