package rewrite

import (
	"strings"

	"github.com/QodeSrl/infrar-engine/internal/rules"
	"github.com/QodeSrl/infrar-engine/internal/scanner"
	"github.com/QodeSrl/infrar-engine/pkg/core"
)

// Rewriter accumulates mutations against one source unit and emits the
// final text. State only moves forward: a unit starts Unmodified, becomes
// PartiallyRewritten on the first replaced call, and Finalized on emit.
type Rewriter struct {
	unit  *scanner.Unit
	state core.UnitState

	edits   []edit
	imports []string
	setup   []string
	seen    map[string]bool
}

// NewRewriter creates a rewriter over a scanned unit.
func NewRewriter(unit *scanner.Unit) *Rewriter {
	return &Rewriter{unit: unit, state: core.UnitUnmodified, seen: map[string]bool{}}
}

// State returns the unit's current rewrite state.
func (r *Rewriter) State() core.UnitState { return r.state }

// ReplaceCall substitutes the call site's span with the native call text and
// registers the rule's import and setup requirements. Requirements are
// deduplicated across all call sites of the unit, preserving first-seen
// order, so each appears exactly once in the output.
func (r *Rewriter) ReplaceCall(site *core.CallSite, native string, rule *rules.Rule) {
	r.edits = append(r.edits, edit{start: site.StartByte, end: site.EndByte, text: native})
	for _, line := range rule.Imports {
		if !r.seen[line] {
			r.seen[line] = true
			r.imports = append(r.imports, line)
		}
	}
	for _, line := range rule.Setup {
		if !r.seen[line] {
			r.seen[line] = true
			r.setup = append(r.setup, line)
		}
	}
	r.state = core.UnitPartiallyRewritten
}

// Finalize emits the rewritten source. keepSDKImports must be true when any
// recognized call was skipped: the surviving original calls still reference
// the infrar import, so it stays and the native block is inserted above it.
// When every call was rewritten, the first infrar import is replaced by the
// native block and any later ones are removed.
//
// A unit with zero replaced calls is emitted byte-identical to its input
// and stays Unmodified.
func (r *Rewriter) Finalize(keepSDKImports bool) ([]byte, core.UnitState, error) {
	if r.state == core.UnitUnmodified {
		out, err := applyEdits(r.unit.Src, nil)
		return out, core.UnitUnmodified, err
	}

	edits := append([]edit(nil), r.edits...)
	if block := r.importBlock(); block != "" {
		edits = append(edits, r.blockEdits(block, keepSDKImports)...)
	}

	out, err := applyEdits(r.unit.Src, edits)
	if err != nil {
		return nil, r.state, err
	}
	r.state = core.UnitFinalized
	return out, r.state, nil
}

func (r *Rewriter) importBlock() string {
	lines := make([]string, 0, len(r.imports)+len(r.setup))
	lines = append(lines, r.imports...)
	lines = append(lines, r.setup...)
	return strings.Join(lines, "\n")
}

// blockEdits positions the native import/setup block exactly once, before
// the first rewritten call.
func (r *Rewriter) blockEdits(block string, keepSDKImports bool) []edit {
	spans := r.unit.InfrarImports
	if len(spans) == 0 {
		// No import statement to anchor on (should not happen for a unit
		// with recognized calls); prepend to the file.
		return []edit{{start: 0, end: 0, text: block + "\n"}}
	}

	first := spans[0]
	if keepSDKImports {
		return []edit{{start: first[0], end: first[0], text: block + "\n"}}
	}

	edits := []edit{{start: first[0], end: first[1], text: block}}
	for _, span := range spans[1:] {
		end := span[1]
		if end < len(r.unit.Src) && r.unit.Src[end] == '\n' {
			end++
		}
		edits = append(edits, edit{start: span[0], end: end, text: ""})
	}
	return edits
}
