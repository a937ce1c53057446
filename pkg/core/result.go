package core

// UnitState tracks the rewrite lifecycle of one source unit.
// Transitions only move forward: Unmodified -> PartiallyRewritten -> Finalized.
type UnitState int

// UnitState constants.
const (
	UnitUnmodified UnitState = iota
	UnitPartiallyRewritten
	UnitFinalized
)

func (s UnitState) String() string {
	switch s {
	case UnitUnmodified:
		return "unmodified"
	case UnitPartiallyRewritten:
		return "partially_rewritten"
	case UnitFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// SkipReason classifies why a call site was left untouched.
type SkipReason string

// SkipReason constants. The reason strings are part of the report format.
const (
	SkipCaptureUnsupported SkipReason = "capture unsupported"
	SkipCommentInArgs      SkipReason = "comment inside argument list"
	SkipUnknownArgument    SkipReason = "unrecognized argument"
	SkipDuplicateArgument  SkipReason = "duplicate argument"
	SkipMissingArgument    SkipReason = "missing required argument"
	SkipTooManyArguments   SkipReason = "too many positional arguments"
	SkipStarredArgument    SkipReason = "starred argument"
	SkipNestedCall         SkipReason = "nested inside another recognized call"
)

// Skip records one call site that could not be transformed, with enough
// context for a developer to hand-fix it.
type Skip struct {
	File     string     `json:"file"`
	Line     int        `json:"line"`
	Col      int        `json:"col"`
	Function string     `json:"function"`
	Reason   SkipReason `json:"reason"`
	Detail   string     `json:"detail,omitempty"`
}

// TransformedSite records one successfully rewritten call site.
type TransformedSite struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
	Native   string `json:"native"`
}

// FileResult is the outcome of transforming one source unit: the rewritten
// bytes plus the per-site inventory. A unit with zero recognized calls is a
// valid result in state UnitUnmodified with output identical to its input.
type FileResult struct {
	File        string
	Provider    string
	State       UnitState
	Output      []byte
	Transformed []TransformedSite
	Skipped     []Skip
}

// ParseFailure records a source unit that could not be parsed at all.
// The unit produces no output; the rest of the batch continues.
type ParseFailure struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Report is the machine-readable summary of one transform run over a batch
// of files for a single target provider.
type Report struct {
	Provider      string            `json:"provider"`
	Files         int               `json:"files"`
	Rewritten     int               `json:"rewritten_files"`
	Sites         int               `json:"transformed_sites"`
	Transformed   []TransformedSite `json:"transformed,omitempty"`
	Skipped       []Skip            `json:"skipped,omitempty"`
	ParseFailures []ParseFailure    `json:"parse_failures,omitempty"`
}

// OK reports whether the run is a success for exit-code purposes.
// Partial skips are a success; parse failures are not.
func (r *Report) OK() bool {
	return len(r.ParseFailures) == 0
}
