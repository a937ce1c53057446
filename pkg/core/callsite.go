package core

import "fmt"

// CallContext describes how a call's result is used at the call site.
// No-capture rules only match CallStandalone sites.
type CallContext int

// CallContext constants.
const (
	CallStandalone CallContext = iota // expression statement, result discarded
	CallAssigned                      // right-hand side of an assignment
	CallReturned                      // result of a return statement
	CallNested                        // nested inside a larger expression
)

func (c CallContext) String() string {
	switch c {
	case CallStandalone:
		return "standalone"
	case CallAssigned:
		return "assigned"
	case CallReturned:
		return "returned"
	case CallNested:
		return "nested"
	default:
		return "unknown"
	}
}

// Argument is one argument of a located call, by name or position.
type Argument struct {
	// Name is the keyword name, or "" for a positional argument.
	Name string

	// Text is the verbatim source text of the argument expression.
	Text string

	// IsLiteral reports whether the argument is a string or numeric literal.
	IsLiteral bool

	// Literal is the normalized Python rendering of the literal value
	// (single-quoted for strings). Empty unless IsLiteral.
	Literal string

	// Starred reports a *args or **kwargs argument, which the engine
	// cannot map onto a native call template.
	Starred bool
}

// CallSite identifies one located invocation of a recognized SDK function.
// It is immutable once matched; byte offsets index into the unit's
// original source.
type CallSite struct {
	// Function is the canonical SDK function name (e.g. "upload").
	Function string

	// Local is the name the call was written with (import alias aware).
	Local string

	// Line and Col are the 1-based position of the call in the unit.
	Line int
	Col  int

	// StartByte and EndByte delimit the full call expression, including
	// the closing parenthesis, in the original source.
	StartByte int
	EndByte   int

	// Args holds the call arguments in source order.
	Args []Argument

	// Context describes how the call's result is used.
	Context CallContext

	// CommentInArgs reports an inline comment between the parentheses.
	// Such sites are skipped rather than risk mis-rewriting.
	CommentInArgs bool
}

// Location returns the call position as "line:col".
func (c *CallSite) Location() string {
	return fmt.Sprintf("%d:%d", c.Line, c.Col)
}
