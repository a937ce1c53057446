// Package scanner locates call sites of recognized infrar SDK functions in
// Python source. It statically parses the source with the Starlark syntax
// package and never executes anything.
package scanner

import (
	"strings"

	"go.starlark.net/syntax"

	"github.com/QodeSrl/infrar-engine/internal/sdk"
	"github.com/QodeSrl/infrar-engine/pkg/core"
)

// Scanner finds calls to recognized SDK functions.
type Scanner struct {
	contract *sdk.Contract
}

// New creates a scanner for the given SDK contract.
func New(contract *sdk.Contract) *Scanner {
	return &Scanner{contract: contract}
}

// Unit is one parsed source file with its located call sites. It owns the
// original bytes; call sites reference spans within them.
type Unit struct {
	Name string
	Src  []byte

	// Calls are the recognized call sites in source order.
	Calls []*core.CallSite

	// InfrarImports are the byte spans of infrar import statements, in
	// source order. The rewriter anchors the native import block on the
	// first one.
	InfrarImports [][2]int
}

// Scan parses the source and collects every syntactic call to a recognized
// SDK function. Malformed source is a fatal error for the whole unit.
func (s *Scanner) Scan(name string, src []byte) (*Unit, error) {
	imp := scanImports(src, s.contract)

	file, err := syntax.Parse(name, imp.masked, 0)
	if err != nil {
		return nil, toParseError(name, err)
	}

	li := newLineIndex(src)

	w := &walker{
		src:      src,
		li:       li,
		contract: s.contract,
		imp:      imp,
	}
	w.collectShadows(file)
	w.stmts(file.Stmts)

	return &Unit{
		Name:          name,
		Src:           src,
		Calls:         w.calls,
		InfrarImports: imp.infrarSpans,
	}, nil
}

func toParseError(name string, err error) *ParseError {
	if se, ok := err.(syntax.Error); ok {
		return &ParseError{File: name, Line: int(se.Pos.Line), Col: int(se.Pos.Col), Message: se.Msg}
	}
	return &ParseError{File: name, Message: err.Error()}
}

type walker struct {
	src      []byte
	li       *lineIndex
	contract *sdk.Contract
	imp      *importInfo

	events []nameEvent // import bindings merged with shadow events
	calls  []*core.CallSite
}

// collectShadows merges the import binding events with every definition or
// assignment that rebinds a name, so a local "def upload" or "upload = x"
// unbinds the SDK function for the rest of the unit.
func (w *walker) collectShadows(file *syntax.File) {
	w.events = append(w.events, w.imp.events...)

	syntax.Walk(file, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.DefStmt:
			w.shadowIdent(n.Name)
			for _, p := range n.Params {
				w.shadowParam(p)
			}
		case *syntax.AssignStmt:
			if n.Op == syntax.EQ {
				w.shadowTargets(n.LHS)
			}
		case *syntax.ForStmt:
			w.shadowTargets(n.Vars)
		}
		return true
	})

	// Events must be ordered by offset for last-write-wins resolution.
	sortEvents(w.events)
}

func (w *walker) shadowIdent(id *syntax.Ident) {
	if id == nil {
		return
	}
	off := w.li.offset(id.NamePos)
	w.events = append(w.events, nameEvent{Offset: off, Name: id.Name})
}

// shadowParam records def parameters as shadow events. Events are
// flow-insensitive: a parameter rebinding an SDK name unbinds it from the
// def onward for the rest of the unit, not just the def body, so later
// calls on that name go unmatched.
func (w *walker) shadowParam(p syntax.Expr) {
	switch p := p.(type) {
	case *syntax.Ident:
		w.shadowIdent(p)
	case *syntax.BinaryExpr:
		if id, ok := p.X.(*syntax.Ident); ok {
			w.shadowIdent(id)
		}
	case *syntax.UnaryExpr:
		if id, ok := p.X.(*syntax.Ident); ok {
			w.shadowIdent(id)
		}
	}
}

func (w *walker) shadowTargets(e syntax.Expr) {
	switch e := e.(type) {
	case *syntax.Ident:
		w.shadowIdent(e)
	case *syntax.TupleExpr:
		for _, el := range e.List {
			w.shadowTargets(el)
		}
	case *syntax.ListExpr:
		for _, el := range e.List {
			w.shadowTargets(el)
		}
	case *syntax.ParenExpr:
		w.shadowTargets(e.X)
	}
}

func sortEvents(events []nameEvent) {
	// Insertion sort keeps the common already-ordered case cheap.
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].Offset < events[j-1].Offset; j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

// stmts walks a statement list, classifying how each call's result is used.
func (w *walker) stmts(list []syntax.Stmt) {
	for _, st := range list {
		switch st := st.(type) {
		case *syntax.ExprStmt:
			w.expr(st.X, core.CallStandalone)
		case *syntax.AssignStmt:
			ctx := core.CallAssigned
			if st.Op != syntax.EQ {
				ctx = core.CallNested
			}
			w.expr(st.RHS, ctx)
			w.expr(st.LHS, core.CallNested)
		case *syntax.ReturnStmt:
			if st.Result != nil {
				w.expr(st.Result, core.CallReturned)
			}
		case *syntax.DefStmt:
			for _, p := range st.Params {
				w.expr(p, core.CallNested)
			}
			w.stmts(st.Body)
		case *syntax.ForStmt:
			w.expr(st.X, core.CallNested)
			w.stmts(st.Body)
		case *syntax.WhileStmt:
			w.expr(st.Cond, core.CallNested)
			w.stmts(st.Body)
		case *syntax.IfStmt:
			w.expr(st.Cond, core.CallNested)
			w.stmts(st.True)
			w.stmts(st.False)
		}
	}
}

// expr records recognized calls within an expression. The context applies to
// a call appearing as the whole expression; anything deeper is nested use.
func (w *walker) expr(e syntax.Expr, ctx core.CallContext) {
	if e == nil {
		return
	}
	if call, ok := e.(*syntax.CallExpr); ok {
		w.visitCall(call, ctx)
		w.expr(call.Fn, core.CallNested)
		for _, arg := range call.Args {
			if kv, ok := arg.(*syntax.BinaryExpr); ok && kv.Op == syntax.EQ {
				w.expr(kv.Y, core.CallNested)
				continue
			}
			w.expr(arg, core.CallNested)
		}
		return
	}
	if paren, ok := e.(*syntax.ParenExpr); ok {
		w.expr(paren.X, ctx)
		return
	}

	syntax.Walk(e, func(n syntax.Node) bool {
		if n == nil {
			return true
		}
		if call, ok := n.(*syntax.CallExpr); ok {
			w.expr(call, core.CallNested)
			return false
		}
		return true
	})
}

func (w *walker) visitCall(call *syntax.CallExpr, ctx core.CallContext) {
	start, end := w.li.spanOf(call)

	fn, local, ok := w.resolveCallee(call.Fn, start)
	if !ok {
		return
	}

	startPos, _ := call.Span()
	site := &core.CallSite{
		Function:  fn,
		Local:     local,
		Line:      int(startPos.Line),
		Col:       int(startPos.Col),
		StartByte: start,
		EndByte:   end,
		Context:   ctx,
	}

	for _, arg := range call.Args {
		site.Args = append(site.Args, w.argument(arg))
	}

	lparen := w.li.offset(call.Lparen)
	site.CommentInArgs = hasComment(w.src[lparen:end])

	w.calls = append(w.calls, site)
}

// resolveCallee maps the callee expression to a canonical SDK function name.
// Plain identifiers resolve through import bindings; dotted callees resolve
// through module prefixes ("infrar.storage.upload", "st.upload").
func (w *walker) resolveCallee(fn syntax.Expr, at int) (canonical, local string, ok bool) {
	switch fn := fn.(type) {
	case *syntax.Ident:
		canonical, ok = w.imp.resolveName(w.events, fn.Name, at)
		return canonical, fn.Name, ok
	case *syntax.DotExpr:
		path, flat := flattenDotted(fn)
		if !flat {
			return "", "", false
		}
		i := strings.LastIndexByte(path, '.')
		name := path[i+1:]
		if _, known := w.contract.Lookup(name); !known {
			return "", "", false
		}
		if !w.imp.resolvePrefix(path[:i], at) {
			return "", "", false
		}
		return name, path, true
	default:
		return "", "", false
	}
}

func flattenDotted(e syntax.Expr) (string, bool) {
	switch e := e.(type) {
	case *syntax.Ident:
		return e.Name, true
	case *syntax.DotExpr:
		prefix, ok := flattenDotted(e.X)
		if !ok {
			return "", false
		}
		return prefix + "." + e.Name.Name, true
	default:
		return "", false
	}
}

func (w *walker) argument(arg syntax.Expr) core.Argument {
	if un, ok := arg.(*syntax.UnaryExpr); ok && (un.Op == syntax.STAR || un.Op == syntax.STARSTAR) {
		s, e := w.li.spanOf(un)
		return core.Argument{Text: string(w.src[s:e]), Starred: true}
	}

	name := ""
	value := arg
	if kv, ok := arg.(*syntax.BinaryExpr); ok && kv.Op == syntax.EQ {
		if id, ok := kv.X.(*syntax.Ident); ok {
			name = id.Name
			value = kv.Y
		}
	}

	s, e := w.li.spanOf(value)
	a := core.Argument{Name: name, Text: string(w.src[s:e])}

	if lit, ok := value.(*syntax.Literal); ok {
		switch lit.Token {
		case syntax.STRING:
			if sv, ok := lit.Value.(string); ok {
				a.IsLiteral = true
				a.Literal = QuoteString(sv)
			}
		case syntax.INT, syntax.FLOAT:
			a.IsLiteral = true
			a.Literal = lit.Raw
		}
	}
	return a
}

// QuoteString renders a string value as a single-quoted Python literal.
func QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// hasComment reports a '#' outside any string literal within the span.
func hasComment(span []byte) bool {
	var quote byte
	triple := false
	escaped := false
	for i := 0; i < len(span); i++ {
		c := span[i]
		if quote != 0 {
			if escaped {
				escaped = false
				continue
			}
			switch {
			case c == '\\':
				escaped = true
			case c == quote && triple:
				if i+2 < len(span) && span[i+1] == quote && span[i+2] == quote {
					quote = 0
					triple = false
					i += 2
				}
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '#':
			return true
		case '\'', '"':
			quote = c
			if i+2 < len(span) && span[i+1] == c && span[i+2] == c {
				triple = true
				i += 2
			}
		}
	}
	return false
}
