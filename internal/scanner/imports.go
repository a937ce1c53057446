package scanner

import (
	"strings"

	"github.com/QodeSrl/infrar-engine/internal/sdk"
)

// Python import statements are not part of the Starlark grammar, so the
// scanner runs a line-oriented pre-pass first: it records which local names
// an infrar import binds, which names other imports shadow, and masks every
// import statement with spaces of identical byte length before parsing.
// Masking keeps every byte offset of the original source valid against the
// parsed tree.

// nameEvent binds or shadows one local name at a byte offset. A binding has
// Function set to the canonical SDK function name; a shadow clears it.
type nameEvent struct {
	Offset   int
	Name     string
	Function string
}

// prefixEvent makes a dotted prefix refer to the SDK module from a byte
// offset onward (e.g. "infrar.storage", or "st" after "import
// infrar.storage as st").
type prefixEvent struct {
	Offset int
	Prefix string
}

// importInfo is the result of the import pre-pass.
type importInfo struct {
	masked      []byte
	infrarSpans [][2]int // byte spans of infrar import statements
	events      []nameEvent
	prefixes    []prefixEvent
}

// scanImports runs the pre-pass over the raw source.
func scanImports(src []byte, contract *sdk.Contract) *importInfo {
	info := &importInfo{masked: append([]byte(nil), src...)}

	var strState tripleQuoteTracker
	offset := 0
	for offset < len(src) {
		lineEnd := offset
		for lineEnd < len(src) && src[lineEnd] != '\n' {
			lineEnd++
		}
		line := string(src[offset:lineEnd])

		// A line inside a triple-quoted string is text, not a statement,
		// even when it reads like an import.
		if strState.consume(line) || !isImportLine(line) {
			offset = lineEnd + 1
			continue
		}

		// Extend over parenthesized or backslash-continued statements.
		stmtEnd := lineEnd
		stmt := line
		for needsContinuation(stmt) && stmtEnd < len(src) {
			next := stmtEnd + 1
			for next < len(src) && src[next] != '\n' {
				next++
			}
			stmt = stmt + "\n" + string(src[stmtEnd+1:next])
			stmtEnd = next
		}

		span := [2]int{offset, stmtEnd}
		if info.parseImport(stmt, stmtEnd, contract) {
			info.infrarSpans = append(info.infrarSpans, span)
		}
		maskBytes(info.masked, offset, stmtEnd)
		offset = stmtEnd + 1
	}

	return info
}

// isImportLine reports a top-level import statement. Indented imports are
// outside the supported subset and left for the parser to reject.
func isImportLine(line string) bool {
	return strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "from ")
}

// tripleQuoteTracker tracks whether the scan position is inside a
// triple-quoted string across lines. Only triple-quoted strings span lines,
// so the carried state is a single active quote character.
type tripleQuoteTracker struct {
	quote byte
}

// consume advances over one line and reports whether the line began inside a
// triple-quoted string.
func (t *tripleQuoteTracker) consume(line string) bool {
	inside := t.quote != 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		if t.quote != 0 {
			switch {
			case c == '\\':
				i++
			case c == t.quote && i+2 < len(line) && line[i+1] == t.quote && line[i+2] == t.quote:
				t.quote = 0
				i += 2
			}
			continue
		}
		switch c {
		case '#':
			return inside
		case '\'', '"':
			if i+2 < len(line) && line[i+1] == c && line[i+2] == c {
				t.quote = c
				i += 2
				continue
			}
			// Single-line string: consume through its closing quote.
			for i++; i < len(line); i++ {
				if line[i] == '\\' {
					i++
					continue
				}
				if line[i] == c {
					break
				}
			}
		}
	}
	return inside
}

func needsContinuation(stmt string) bool {
	if strings.HasSuffix(strings.TrimRight(stmt, " \t"), "\\") {
		return true
	}
	return strings.Count(stmt, "(") > strings.Count(stmt, ")")
}

func maskBytes(buf []byte, start, end int) {
	for i := start; i < end && i < len(buf); i++ {
		if buf[i] != '\n' {
			buf[i] = ' '
		}
	}
}

// parseImport records the binding effects of one import statement ending at
// byte offset end. It returns true when the statement imports from the
// infrar package.
func (info *importInfo) parseImport(stmt string, end int, contract *sdk.Contract) bool {
	stmt = stripImportComment(stmt)
	stmt = strings.NewReplacer("\\\n", " ", "\n", " ", "(", " ", ")", " ").Replace(stmt)
	fields := strings.Fields(stmt)
	if len(fields) < 2 {
		return false
	}

	if fields[0] == "import" {
		return info.parsePlainImport(fields[1:], end, contract)
	}
	if fields[0] != "from" || len(fields) < 3 {
		return false
	}

	// from MODULE import NAMES
	module := fields[1]
	rest := fields[2:]
	if len(rest) == 0 || rest[0] != "import" {
		return false
	}
	names := parseImportItems(strings.Join(rest[1:], " "))

	switch module {
	case contract.Module():
		for _, item := range names {
			if _, ok := contract.Lookup(item.name); ok {
				info.events = append(info.events, nameEvent{Offset: end, Name: item.localName(), Function: item.name})
			}
		}
		return true
	case packageOf(contract.Module()):
		sub := contract.Module()[len(packageOf(contract.Module()))+1:]
		for _, item := range names {
			if item.name == sub {
				info.prefixes = append(info.prefixes, prefixEvent{Offset: end, Prefix: item.localName()})
			}
		}
		return true
	default:
		// Imports from any other module shadow the names they bind.
		for _, item := range names {
			info.events = append(info.events, nameEvent{Offset: end, Name: item.localName()})
		}
		return false
	}
}

// parsePlainImport handles "import a.b [as x], c.d [as y]".
func (info *importInfo) parsePlainImport(fields []string, end int, contract *sdk.Contract) bool {
	items := parseImportItems(strings.Join(fields, " "))
	infrar := false
	for _, item := range items {
		switch item.name {
		case contract.Module():
			prefix := item.alias
			if prefix == "" {
				prefix = contract.Module()
			}
			info.prefixes = append(info.prefixes, prefixEvent{Offset: end, Prefix: prefix})
			infrar = true
		case packageOf(contract.Module()):
			prefix := item.alias
			if prefix == "" {
				prefix = item.name
			}
			sub := contract.Module()[len(packageOf(contract.Module()))+1:]
			info.prefixes = append(info.prefixes, prefixEvent{Offset: end, Prefix: prefix + "." + sub})
			infrar = true
		default:
			// "import os" binds the top-level package name.
			top := item.alias
			if top == "" {
				top, _, _ = strings.Cut(item.name, ".")
			}
			info.events = append(info.events, nameEvent{Offset: end, Name: top})
		}
	}
	return infrar
}

type importItem struct {
	name  string
	alias string
}

func (it importItem) localName() string {
	if it.alias != "" {
		return it.alias
	}
	return it.name
}

// parseImportItems splits "a, b as c, d" into items.
func parseImportItems(s string) []importItem {
	var items []importItem
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(part)
		switch {
		case len(fields) == 1:
			items = append(items, importItem{name: fields[0]})
		case len(fields) == 3 && fields[1] == "as":
			items = append(items, importItem{name: fields[0], alias: fields[2]})
		}
	}
	return items
}

// stripImportComment drops a trailing "# ..." comment. Import statements
// contain no string literals, so the first '#' starts the comment.
func stripImportComment(stmt string) string {
	if i := strings.IndexByte(stmt, '#'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

func packageOf(module string) string {
	pkg, _, _ := strings.Cut(module, ".")
	return pkg
}

// resolveName returns the canonical SDK function a local name refers to at
// the given byte offset, honoring later rebinds and shadows.
func (info *importInfo) resolveName(events []nameEvent, name string, at int) (string, bool) {
	fn := ""
	for _, ev := range events {
		if ev.Offset >= at || ev.Name != name {
			continue
		}
		fn = ev.Function
	}
	return fn, fn != ""
}

// resolvePrefix reports whether a dotted prefix denotes the SDK module at
// the given byte offset.
func (info *importInfo) resolvePrefix(prefix string, at int) bool {
	for _, ev := range info.prefixes {
		if ev.Offset < at && ev.Prefix == prefix {
			return true
		}
	}
	return false
}
