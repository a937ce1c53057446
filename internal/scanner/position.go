package scanner

import (
	"unicode/utf8"

	"go.starlark.net/syntax"
)

// lineIndex converts parser positions (1-based line, 1-based rune column)
// into byte offsets of the original source.
type lineIndex struct {
	src    []byte
	starts []int // byte offset of each line start
}

func newLineIndex(src []byte) *lineIndex {
	li := &lineIndex{src: src, starts: []int{0}}
	for i, b := range src {
		if b == '\n' {
			li.starts = append(li.starts, i+1)
		}
	}
	return li
}

// offset returns the byte offset for a parser position. Positions just past
// the end of a line (node end positions) resolve to the newline itself.
func (li *lineIndex) offset(pos syntax.Position) int {
	line := int(pos.Line)
	if line < 1 {
		return 0
	}
	if line > len(li.starts) {
		return len(li.src)
	}
	o := li.starts[line-1]
	for col := int(pos.Col); col > 1 && o < len(li.src); col-- {
		if li.src[o] == '\n' {
			break
		}
		_, size := utf8.DecodeRune(li.src[o:])
		o += size
	}
	return o
}

// spanOf returns the byte range covered by a syntax node.
func (li *lineIndex) spanOf(n syntax.Node) (start, end int) {
	s, e := n.Span()
	return li.offset(s), li.offset(e)
}
