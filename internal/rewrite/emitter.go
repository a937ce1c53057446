package rewrite

import (
	"fmt"
	"sort"
)

// edit is one byte-range replacement against the original source.
type edit struct {
	start int
	end   int
	text  string
}

// applyEdits splices the edits into src, preserving every byte outside the
// edited ranges. Edits must not overlap. With zero edits the result is a
// byte-identical copy, which is what gives unmodified units their
// round-trip guarantee.
func applyEdits(src []byte, edits []edit) ([]byte, error) {
	if len(edits) == 0 {
		return append([]byte(nil), src...), nil
	}

	sorted := make([]edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	out := make([]byte, 0, len(src)+len(edits)*16)
	last := 0
	for _, e := range sorted {
		if e.start < last {
			return nil, fmt.Errorf("overlapping edits at byte %d", e.start)
		}
		if e.end > len(src) || e.start > e.end {
			return nil, fmt.Errorf("edit range %d:%d out of bounds", e.start, e.end)
		}
		out = append(out, src[last:e.start]...)
		out = append(out, e.text...)
		last = e.end
	}
	out = append(out, src[last:]...)
	return out, nil
}
