package compose

import (
	"sort"

	"github.com/neelance/sourcemap"
)

// index answers "which original position does the bundled text at
// (line, column) come from" over the packager map's segments.
type index struct {
	lines map[int][]*sourcemap.Mapping
}

func newIndex(mappings []*sourcemap.Mapping) *index {
	ix := &index{lines: make(map[int][]*sourcemap.Mapping)}
	for _, m := range mappings {
		if m.OriginalFile == "" {
			// Segments without an original position cannot contribute
			// a source location.
			continue
		}
		ix.lines[m.GeneratedLine] = append(ix.lines[m.GeneratedLine], m)
	}
	for _, segs := range ix.lines {
		sort.Slice(segs, func(i, j int) bool {
			return segs[i].GeneratedColumn < segs[j].GeneratedColumn
		})
	}
	return ix
}

// lookup returns the segment covering (line, column): the rightmost one
// at or before column on that line. Returns nil when the position
// precedes every segment on the line.
func (ix *index) lookup(line, column int) *sourcemap.Mapping {
	segs := ix.lines[line]
	i := sort.Search(len(segs), func(i int) bool {
		return segs[i].GeneratedColumn > column
	})
	if i == 0 {
		return nil
	}
	return segs[i-1]
}
