package syntax

import (
	"bytes"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// Edit replaces the byte range [Start, End) of the source buffer with Text.
// A zero-width range (Start == End) is an insertion.
type Edit struct {
	Start uint32
	End   uint32
	Text  string
}

// EditList accumulates splice edits against a single source buffer and
// applies them in one pass. Bytes outside the edited ranges are emitted
// untouched, which is what preserves the file's original formatting.
type EditList struct {
	src   []byte
	edits []Edit
}

// NewEditList creates an edit list over src. The buffer is not copied;
// callers must not mutate it until Apply returns.
func NewEditList(src []byte) *EditList {
	return &EditList{src: src}
}

// Replace queues a replacement of [start, end) with text.
func (e *EditList) Replace(start, end uint32, text string) {
	e.edits = append(e.edits, Edit{Start: start, End: end, Text: text})
}

// ReplaceNode queues a replacement of the node's source range with text.
func (e *EditList) ReplaceNode(n *sitter.Node, text string) {
	e.Replace(n.StartByte(), n.EndByte(), text)
}

// Insert queues an insertion of text at the given byte offset.
func (e *EditList) Insert(at uint32, text string) {
	e.Replace(at, at, text)
}

// Empty reports whether no edits have been queued.
func (e *EditList) Empty() bool {
	return len(e.edits) == 0
}

// Apply splices all queued edits into the source and returns the result.
// Edits must not overlap; zero-width edits may touch the boundaries of
// neighboring edits.
func (e *EditList) Apply() ([]byte, error) {
	edits := make([]Edit, len(e.edits))
	copy(edits, e.edits)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].Start != edits[j].Start {
			return edits[i].Start < edits[j].Start
		}
		return edits[i].End < edits[j].End
	})

	var out bytes.Buffer
	out.Grow(len(e.src) + 64)
	pos := uint32(0)
	for _, ed := range edits {
		if ed.End > uint32(len(e.src)) || ed.Start > ed.End {
			return nil, fmt.Errorf("edit [%d,%d) out of range for %d-byte source", ed.Start, ed.End, len(e.src))
		}
		if ed.Start < pos {
			return nil, fmt.Errorf("overlapping edit at byte %d (previous edit ended at %d)", ed.Start, pos)
		}
		out.Write(e.src[pos:ed.Start])
		out.WriteString(ed.Text)
		pos = ed.End
	}
	out.Write(e.src[pos:])
	return out.Bytes(), nil
}
