// Package diff computes and renders line diffs between the original and
// rewritten contents of a file, for dry-run previews.
package diff

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType classifies a diff line.
type LineType int

const (
	LineContext LineType = iota
	LineAdded
	LineRemoved
)

// Line is a single line of a hunk.
type Line struct {
	LineNum int
	Content string
	Type    LineType
}

// Hunk is a group of nearby changes with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff holds the hunks for one rewritten file.
type FileDiff struct {
	Path  string
	Hunks []Hunk
}

// Empty reports whether the file contents were identical.
func (d *FileDiff) Empty() bool {
	return len(d.Hunks) == 0
}

// Stats returns the number of added and removed lines.
func (d *FileDiff) Stats() (added, removed int) {
	for _, h := range d.Hunks {
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				added++
			case LineRemoved:
				removed++
			}
		}
	}
	return added, removed
}

// contextLines is how much unchanged context each hunk keeps.
const contextLines = 3

// Engine computes line diffs.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates a diff engine tuned for code.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp}
}

// Compute diffs the old and new contents of one file. The comparison is
// reduced to line level first, which avoids newline boundary artifacts
// when converting character diffs back to line operations.
func (e *Engine) Compute(path, oldContent, newContent string) *FileDiff {
	fd := &FileDiff{Path: path}
	if oldContent == newContent {
		return fd
	}

	a, b, lineArray := e.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	fd.Hunks = groupIntoHunks(toOperations(diffs))
	return fd
}

// operation is one line of the full diff before hunk grouping.
type operation struct {
	typ     LineType
	oldLine int
	newLine int
	content string
}

// toOperations flattens diffmatchpatch runs into per-line operations
// with running old/new line numbers.
func toOperations(diffs []diffmatchpatch.Diff) []operation {
	var ops []operation
	oldLine, newLine := 0, 0

	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}

		for _, line := range lines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, operation{LineContext, oldLine, newLine, line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, operation{LineRemoved, oldLine, -1, line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, operation{LineAdded, -1, newLine, line})
				newLine++
			}
		}
	}

	return ops
}

// groupIntoHunks groups operations into hunks, keeping contextLines of
// unchanged lines around each run of changes.
func groupIntoHunks(ops []operation) []Hunk {
	var hunks []Hunk
	var current *Hunk
	lastChange := -1

	for i, op := range ops {
		if op.typ != LineContext {
			if current == nil {
				current = &Hunk{}
				start := i - contextLines
				if start < 0 {
					start = 0
				}
				for j := start; j < i; j++ {
					current.Lines = append(current.Lines, Line{
						LineNum: ops[j].oldLine + 1,
						Content: ops[j].content,
						Type:    LineContext,
					})
				}
				// Hunk starts are the first line numbered on each
				// side; a hunk opening with a removal has no new
				// line number until the next insert or context op.
				for j := start; j < len(ops); j++ {
					if ops[j].oldLine >= 0 {
						current.OldStart = ops[j].oldLine + 1
						break
					}
				}
				for j := start; j < len(ops); j++ {
					if ops[j].newLine >= 0 {
						current.NewStart = ops[j].newLine + 1
						break
					}
				}
			}
			lastChange = i
		}

		if current == nil {
			continue
		}

		lineNum := op.oldLine + 1
		if op.typ == LineAdded {
			lineNum = op.newLine + 1
		}
		current.Lines = append(current.Lines, Line{
			LineNum: lineNum,
			Content: op.content,
			Type:    op.typ,
		})

		// Close only when the next change is out of reach of this
		// hunk's trailing context; otherwise the hunks would overlap
		// and they share one instead.
		if op.typ == LineContext && i-lastChange >= contextLines &&
			!changeWithin(ops, i+1, lastChange+2*contextLines+1) {
			countHunkLines(current)
			hunks = append(hunks, *current)
			current = nil
		}
	}

	if current != nil && len(current.Lines) > 0 {
		countHunkLines(current)
		hunks = append(hunks, *current)
	}

	return hunks
}

// changeWithin reports whether any non-context operation sits in
// ops[from..limit].
func changeWithin(ops []operation, from, limit int) bool {
	for j := from; j < len(ops) && j <= limit; j++ {
		if ops[j].typ != LineContext {
			return true
		}
	}
	return false
}

func countHunkLines(h *Hunk) {
	for _, line := range h.Lines {
		if line.Type != LineAdded {
			h.OldCount++
		}
		if line.Type != LineRemoved {
			h.NewCount++
		}
	}
}

var (
	pathStyle    = lipgloss.NewStyle().Bold(true)
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Background(lipgloss.Color("#052e16"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Background(lipgloss.Color("#2d0a0a"))
	contextStyle = lipgloss.NewStyle()
)

// Render formats the diff for terminal output. With color disabled the
// same layout is emitted as plain text.
func (d *FileDiff) Render(color bool) string {
	if d.Empty() {
		return ""
	}

	var sb strings.Builder
	writeLine := func(style lipgloss.Style, text string) {
		if color {
			sb.WriteString(style.Render(text))
		} else {
			sb.WriteString(text)
		}
		sb.WriteString("\n")
	}

	writeLine(pathStyle, "--- "+d.Path)
	writeLine(pathStyle, "+++ "+d.Path)

	for _, hunk := range d.Hunks {
		writeLine(hunkStyle, fmt.Sprintf("@@ -%d,%d +%d,%d @@",
			hunk.OldStart, hunk.OldCount, hunk.NewStart, hunk.NewCount))

		for _, line := range hunk.Lines {
			switch line.Type {
			case LineAdded:
				writeLine(addedStyle, "+ "+line.Content)
			case LineRemoved:
				writeLine(removedStyle, "- "+line.Content)
			default:
				writeLine(contextStyle, "  "+line.Content)
			}
		}
	}

	return sb.String()
}
