// Package syntax provides the JavaScript parse and print services used by
// the header rewriter. Parsing is backed by tree-sitter; printing is a
// splice of byte-range edits over the original source, so untouched code
// keeps its exact formatting.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// ErrSyntax is returned when a source file does not parse as JavaScript.
var ErrSyntax = errors.New("javascript syntax error")

// Tree couples a parsed syntax tree with the source bytes it indexes into.
type Tree struct {
	src  []byte
	tree *sitter.Tree
}

// Parse parses src as a JavaScript program. It fails loudly on malformed
// input: any error or missing node in the tree yields ErrSyntax with the
// position of the first offender.
//
// Each call uses its own parser instance, so Parse is safe for concurrent
// use from multiple goroutines.
func Parse(ctx context.Context, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing javascript: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		if bad := firstErrorNode(root); bad != nil {
			line, col := Position(bad)
			tree.Close()
			return nil, fmt.Errorf("%d:%d: %w", line, col, ErrSyntax)
		}
		tree.Close()
		return nil, ErrSyntax
	}

	return &Tree{src: src, tree: tree}, nil
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Root returns the program node.
func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// Text returns the source text covered by a node.
func (t *Tree) Text(n *sitter.Node) string {
	return n.Content(t.src)
}

// TopLevel returns the named top-level nodes of the program in source
// order. Comments appear here too; callers filter by node type.
func (t *Tree) TopLevel() []*sitter.Node {
	root := t.Root()
	count := int(root.NamedChildCount())
	nodes := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		nodes = append(nodes, root.NamedChild(i))
	}
	return nodes
}

// StringValue returns the value of a string literal node: the content
// between the quotes, with escape sequences decoded. Newer grammars
// expose the content as string_fragment and escape_sequence children;
// older ones (and the empty literal) require trimming the quote
// characters.
func (t *Tree) StringValue(n *sitter.Node) string {
	count := int(n.NamedChildCount())
	if count == 0 {
		text := t.Text(n)
		if len(text) >= 2 {
			return text[1 : len(text)-1]
		}
		return ""
	}

	var b strings.Builder
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child.Type() == "escape_sequence" {
			b.WriteString(decodeEscape(t.Text(child)))
			continue
		}
		b.WriteString(t.Text(child))
	}
	return b.String()
}

// decodeEscape maps one escape_sequence token, leading backslash
// included, to the text it denotes. Escaping a character with no
// special meaning yields the character itself, as in JavaScript.
func decodeEscape(seq string) string {
	if len(seq) < 2 {
		return ""
	}
	body := seq[1:]
	switch body[0] {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case 'x', 'u':
		if v, err := strconv.ParseUint(strings.Trim(body[1:], "{}"), 16, 32); err == nil {
			return string(rune(v))
		}
	case '0', '1', '2', '3', '4', '5', '6', '7':
		if v, err := strconv.ParseUint(body, 8, 32); err == nil {
			return string(rune(v))
		}
	case '\n', '\r':
		// line continuation
		return ""
	}
	if body == "\u2028" || body == "\u2029" {
		return ""
	}
	return body
}

// Position returns the 1-based line and column of a node's start.
func Position(n *sitter.Node) (line, col int) {
	p := n.StartPoint()
	return int(p.Row) + 1, int(p.Column) + 1
}

// firstErrorNode walks into the subtree reporting an error and returns the
// first ERROR or missing node in source order.
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return n
}
