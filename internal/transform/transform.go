// Package transform rewrites steal module headers into AMD define
// headers. The rewrite is a set of byte-range edits against the original
// source, so everything outside the header keeps its exact bytes.
package transform

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"amdify/internal/syntax"
	"amdify/internal/translate"
)

const (
	loaderName = "steal"
	amdName    = "define"
	lintOld    = "steal:false"
	lintNew    = "define:false"
)

// BadDependencyError reports a dependency argument that is not a plain
// string literal. The offending file is left untouched.
type BadDependencyError struct {
	Path  string
	Line  int
	Col   int
	Found string
}

func (e *BadDependencyError) Error() string {
	return fmt.Sprintf("%s:%d:%d: dependency argument is a %s, not a string literal", e.Path, e.Line, e.Col, e.Found)
}

// Rewriter converts steal headers to define headers using one name
// mapping. It holds no per-file state and is safe for concurrent use.
type Rewriter struct {
	mapping translate.Mapping
	log     *zap.Logger
}

// NewRewriter returns a Rewriter backed by the given mapping tables.
func NewRewriter(mapping translate.Mapping, log *zap.Logger) *Rewriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rewriter{mapping: mapping, log: log}
}

// Rewrite converts the module header of one file. It returns the
// rewritten source and true, or the input unchanged and false when the
// file carries no steal header. Malformed JavaScript and non-string
// dependency arguments are errors; on error no output is produced.
//
// Only the first top-level steal call is the header. Nested calls and
// second or later top-level calls are left alone, matching how the
// steal loader itself only honors the first one.
func (r *Rewriter) Rewrite(ctx context.Context, path string, src []byte) ([]byte, bool, error) {
	tree, err := syntax.Parse(ctx, src)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	defer tree.Close()

	call := findHeader(tree)
	if call == nil {
		r.log.Debug("no steal header", zap.String("path", path))
		return src, false, nil
	}

	argsNode := call.ChildByFieldName("arguments")
	if argsNode == nil || argsNode.Type() != "arguments" {
		line, col := syntax.Position(call)
		found := "missing arguments"
		if argsNode != nil {
			found = argsNode.Type()
		}
		return nil, false, &BadDependencyError{Path: path, Line: line, Col: col, Found: found}
	}

	deps, factory := splitArguments(argsNode)
	for _, dep := range deps {
		if dep.Type() != "string" {
			line, col := syntax.Position(dep)
			return nil, false, &BadDependencyError{Path: path, Line: line, Col: col, Found: dep.Type()}
		}
	}

	edits := syntax.NewEditList(src)
	edits.ReplaceNode(call.ChildByFieldName("function"), amdName)

	switch {
	case len(deps) > 0:
		// Brackets go just inside the parens and right after the last
		// dependency; the original separators between arguments are
		// untouched bytes, which is what keeps inline headers inline
		// and one-per-line headers at their original indentation.
		edits.Insert(argsNode.StartByte()+1, "[")
		for _, dep := range deps {
			id := r.mapping.Translate(tree.StringValue(dep))
			edits.ReplaceNode(dep, quote(id))
		}
		edits.Insert(deps[len(deps)-1].EndByte(), "]")
	case factory != nil:
		edits.Insert(factory.StartByte(), "[], ")
	default:
		edits.Insert(argsNode.StartByte()+1, "[]")
	}

	rewriteLintDirective(tree, edits)

	out, err := edits.Apply()
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}

	r.log.Debug("header rewritten",
		zap.String("path", path),
		zap.Int("deps", len(deps)),
		zap.Bool("factory", factory != nil),
		zap.String("layout", layoutOf(deps)))
	return out, true, nil
}

// Scan reports whether a file still carries a steal header. It parses
// but never modifies anything.
func Scan(ctx context.Context, path string, src []byte) (bool, error) {
	tree, err := syntax.Parse(ctx, src)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	defer tree.Close()
	return findHeader(tree) != nil, nil
}

// findHeader returns the first top-level expression statement that calls
// the identifier steal, or nil.
func findHeader(tree *syntax.Tree) *sitter.Node {
	for _, stmt := range tree.TopLevel() {
		if stmt.Type() != "expression_statement" {
			continue
		}
		expr := stmt.NamedChild(0)
		if expr == nil || expr.Type() != "call_expression" {
			continue
		}
		callee := expr.ChildByFieldName("function")
		if callee == nil || callee.Type() != "identifier" {
			continue
		}
		if tree.Text(callee) == loaderName {
			return expr
		}
	}
	return nil
}

// splitArguments separates dependency arguments from a trailing factory
// function. Comments inside the argument list are not arguments.
func splitArguments(args *sitter.Node) (deps []*sitter.Node, factory *sitter.Node) {
	var list []*sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		n := args.NamedChild(i)
		if n.Type() == "comment" {
			continue
		}
		list = append(list, n)
	}
	if len(list) > 0 && isFunction(list[len(list)-1]) {
		return list[:len(list)-1], list[len(list)-1]
	}
	return list, nil
}

// isFunction matches the node types a factory argument can have. The
// grammar renamed "function" to "function_expression" at some point;
// accept both vintages, plus arrow and generator functions.
func isFunction(n *sitter.Node) bool {
	switch n.Type() {
	case "function", "function_expression", "arrow_function", "generator_function":
		return true
	}
	return false
}

// quoteEscaper covers the characters that cannot appear raw inside a
// single-quoted JavaScript string literal; tabs stay in escaped form.
var quoteEscaper = strings.NewReplacer(
	`\`, `\\`,
	"'", `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// quote renders a module ID as a single-quoted JavaScript string.
func quote(id string) string {
	return "'" + quoteEscaper.Replace(id) + "'"
}

// layoutOf reports how the dependency list was laid out in the source.
func layoutOf(deps []*sitter.Node) string {
	if len(deps) >= 2 && deps[0].StartPoint().Row != deps[len(deps)-1].StartPoint().Row {
		return "multiline"
	}
	return "inline"
}

// rewriteLintDirective updates the first block comment that declares the
// steal global for lint tools, e.g. /*global steal:false, can:true */.
// Only the first occurrence inside that comment changes.
func rewriteLintDirective(tree *syntax.Tree, edits *syntax.EditList) {
	comment := firstLintComment(tree.Root(), tree)
	if comment == nil {
		return
	}
	text := tree.Text(comment)
	at := comment.StartByte() + uint32(strings.Index(text, lintOld))
	edits.Replace(at, at+uint32(len(lintOld)), lintNew)
}

// firstLintComment walks the tree in source order for the first block
// comment mentioning the steal lint global.
func firstLintComment(n *sitter.Node, tree *syntax.Tree) *sitter.Node {
	if n.Type() == "comment" {
		text := tree.Text(n)
		if strings.HasPrefix(text, "/*") && strings.Contains(text, lintOld) {
			return n
		}
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstLintComment(n.Child(i), tree); found != nil {
			return found
		}
	}
	return nil
}
