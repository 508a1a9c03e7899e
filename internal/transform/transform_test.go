package transform

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"amdify/internal/syntax"
	"amdify/internal/translate"
)

func testMapping() translate.Mapping {
	return translate.Mapping{
		Exact: map[string]string{
			"jquery": "jquery",
		},
		Plugins: []translate.PluginRule{
			{Suffix: ".mustache!", Prefix: "mustache!"},
			{Suffix: ".ejs!", Prefix: "ejs!"},
		},
	}
}

func rewrite(t *testing.T, m translate.Mapping, src string) (string, bool) {
	t.Helper()
	r := NewRewriter(m, zap.NewNop())
	out, changed, err := r.Rewrite(context.Background(), "app.js", []byte(src))
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	return string(out), changed
}

func TestRewriteInlineHeader(t *testing.T) {
	src := "steal('can/util', 'jquery', function(util, $) {\n\treturn util;\n});\n"
	want := "define(['can/util/util', 'jquery'], function(util, $) {\n\treturn util;\n});\n"

	got, changed := rewrite(t, testMapping(), src)
	if !changed {
		t.Fatal("Rewrite reported no change")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rewrite mismatch (-want +got):\n%s", diff)
	}
}

func TestRewriteMultilineHeader(t *testing.T) {
	src := "steal(\n\t'can/util',\n\t'views/page.mustache!',\n\tfunction(util, page) {\n\t\treturn page;\n\t}\n);\n"
	want := "define([\n\t'can/util/util',\n\t'mustache!views/page.mustache'],\n\tfunction(util, page) {\n\t\treturn page;\n\t}\n);\n"

	got, changed := rewrite(t, testMapping(), src)
	if !changed {
		t.Fatal("Rewrite reported no change")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rewrite mismatch (-want +got):\n%s", diff)
	}
}

func TestRewriteNoHeader(t *testing.T) {
	src := "var x = compute('x');\nmodule.exports = x;\n"

	got, changed := rewrite(t, testMapping(), src)
	if changed {
		t.Fatal("Rewrite claimed to change a file without a header")
	}
	if got != src {
		t.Errorf("output differs from input:\n%q", got)
	}
}

func TestRewriteIsIdempotent(t *testing.T) {
	src := "/*global steal:false */\nsteal('can/util', function(util) {});\n"

	first, changed := rewrite(t, testMapping(), src)
	if !changed {
		t.Fatal("first pass reported no change")
	}
	second, changed := rewrite(t, testMapping(), first)
	if changed {
		t.Fatal("second pass reported a change")
	}
	if second != first {
		t.Errorf("second pass altered output:\nfirst:  %q\nsecond: %q", first, second)
	}
}

func TestRewriteFactoryOnly(t *testing.T) {
	src := "steal(function() {\n\tboot();\n});\n"
	want := "define([], function() {\n\tboot();\n});\n"

	got, _ := rewrite(t, testMapping(), src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteGeneratorFactory(t *testing.T) {
	src := "steal('can/util', function*(util) {\n\tyield util;\n});\n"
	want := "define(['can/util/util'], function*(util) {\n\tyield util;\n});\n"

	got, _ := rewrite(t, testMapping(), src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteEmptyCall(t *testing.T) {
	src := "steal();\n"
	want := "define([]);\n"

	got, _ := rewrite(t, testMapping(), src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteWithoutFactory(t *testing.T) {
	src := "steal('can/control', './widgets/init.js');\n"
	want := "define(['can/control/control', './widgets/init']);\n"

	got, _ := rewrite(t, testMapping(), src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewritePreservesDependencyOrder(t *testing.T) {
	src := "steal('b', 'a', 'c', function() {});\n"
	want := "define(['b/b', 'a/a', 'c/c'], function() {});\n"

	got, _ := rewrite(t, testMapping(), src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteKeepsFactoryBytes(t *testing.T) {
	src := "steal('x', function ( a,b ) {\n    if(a){ return b }\n  });\n"
	want := "define(['x/x'], function ( a,b ) {\n    if(a){ return b }\n  });\n"

	got, _ := rewrite(t, testMapping(), src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteKeepsCRLF(t *testing.T) {
	src := "steal('a', function() {\r\n\treturn 1;\r\n});\r\n"
	want := "define(['a/a'], function() {\r\n\treturn 1;\r\n});\r\n"

	got, _ := rewrite(t, testMapping(), src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteDoubleQuotedDeps(t *testing.T) {
	src := "steal(\"can/util/string.js\", function(str) {});\n"
	want := "define(['can/util/string'], function(str) {});\n"

	got, _ := rewrite(t, testMapping(), src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteEscapesQuotesInIDs(t *testing.T) {
	m := translate.Mapping{Exact: map[string]string{"odd": "it's/odd"}}
	src := "steal('odd');\n"
	want := `define(['it\'s/odd']);` + "\n"

	got, _ := rewrite(t, m, src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteDecodesEscapedDeps(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "tab escape",
			src:  `steal('can\tutil', function(u) {});` + "\n",
			want: `define(['can\tutil/can\tutil'], function(u) {});` + "\n",
		},
		{
			name: "escaped quote",
			src:  `steal('it\'s/x', function(u) {});` + "\n",
			want: `define(['it\'s/x/x'], function(u) {});` + "\n",
		},
		{
			name: "unicode escape reaches the exact table",
			src:  `steal('jquer\u0079', function($) {});` + "\n",
			want: `define(['jquery'], function($) {});` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := rewrite(t, testMapping(), tt.src)
			if !changed {
				t.Fatal("Rewrite reported no change")
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRewriteCommentInsideArguments(t *testing.T) {
	src := "steal(\n\t'can/util', // utilities\n\t'can/view',\n\tfunction(util, view) {}\n);\n"
	want := "define([\n\t'can/util/util', // utilities\n\t'can/view/view'],\n\tfunction(util, view) {}\n);\n"

	got, _ := rewrite(t, testMapping(), src)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rewrite mismatch (-want +got):\n%s", diff)
	}
}

func TestRewriteSkipsLaterCalls(t *testing.T) {
	src := "steal('can/util', function(util) {});\nsteal('extra');\n"
	want := "define(['can/util/util'], function(util) {});\nsteal('extra');\n"

	got, _ := rewrite(t, testMapping(), src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteIgnoresNestedCalls(t *testing.T) {
	src := "function load() {\n\tsteal('can/util');\n}\nload();\n"

	got, changed := rewrite(t, testMapping(), src)
	if changed {
		t.Fatal("Rewrite treated a nested call as the header")
	}
	if got != src {
		t.Errorf("output differs from input:\n%q", got)
	}
}

func TestRewriteHeaderAfterOtherStatements(t *testing.T) {
	src := "'use strict';\nvar VERSION = '2.3';\nsteal('can/view', function(view) {});\n"
	want := "'use strict';\nvar VERSION = '2.3';\ndefine(['can/view/view'], function(view) {});\n"

	got, _ := rewrite(t, testMapping(), src)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteLintDirective(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "global directive",
			src:  "/*global steal:false, can:true */\nsteal('jquery', function($) {});\n",
			want: "/*global define:false, can:true */\ndefine(['jquery'], function($) {});\n",
		},
		{
			name: "only first comment",
			src:  "/*global steal:false */\n/* steal:false again */\nsteal('a', function() {});\n",
			want: "/*global define:false */\n/* steal:false again */\ndefine(['a/a'], function() {});\n",
		},
		{
			name: "only first occurrence",
			src:  "/*global steal:false, steal:false */\nsteal();\n",
			want: "/*global define:false, steal:false */\ndefine([]);\n",
		},
		{
			name: "line comments do not count",
			src:  "// steal:false\nsteal();\n",
			want: "// steal:false\ndefine([]);\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := rewrite(t, testMapping(), tt.src)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRewriteLintDirectiveNeedsHeader(t *testing.T) {
	src := "/*global steal:false */\nvar a = 1;\n"

	got, changed := rewrite(t, testMapping(), src)
	if changed {
		t.Fatal("Rewrite touched a file without a header")
	}
	if got != src {
		t.Errorf("output differs from input:\n%q", got)
	}
}

func TestRewriteBadDependency(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		line  int
		col   int
		found string
	}{
		{
			name:  "identifier",
			src:   "steal(\n\t'can/util',\n\tsomeVar,\n\tfunction() {}\n);\n",
			line:  3,
			col:   2,
			found: "identifier",
		},
		{
			name:  "number",
			src:   "steal(42, function() {});\n",
			line:  1,
			col:   7,
			found: "number",
		},
		{
			name:  "member expression",
			src:   "steal(app.deps, function() {});\n",
			line:  1,
			col:   7,
			found: "member_expression",
		},
	}

	r := NewRewriter(testMapping(), zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed, err := r.Rewrite(context.Background(), "app.js", []byte(tt.src))
			if err == nil {
				t.Fatal("Rewrite accepted a non-string dependency")
			}
			if out != nil || changed {
				t.Error("Rewrite produced output despite the error")
			}
			var bad *BadDependencyError
			if !errors.As(err, &bad) {
				t.Fatalf("error %v is not a BadDependencyError", err)
			}
			if bad.Path != "app.js" || bad.Line != tt.line || bad.Col != tt.col || bad.Found != tt.found {
				t.Errorf("error = %+v, want app.js:%d:%d %s", bad, tt.line, tt.col, tt.found)
			}
		})
	}
}

func TestRewriteTemplateArguments(t *testing.T) {
	r := NewRewriter(testMapping(), zap.NewNop())

	_, _, err := r.Rewrite(context.Background(), "app.js", []byte("steal`can/util`;\n"))
	if err == nil {
		t.Fatal("Rewrite accepted template literal arguments")
	}
	var bad *BadDependencyError
	if !errors.As(err, &bad) {
		t.Fatalf("error %v is not a BadDependencyError", err)
	}
}

func TestRewriteSyntaxError(t *testing.T) {
	r := NewRewriter(testMapping(), zap.NewNop())

	_, _, err := r.Rewrite(context.Background(), "app.js", []byte("steal('a'\n"))
	if err == nil {
		t.Fatal("Rewrite accepted malformed input")
	}
	if !errors.Is(err, syntax.ErrSyntax) {
		t.Errorf("error = %v, want ErrSyntax", err)
	}
	if !strings.Contains(err.Error(), "app.js") {
		t.Errorf("error %q does not name the file", err)
	}
}

func TestScan(t *testing.T) {
	ctx := context.Background()

	found, err := Scan(ctx, "a.js", []byte("steal('a');\n"))
	if err != nil || !found {
		t.Errorf("Scan(steal file) = %v, %v; want true, nil", found, err)
	}

	found, err = Scan(ctx, "b.js", []byte("define(['a'], function(a) {});\n"))
	if err != nil || found {
		t.Errorf("Scan(define file) = %v, %v; want false, nil", found, err)
	}

	if _, err := Scan(ctx, "c.js", []byte("steal('a'\n")); err == nil {
		t.Error("Scan accepted malformed input")
	}
}
