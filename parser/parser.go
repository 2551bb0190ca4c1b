// Package parser stands in for a full SystemVerilog grammar: it
// recognizes "module NAME ... endmodule" spans well enough to produce a
// Tree the compilation package can bind and the driver can report top
// instances from.
package parser

import (
	"fmt"

	"github.com/svfront/driver/diag"
	"github.com/svfront/driver/syntax"
)

// Module is one recognized module declaration.
type Module struct {
	Name string
}

// Tree is the parse result for a single source buffer: path plus every
// module declaration found in it, in declaration order.
type Tree struct {
	Path    string
	Modules []Module
}

// Parse scans tokens for "module IDENT ... endmodule" spans. A malformed
// span (an endmodule with no matching module, or EOF reached mid-module)
// is issued through engine as a SyntaxError diagnostic rather than
// returned as a Go error, so a file that fails to parse still takes part
// in compilation and reporting like any other diagnosed failure, instead
// of short-circuiting the whole run the way a filesystem load error does.
func Parse(path string, tokens []syntax.Token, engine *diag.Engine) *Tree {
	tree := &Tree{Path: path}
	depth := 0
	var pending string
	var pendingLine, pendingColumn int

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Kind != syntax.TokIdentifier {
			continue
		}
		switch tok.Text {
		case "module":
			depth++
			if depth == 1 && i+1 < len(tokens) {
				pending = tokens[i+1].Text
				pendingLine, pendingColumn = tok.Line, tok.Column
			}
		case "endmodule":
			if depth == 0 {
				if !engine.Issue(diag.Diagnostic{
					Kind:    "SyntaxError",
					Message: "endmodule with no matching module",
					Path:    path,
					Line:    tok.Line,
					Column:  tok.Column,
				}) {
					return tree
				}
				continue
			}
			depth--
			if depth == 0 && pending != "" {
				tree.Modules = append(tree.Modules, Module{Name: pending})
				pending = ""
			}
		}
	}
	if depth != 0 {
		engine.Issue(diag.Diagnostic{
			Kind:    "SyntaxError",
			Message: fmt.Sprintf("unterminated module declaration %q", pending),
			Path:    path,
			Line:    pendingLine,
			Column:  pendingColumn,
		})
	}
	return tree
}
