package chunk

import (
	"go/ast"
	"go/parser"
	"go/token"
)

// extractGoNodes mirrors the teacher's go/ast-based parsing path: Go gets
// native stdlib parsing instead of tree-sitter, because go/parser is
// already an exact, dependency-free AST for the one language this module
// ships without a grammar.
func extractGoNodes(source []byte) (extraction, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", source, parser.ParseComments)
	if err != nil {
		return extraction{}, err
	}

	var nodes []node
	for _, decl := range file.Decls {
		startPos := fset.Position(decl.Pos())
		endPos := fset.Position(decl.End())

		n := node{
			startLine: startPos.Line,
			endLine:   endPos.Line,
			startByte: startPos.Offset,
			endByte:   endPos.Offset,
		}

		switch d := decl.(type) {
		case *ast.FuncDecl:
			n.kind = "function"
		case *ast.GenDecl:
			switch d.Tok {
			case token.IMPORT:
				n.kind = "import"
			case token.TYPE:
				n.kind = "type"
			case token.CONST:
				n.kind = "const"
			case token.VAR:
				n.kind = "var"
			default:
				continue
			}
		default:
			continue
		}

		nodes = append(nodes, n)
	}

	return extraction{nodes: nodes, source: source}, nil
}
