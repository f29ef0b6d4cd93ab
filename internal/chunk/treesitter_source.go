package chunk

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// treeSitterLanguages maps a lang.Descriptor.Name to its grammar, built
// once at package init the same way the teacher's parsers package builds
// one *sitter.Language per parser type.
var treeSitterLanguages = map[string]*sitter.Language{
	"typescript": sitter.NewLanguage(typescript.LanguageTypescript()),
	"javascript": sitter.NewLanguage(typescript.LanguageTypescript()),
	"python":     sitter.NewLanguage(python.Language()),
	"rust":       sitter.NewLanguage(rust.Language()),
	"c":          sitter.NewLanguage(c.Language()),
	"java":       sitter.NewLanguage(java.Language()),
	"php":        sitter.NewLanguage(php.LanguagePHP()),
	"ruby":       sitter.NewLanguage(ruby.Language()),
}

// treeSitterExtractor returns a sourceExtractor bound to one language's
// grammar, unwrapping wrapper nodes (TypeScript/JavaScript's
// export_statement) so the reported kind reflects the wrapped
// declaration while the emitted span still covers the wrapper.
func treeSitterExtractor(langName string) sourceExtractor {
	grammar := treeSitterLanguages[langName]
	return func(source []byte) (extraction, error) {
		parser := sitter.NewParser()
		defer parser.Close()
		if err := parser.SetLanguage(grammar); err != nil {
			return extraction{}, err
		}

		tree := parser.Parse(source, nil)
		if tree == nil {
			return extraction{}, errParseFailed
		}
		defer tree.Close()

		root := tree.RootNode()
		if root == nil {
			return extraction{}, errParseFailed
		}

		var nodes []node
		count := root.ChildCount()
		for i := uint(0); i < count; i++ {
			child := root.Child(i)
			if child == nil || !child.IsNamed() {
				continue
			}
			nodes = append(nodes, sitterNodeToChunkNode(child))
		}

		return extraction{nodes: nodes, source: source}, nil
	}
}

// sitterNodeToChunkNode converts one top-level sitter node into our
// generic node, unwrapping a single level of export_statement so that
// `export function foo() {}` reports kind "function_declaration" (mapped
// to chunk type "function" by the descriptor) while keeping the outer
// span, which includes the "export" keyword in the chunk's content.
func sitterNodeToChunkNode(n *sitter.Node) node {
	kind := n.Kind()
	reportKind := kind

	if kind == "export_statement" {
		inner := firstNamedChild(n)
		if inner != nil {
			reportKind = inner.Kind()
		}
	}

	start := n.StartPosition()
	end := n.EndPosition()

	return node{
		kind:      reportKind,
		startLine: int(start.Row) + 1,
		endLine:   int(end.Row) + 1,
		startByte: int(n.StartByte()),
		endByte:   int(n.EndByte()),
	}
}

func firstNamedChild(n *sitter.Node) *sitter.Node {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child != nil && child.IsNamed() {
			return child
		}
	}
	return nil
}

// treeSitterChildren re-parses a byte slice that is itself the body of
// one node (used when recursively splitting an oversized chunk on its own
// children). It reuses the same grammar and returns the named children of
// the re-parsed root, converted by sitterNodeToChunkNode; the caller uses
// only their spans, not their kinds.
func treeSitterChildren(langName string, source []byte) []node {
	grammar, ok := treeSitterLanguages[langName]
	if !ok {
		return nil
	}
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(grammar); err != nil {
		return nil
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil
	}
	defer tree.Close()
	root := tree.RootNode()
	if root == nil {
		return nil
	}

	var nodes []node
	count := root.ChildCount()
	for i := uint(0); i < count; i++ {
		child := root.Child(i)
		if child == nil || !child.IsNamed() {
			continue
		}
		nodes = append(nodes, sitterNodeToChunkNode(child))
	}
	return nodes
}
