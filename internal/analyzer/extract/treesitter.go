package extract

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// treeSitterParser provides common tree-sitter parsing functionality.
type treeSitterParser struct {
	language *sitter.Language
	lang     string
}

// newTreeSitterParser creates a new tree-sitter parser for the given language.
func newTreeSitterParser(language *sitter.Language, lang string) *treeSitterParser {
	return &treeSitterParser{
		language: language,
		lang:     lang,
	}
}

// parse builds a syntax tree for source. The caller owns the returned tree and
// must Close it. A parser is created per call so extractors can run from
// several goroutines at once.
func (p *treeSitterParser) parse(source []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to load %s grammar: %w", p.lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s source", p.lang)
	}
	return tree, nil
}

// syntaxError describes the first error or missing node below root.
func syntaxError(root *sitter.Node, lang string) error {
	var bad *sitter.Node
	walkTree(root, func(n *sitter.Node) bool {
		if bad != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			bad = n
			return false
		}
		return true
	})

	if bad == nil {
		return fmt.Errorf("invalid %s syntax", lang)
	}
	pos := bad.StartPosition()
	return fmt.Errorf("invalid %s syntax at line %d, column %d", lang, pos.Row+1, pos.Column+1)
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walkTree walks a tree-sitter tree in pre-order and calls the visitor for
// each node. Returning false from the visitor skips that node's children.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		walkTree(child, visitor)
	}
}

// namedChildren returns the named children of node, skipping comments.
func namedChildren(node *sitter.Node) []*sitter.Node {
	var results []*sitter.Node
	if node == nil {
		return results
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(uint(i))
		if child == nil || child.Kind() == "comment" {
			continue
		}
		results = append(results, child)
	}
	return results
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child != nil && child.Kind() == nodeType {
			return child
		}
	}
	return nil
}
