package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for a language-specific extractor.
// Returns true when the walker must not descend into the node's children.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries shared state/helpers used by all extractors.
type ExtractionContext struct {
	Source []byte
	Path   string
	Fact   *SourceFact
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}

	if handler, ok := e.handlers[node.Kind()]; ok {
		if handler(ctx, node) {
			return
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

// Text returns the source spanned by node.
func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start >= end || end > uint(len(c.Source)) {
		return ""
	}
	return string(c.Source[start:end])
}

// CompactText returns the node text with all whitespace removed, which turns
// "com . example . A" into "com.example.A".
func (c *ExtractionContext) CompactText(node *sitter.Node) string {
	return strings.Join(strings.Fields(c.Text(node)), "")
}

func (c *ExtractionContext) Location(node *sitter.Node) Location {
	return Location{
		File:   c.Path,
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

// ChildOfKind returns the first direct child whose kind is one of kinds.
func ChildOfKind(node *sitter.Node, kinds ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		for _, kind := range kinds {
			if child.Kind() == kind {
				return child
			}
		}
	}
	return nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(node *sitter.Node) *sitter.Node {
	if node == nil || !node.HasError() {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := firstError(node.Child(i)); found != nil {
			return found
		}
	}
	return node
}
