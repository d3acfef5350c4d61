package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// JavaExtractor reads the package declaration, imports and top-level type
// headers of a Java compilation unit. Type bodies are never visited.
type JavaExtractor struct {
	engine *ExtractorEngine
}

func NewJavaExtractor() *JavaExtractor {
	e := &JavaExtractor{}
	e.engine = NewExtractorEngine(map[string]NodeHandler{
		"package_declaration":         e.extractPackage,
		"import_declaration":          e.extractImport,
		"class_declaration":           e.extractType,
		"interface_declaration":       e.extractType,
		"enum_declaration":            e.extractType,
		"record_declaration":          e.extractType,
		"annotation_type_declaration": e.extractType,
		"module_declaration":          skipNode,
	})
	return e
}

func (e *JavaExtractor) Extract(root *sitter.Node, source []byte, filePath string) (SourceFact, error) {
	fact := SourceFact{HeaderEnd: -1}
	ctx := &ExtractionContext{Source: source, Path: filePath, Fact: &fact}
	e.engine.Walk(ctx, root)
	return fact, nil
}

func skipNode(*ExtractionContext, *sitter.Node) bool { return true }

func (e *JavaExtractor) extractPackage(ctx *ExtractionContext, node *sitter.Node) bool {
	if ctx.Fact.HeaderEnd >= 0 {
		return true
	}
	ctx.Fact.Namespace = ctx.CompactText(ChildOfKind(node, "scoped_identifier", "identifier"))
	ctx.Fact.HeaderEnd = int(node.StartByte())
	return true
}

func (e *JavaExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.CompactText(ChildOfKind(node, "scoped_identifier", "identifier"))
	if name == "" {
		return true
	}
	ctx.Fact.Imports = append(ctx.Fact.Imports, ImportRef{
		Name:       name,
		IsWildcard: ChildOfKind(node, "asterisk") != nil,
		IsStatic:   ChildOfKind(node, "static") != nil,
	})
	return true
}

func (e *JavaExtractor) extractType(ctx *ExtractionContext, node *sitter.Node) bool {
	name := strings.TrimSpace(ctx.Text(node.ChildByFieldName("name")))
	if name == "" {
		name = strings.TrimSpace(ctx.Text(ChildOfKind(node, "identifier")))
	}
	if name != "" {
		ctx.Fact.DeclaredTypes = append(ctx.Fact.DeclaredTypes, name)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "superclass", "super_interfaces", "extends_interfaces":
			ctx.Fact.Supertypes = append(ctx.Fact.Supertypes, typeNames(ctx, child)...)
		}
	}
	return true
}

// typeNames collects the raw names of the types listed under node.
func typeNames(ctx *ExtractionContext, node *sitter.Node) []string {
	var out []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "type_identifier", "scoped_type_identifier":
			if name := stripTypeArguments(ctx.CompactText(child)); name != "" {
				out = append(out, name)
			}
		case "generic_type":
			base := ChildOfKind(child, "scoped_type_identifier", "type_identifier")
			if name := stripTypeArguments(ctx.CompactText(base)); name != "" {
				out = append(out, name)
			}
		case "type_list":
			out = append(out, typeNames(ctx, child)...)
		}
	}
	return out
}

// stripTypeArguments drops every <...> section, so "Outer<T>.Inner" becomes
// "Outer.Inner".
func stripTypeArguments(name string) string {
	if !strings.Contains(name, "<") {
		return name
	}
	var b strings.Builder
	depth := 0
	for _, r := range name {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
