package parser

// ImportRef is one import declaration as written in source. Name never carries
// the trailing ".*" of a wildcard import.
type ImportRef struct {
	Name       string
	IsWildcard bool
	IsStatic   bool
}

// String renders the reference back into declaration form.
func (r ImportRef) String() string {
	name := r.Name
	if r.IsWildcard {
		name += ".*"
	}
	if r.IsStatic {
		return "static " + name
	}
	return name
}

// SourceFact holds the facts extracted from one file. Imports, DeclaredTypes
// and Supertypes keep source order.
type SourceFact struct {
	Namespace     string
	Imports       []ImportRef
	DeclaredTypes []string
	// Supertypes are the extends/implements names of top-level types with
	// type arguments removed, as written (simple or qualified).
	Supertypes []string
	// HeaderEnd is the byte offset of the package declaration, or -1.
	HeaderEnd int
}

// Declares reports whether typeName is one of the file's top-level types.
func (f SourceFact) Declares(typeName string) bool {
	for _, name := range f.DeclaredTypes {
		if name == typeName {
			return true
		}
	}
	return false
}

// QualifiedTypes returns the fully-qualified names of the declared types.
func (f SourceFact) QualifiedTypes() []string {
	out := make([]string, 0, len(f.DeclaredTypes))
	for _, name := range f.DeclaredTypes {
		out = append(out, Qualify(f.Namespace, name))
	}
	return out
}

// Qualify joins a namespace and a simple name.
func Qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

type Location struct {
	File   string
	Line   int
	Column int
}
