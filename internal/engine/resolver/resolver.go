package resolver

import (
	"ctxpack/internal/core/errors"
	"ctxpack/internal/engine/parser"
	"log/slog"
	"strings"
)

// Locator maps type names to files. The location index implements it.
type Locator interface {
	Resolve(fqName string) (string, error)
	TypesInNamespace(namespace string) ([]string, error)
}

// Expansion is the outcome of expanding one import.
type Expansion struct {
	// Paths are the files the import refers to, deduplicated, in discovery order.
	Paths []string
	// Filtered is set when the import lies outside the namespace prefix.
	Filtered bool
	// Unresolved holds the name that matched the prefix but mapped to no file.
	Unresolved string
}

type Resolver struct {
	locator Locator
	logger  *slog.Logger
}

func NewResolver(locator Locator, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{locator: locator, logger: logger}
}

// Expand maps an import to the in-tree files it names. prefix must already be
// normalized with NormalizePrefix. Only errors other than a resolution miss
// are returned.
func (r *Resolver) Expand(ref parser.ImportRef, prefix string) (Expansion, error) {
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return Expansion{}, nil
	}

	switch {
	case ref.IsStatic:
		owner := name
		if !ref.IsWildcard {
			owner = parentName(name)
		}
		if owner == "" {
			return Expansion{}, nil
		}
		return r.expandType(owner, ref.String(), prefix)
	case ref.IsWildcard:
		return r.expandNamespace(name, ref.String(), prefix)
	default:
		return r.expandType(name, ref.String(), prefix)
	}
}

// ExpandSupertype maps an extends/implements name of fact's types to files.
// Simple names not covered by an explicit single-type import are qualified
// with the file's own namespace. Misses are not reported as unresolved.
func (r *Resolver) ExpandSupertype(name string, fact parser.SourceFact, prefix string) (Expansion, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Expansion{}, nil
	}
	if !strings.Contains(name, ".") {
		if importedExplicitly(name, fact.Imports) {
			return Expansion{}, nil
		}
		name = parser.Qualify(fact.Namespace, name)
	}

	exp, err := r.expandType(name, name, prefix)
	exp.Unresolved = ""
	return exp, err
}

func (r *Resolver) expandType(name, display, prefix string) (Expansion, error) {
	if !MatchesPrefix(name, prefix) {
		return Expansion{Filtered: true}, nil
	}

	path, err := r.resolveWithFallback(name, prefix)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			r.logger.Debug("import not resolved", "import", display)
			return Expansion{Unresolved: display}, nil
		}
		return Expansion{}, err
	}
	return Expansion{Paths: []string{path}}, nil
}

func (r *Resolver) expandNamespace(namespace, display, prefix string) (Expansion, error) {
	if !MatchesPrefix(namespace, prefix) {
		return Expansion{Filtered: true}, nil
	}

	types, err := r.locator.TypesInNamespace(namespace)
	if err != nil {
		return Expansion{}, err
	}
	if len(types) == 0 {
		// import a.b.Outer.* brings in the nested types of Outer.
		return r.expandType(namespace, display, prefix)
	}

	exp := Expansion{}
	seen := make(map[string]struct{}, len(types))
	for _, fq := range types {
		path, err := r.locator.Resolve(fq)
		if err != nil {
			if errors.IsCode(err, errors.CodeNotFound) {
				r.logger.Debug("namespace member not resolved", "import", display, "type", fq)
				continue
			}
			return Expansion{}, err
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		exp.Paths = append(exp.Paths, path)
	}
	if len(exp.Paths) == 0 {
		exp.Unresolved = display
	}
	return exp, nil
}

// resolveWithFallback resolves name and, on a miss, its enclosing names so a
// nested type import lands on the file of its outermost declared type.
func (r *Resolver) resolveWithFallback(name, prefix string) (string, error) {
	path, err := r.locator.Resolve(name)
	if err == nil || !errors.IsCode(err, errors.CodeNotFound) {
		return path, err
	}

	firstErr := err
	for candidate := parentName(name); segments(candidate) >= 2 && MatchesPrefix(candidate, prefix); candidate = parentName(candidate) {
		path, err = r.locator.Resolve(candidate)
		if err == nil {
			r.logger.Debug("resolved through enclosing type", "import", name, "type", candidate)
			return path, nil
		}
		if !errors.IsCode(err, errors.CodeNotFound) {
			return "", err
		}
	}
	return "", firstErr
}

func importedExplicitly(simple string, imports []parser.ImportRef) bool {
	for _, ref := range imports {
		if ref.IsWildcard || ref.IsStatic {
			continue
		}
		if lastSegment(ref.Name) == simple {
			return true
		}
	}
	return false
}
