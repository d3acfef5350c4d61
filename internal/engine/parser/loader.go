package parser

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// LanguageSpec describes a source language the loader can parse.
type LanguageSpec struct {
	Name       string
	Extensions []string
}

var builtinLanguages = map[string]LanguageSpec{
	"java": {Name: "java", Extensions: []string{".java"}},
}

type GrammarLoader struct {
	languages map[string]*sitter.Language
	registry  map[string]LanguageSpec
}

// NewGrammarLoader loads the grammars for the requested language IDs. An empty
// list loads every built-in language.
func NewGrammarLoader(languageIDs ...string) (*GrammarLoader, error) {
	if len(languageIDs) == 0 {
		for id := range builtinLanguages {
			languageIDs = append(languageIDs, id)
		}
		sort.Strings(languageIDs)
	}

	gl := &GrammarLoader{
		languages: make(map[string]*sitter.Language),
		registry:  make(map[string]LanguageSpec),
	}
	for _, raw := range languageIDs {
		langID := strings.ToLower(strings.TrimSpace(raw))
		spec, ok := builtinLanguages[langID]
		if !ok {
			return nil, fmt.Errorf("language %q is not supported", raw)
		}
		switch langID {
		case "java":
			gl.languages["java"] = sitter.NewLanguage(tree_sitter_java.Language())
		default:
			return nil, fmt.Errorf("language %q is enabled but runtime grammar loading is not implemented", langID)
		}
		gl.registry[langID] = spec
	}
	return gl, nil
}

// Language returns the loaded grammar for langID, or nil.
func (gl *GrammarLoader) Language(langID string) *sitter.Language {
	return gl.languages[langID]
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	set := make(map[string]bool)
	for _, spec := range gl.registry {
		for _, ext := range spec.Extensions {
			set[strings.ToLower(ext)] = true
		}
	}
	extensions := make([]string, 0, len(set))
	for ext := range set {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}

// LanguageForExtension maps a lowercase extension such as ".java" to its ID.
func (gl *GrammarLoader) LanguageForExtension(ext string) string {
	ext = strings.ToLower(ext)
	for id, spec := range gl.registry {
		for _, candidate := range spec.Extensions {
			if candidate == ext {
				return id
			}
		}
	}
	return ""
}
