package parser

import (
	"ctxpack/internal/core/errors"
	"ctxpack/internal/shared/observability"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type Extractor interface {
	Extract(root *sitter.Node, source []byte, filePath string) (SourceFact, error)
}

// Parser turns file text into a SourceFact without compiling it. It is safe
// for concurrent use.
type Parser struct {
	loader     *GrammarLoader
	pools      map[string]*ParserPool
	extractors map[string]Extractor
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		pools:      make(map[string]*ParserPool),
		extractors: make(map[string]Extractor),
	}
	if lang := loader.Language("java"); lang != nil {
		p.pools["java"] = NewParserPool(lang)
		p.extractors["java"] = NewJavaExtractor()
	}
	return p
}

// NewJavaParser is the common construction path: a loader with the Java
// grammar and its extractor.
func NewJavaParser() (*Parser, error) {
	loader, err := NewGrammarLoader("java")
	if err != nil {
		return nil, err
	}
	return NewParser(loader), nil
}

// Extract parses content and returns its facts. A syntax tree containing
// errors yields a CodeParseError error together with a best-effort fact that
// callers must not use for dependency edges.
func (p *Parser) Extract(path string, content []byte) (SourceFact, error) {
	lang := p.GetLanguage(path)
	if lang == "" {
		return SourceFact{HeaderEnd: -1}, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}
	pool := p.pools[lang]
	extractor := p.extractors[lang]
	if pool == nil || extractor == nil {
		return SourceFact{HeaderEnd: -1}, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	started := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(started).Seconds())
	}()

	tree := pool.Parse(content)
	if tree == nil {
		observability.ParseFailuresTotal.Inc()
		return SourceFact{HeaderEnd: -1}, errors.AddContext(errors.New(errors.CodeParseError, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	fact, err := extractor.Extract(root, content, path)
	if err != nil {
		return fact, errors.Wrap(err, errors.CodeInternal, "extraction failed")
	}
	if bad := firstError(root); bad != nil {
		observability.ParseFailuresTotal.Inc()
		loc := (&ExtractionContext{Source: content, Path: path}).Location(bad)
		msg := fmt.Sprintf("syntax error at %d:%d", loc.Line, loc.Column)
		return fact, errors.AddContext(errors.New(errors.CodeParseError, msg), errors.CtxPath, loc.File)
	}
	return fact, nil
}

func (p *Parser) GetLanguage(path string) string {
	return p.loader.LanguageForExtension(filepath.Ext(path))
}

func (p *Parser) IsSupportedPath(path string) bool {
	return p.GetLanguage(path) != ""
}

func (p *Parser) SupportedExtensions() []string {
	return p.loader.SupportedExtensions()
}

// SourceFileName returns the conventional file name of a type, "A" -> "A.java".
func (p *Parser) SourceFileName(typeName string) string {
	exts := p.SupportedExtensions()
	if len(exts) == 0 {
		return typeName
	}
	return strings.TrimSpace(typeName) + exts[0]
}
