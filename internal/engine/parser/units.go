package parser

import (
	"ctxpack/internal/core/errors"
	"ctxpack/internal/shared/util"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultUnitCacheSize = 4096

// Unit is one file read and parsed during a run.
type Unit struct {
	Path        string
	Content     []byte
	Fingerprint string
	Fact        SourceFact
	// ParseErr is set when the file is readable but failed extraction.
	ParseErr error
}

// UnitCache memoizes Units for the lifetime of one run so the index, the
// traversal and the assembler read and parse each file once. Facts are never
// carried across runs: build a fresh cache per run.
type UnitCache struct {
	parser *Parser
	cache  *lru.Cache[string, *Unit]
}

func NewUnitCache(p *Parser, size int) (*UnitCache, error) {
	if size <= 0 {
		size = DefaultUnitCacheSize
	}
	cache, err := lru.New[string, *Unit](size)
	if err != nil {
		return nil, err
	}
	return &UnitCache{parser: p, cache: cache}, nil
}

// Load returns the Unit for path. Only I/O failures are returned as errors;
// extraction failures are reported through Unit.ParseErr.
func (c *UnitCache) Load(path string) (*Unit, error) {
	if unit, ok := c.cache.Get(path); ok {
		return unit, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeFatalInput, "read source file"), errors.CtxPath, path)
	}
	fact, parseErr := c.parser.Extract(path, content)
	unit := &Unit{
		Path:        path,
		Content:     content,
		Fingerprint: util.Fingerprint(content),
		Fact:        fact,
		ParseErr:    parseErr,
	}
	c.cache.Add(path, unit)
	return unit, nil
}

// Parser exposes the underlying parser for path support checks.
func (c *UnitCache) Parser() *Parser {
	return c.parser
}

func (c *UnitCache) Len() int {
	return c.cache.Len()
}
