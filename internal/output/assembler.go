package output

import (
	"bytes"
	"ctxpack/internal/engine/parser"
	"ctxpack/internal/engine/traversal"
	"ctxpack/internal/shared/util"
	"log/slog"
)

// Document is one cleaned source file ready for a Formatter. Path is relative
// to the project root with forward slashes.
type Document struct {
	Path    string
	Content string
}

// Assembler turns a traversal result into Documents.
type Assembler struct {
	root   string
	units  *parser.UnitCache
	logger *slog.Logger
}

func NewAssembler(root string, units *parser.UnitCache, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{root: root, units: units, logger: logger}
}

// Assemble returns one Document per readable file, in traversal order.
// Unreadable files are logged and skipped.
func (a *Assembler) Assemble(files []traversal.ResolvedFile) []Document {
	docs := make([]Document, 0, len(files))
	for _, file := range files {
		unit, err := a.units.Load(file.Path)
		if err != nil {
			a.logger.Warn("skipping unreadable file", "path", file.Path, "error", err)
			continue
		}
		headerEnd := unit.Fact.HeaderEnd
		if unit.ParseErr != nil {
			headerEnd = -1
		}
		docs = append(docs, Document{
			Path:    util.RelSlash(a.root, file.Path),
			Content: StripHeader(unit.Content, headerEnd),
		})
	}
	return docs
}

// StripHeader drops everything before the package declaration at headerEnd.
// Without one (headerEnd < 0) the leading block of comments and blank lines
// is dropped instead.
func StripHeader(content []byte, headerEnd int) string {
	if headerEnd >= 0 && headerEnd <= len(content) {
		return string(content[headerEnd:])
	}
	return string(skipLeadingComments(content))
}

func skipLeadingComments(content []byte) []byte {
	rest := content
	for {
		trimmed := bytes.TrimLeft(rest, " \t\r\n\ufeff")
		switch {
		case bytes.HasPrefix(trimmed, []byte("//")):
			nl := bytes.IndexByte(trimmed, '\n')
			if nl < 0 {
				return nil
			}
			rest = trimmed[nl+1:]
		case bytes.HasPrefix(trimmed, []byte("/*")):
			end := bytes.Index(trimmed[2:], []byte("*/"))
			if end < 0 {
				return content
			}
			rest = trimmed[2+end+2:]
		default:
			return trimmed
		}
	}
}
