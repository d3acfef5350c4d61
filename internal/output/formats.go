package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Formatter serializes Documents into one output file.
type Formatter interface {
	Name() string
	Format(docs []Document) ([]byte, error)
}

var formatters = map[string]Formatter{
	"txt":  textFormatter{},
	"md":   markdownFormatter{},
	"json": jsonFormatter{},
	"yaml": yamlFormatter{},
}

// FormatterFor returns the formatter registered under name.
func FormatterFor(name string) (Formatter, error) {
	f, ok := formatters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (supported: %s)", name, strings.Join(FormatNames(), ", "))
	}
	return f, nil
}

func FormatNames() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var rule = strings.Repeat("=", 80)

type textFormatter struct{}

func (textFormatter) Name() string { return "txt" }

func (textFormatter) Format(docs []Document) ([]byte, error) {
	var b strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&b, "// File: %s\n", doc.Path)
		b.WriteString(rule + "\n")
		b.WriteString(doc.Content)
		b.WriteString("\n" + rule + "\n\n")
	}
	return []byte(b.String()), nil
}

type markdownFormatter struct{}

func (markdownFormatter) Name() string { return "md" }

func (markdownFormatter) Format(docs []Document) ([]byte, error) {
	var b strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&b, "## %s\n\n", doc.Path)
		b.WriteString("```java\n")
		b.WriteString(doc.Content)
		b.WriteString("\n```\n\n")
		b.WriteString("---\n\n")
	}
	return []byte(b.String()), nil
}

// jsonFormatter writes one object keyed by path. encoding/json sorts map keys,
// so the object is assembled by hand to keep traversal order.
type jsonFormatter struct{}

func (jsonFormatter) Name() string { return "json" }

func (jsonFormatter) Format(docs []Document) ([]byte, error) {
	if len(docs) == 0 {
		return []byte("{}\n"), nil
	}
	var b bytes.Buffer
	b.WriteString("{\n")
	for i, doc := range docs {
		key, err := marshalString(doc.Path)
		if err != nil {
			return nil, err
		}
		value, err := marshalString(doc.Content)
		if err != nil {
			return nil, err
		}
		b.WriteString("  ")
		b.Write(key)
		b.WriteString(": ")
		b.Write(value)
		if i < len(docs)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
	return b.Bytes(), nil
}

func marshalString(s string) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}

// yamlFormatter writes a mapping keyed by path with literal block scalars.
type yamlFormatter struct{}

func (yamlFormatter) Name() string { return "yaml" }

func (yamlFormatter) Format(docs []Document) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, doc := range docs {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: doc.Path},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: doc.Content, Style: yaml.LiteralStyle},
		)
	}
	root := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping}}

	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}
	return b.Bytes(), nil
}
