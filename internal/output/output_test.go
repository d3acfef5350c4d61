package output

import (
	"ctxpack/internal/engine/parser"
	"ctxpack/internal/engine/traversal"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestStripHeader(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		headerEnd int
		want      string
	}{
		{
			name:      "package offset",
			content:   "/* license */\npackage a;\nclass A {}\n",
			headerEnd: len("/* license */\n"),
			want:      "package a;\nclass A {}\n",
		},
		{
			name:      "no package strips leading comments",
			content:   "// one\n\n/* two\n three */\n  import a.B;\nclass A {}\n",
			headerEnd: -1,
			want:      "import a.B;\nclass A {}\n",
		},
		{
			name:      "unterminated block comment keeps content",
			content:   "/* open\nclass A {}\n",
			headerEnd: -1,
			want:      "/* open\nclass A {}\n",
		},
		{
			name:      "only comments",
			content:   "// nothing here",
			headerEnd: -1,
			want:      "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHeader([]byte(tt.content), tt.headerEnd); got != tt.want {
				t.Errorf("StripHeader() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssemble(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "com", "example")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	a := filepath.Join(dir, "A.java")
	if err := os.WriteFile(a, []byte("// Copyright\npackage com.example;\n\nclass A {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := parser.NewJavaParser()
	if err != nil {
		t.Fatal(err)
	}
	units, err := parser.NewUnitCache(p, 0)
	if err != nil {
		t.Fatal(err)
	}

	docs := NewAssembler(root, units, nil).Assemble([]traversal.ResolvedFile{
		{Path: a},
		{Path: filepath.Join(dir, "Gone.java"), Depth: 1},
	})
	if len(docs) != 1 {
		t.Fatalf("expected the unreadable file to be skipped, got %d documents", len(docs))
	}
	if docs[0].Path != "com/example/A.java" {
		t.Errorf("unexpected path %q", docs[0].Path)
	}
	if docs[0].Content != "package com.example;\n\nclass A {}\n" {
		t.Errorf("unexpected content %q", docs[0].Content)
	}
}

var sampleDocs = []Document{
	{Path: "com/example/Z.java", Content: "package com.example;\nclass Z {}"},
	{Path: "com/example/A.java", Content: "package com.example;\nclass A { String s = \"<x>\"; }"},
}

func TestTextFormat(t *testing.T) {
	f, err := FormatterFor("txt")
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.Format(sampleDocs[:1])
	if err != nil {
		t.Fatal(err)
	}
	rule := strings.Repeat("=", 80)
	want := "// File: com/example/Z.java\n" + rule + "\npackage com.example;\nclass Z {}\n" + rule + "\n\n"
	if string(out) != want {
		t.Errorf("txt output mismatch:\n%s", out)
	}
}

func TestMarkdownFormat(t *testing.T) {
	f, err := FormatterFor("MD")
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.Format(sampleDocs[:1])
	if err != nil {
		t.Fatal(err)
	}
	want := "## com/example/Z.java\n\n```java\npackage com.example;\nclass Z {}\n```\n\n---\n\n"
	if string(out) != want {
		t.Errorf("md output mismatch:\n%s", out)
	}
}

func TestJSONFormatKeepsOrder(t *testing.T) {
	f, err := FormatterFor("json")
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.Format(sampleDocs)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if decoded["com/example/A.java"] != sampleDocs[1].Content {
		t.Errorf("content not preserved: %q", decoded["com/example/A.java"])
	}
	if strings.Index(string(out), "Z.java") > strings.Index(string(out), "A.java") {
		t.Error("json keys must follow traversal order")
	}
	if !strings.HasPrefix(string(out), "{\n  \"com/example/Z.java\": ") {
		t.Errorf("unexpected json layout:\n%s", out)
	}
	if !strings.Contains(string(out), "<x>") {
		t.Error("html characters must not be escaped")
	}

	empty, err := f.Format(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(empty) != "{}\n" {
		t.Errorf("empty json = %q", empty)
	}
}

func TestYAMLFormatKeepsOrder(t *testing.T) {
	f, err := FormatterFor("yaml")
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.Format(sampleDocs)
	if err != nil {
		t.Fatal(err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(out, &node); err != nil {
		t.Fatalf("invalid yaml: %v\n%s", err, out)
	}
	mapping := node.Content[0]
	if len(mapping.Content) != 4 {
		t.Fatalf("expected two entries, got %d nodes", len(mapping.Content))
	}
	if mapping.Content[0].Value != "com/example/Z.java" || mapping.Content[2].Value != "com/example/A.java" {
		t.Errorf("yaml keys out of order: %s, %s", mapping.Content[0].Value, mapping.Content[2].Value)
	}
	if mapping.Content[3].Value != sampleDocs[1].Content {
		t.Errorf("content not preserved: %q", mapping.Content[3].Value)
	}
	if !strings.Contains(string(out), "|") {
		t.Error("expected literal block scalars")
	}
}

func TestFormatterForUnknown(t *testing.T) {
	if _, err := FormatterFor("html"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func sampleGraph() Graph {
	root := string(filepath.Separator) + "repo"
	res := traversal.Result{
		Files: []traversal.ResolvedFile{
			{Path: filepath.Join(root, "com", "example", "A.java")},
			{Path: filepath.Join(root, "com", "example", "B.java"), Depth: 1},
		},
		Edges: []traversal.Edge{
			{From: filepath.Join(root, "com", "example", "A.java"), To: filepath.Join(root, "com", "example", "B.java")},
			{From: filepath.Join(root, "com", "example", "B.java"), To: filepath.Join(root, "com", "example", "A.java")},
			{From: filepath.Join(root, "com", "example", "A.java"), To: filepath.Join(root, "com", "example", "B.java")},
		},
	}
	return NewGraph(root, res)
}

func TestNewGraph(t *testing.T) {
	g := sampleGraph()
	if g.Target != "com/example/A.java" {
		t.Errorf("unexpected target %q", g.Target)
	}
	if len(g.Edges) != 2 {
		t.Errorf("expected duplicate edges to collapse, got %d", len(g.Edges))
	}
	if g.Depths["com/example/B.java"] != 1 {
		t.Errorf("unexpected depth %d", g.Depths["com/example/B.java"])
	}
}

func TestRenderDOT(t *testing.T) {
	dot, err := RenderGraph("dot", sampleGraph())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dot, "digraph dependencies") {
		t.Error("DOT output missing digraph header")
	}
	if !strings.Contains(dot, `"com/example/A.java" -> "com/example/B.java" [color="forestgreen"]`) {
		t.Errorf("DOT output missing forward edge:\n%s", dot)
	}
	if !strings.Contains(dot, `"com/example/B.java" -> "com/example/A.java" [color="grey", style=dashed]`) {
		t.Errorf("DOT output missing back edge:\n%s", dot)
	}
	if !strings.Contains(dot, "lightblue") {
		t.Error("DOT output must highlight the target")
	}
}

func TestRenderMermaid(t *testing.T) {
	out, err := RenderGraph("mermaid", sampleGraph())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"flowchart LR",
		`com_example_A_java["A"]`,
		"com_example_A_java --> com_example_B_java",
		"class com_example_A_java targetNode",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("mermaid output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderPlantUMLAndTSV(t *testing.T) {
	puml, err := RenderGraph("plantuml", sampleGraph())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(puml, "@startuml") || !strings.Contains(puml, "com_example_A_java --> com_example_B_java") {
		t.Errorf("unexpected plantuml output:\n%s", puml)
	}
	if !strings.Contains(puml, "<<target>>") {
		t.Error("plantuml output must mark the target")
	}

	tsv, err := RenderGraph("tsv", sampleGraph())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(tsv), "\n")
	if len(lines) != 3 || lines[1] != "com/example/A.java\tcom/example/B.java\t0\t1" {
		t.Errorf("unexpected tsv output:\n%s", tsv)
	}
}

func TestRenderGraphUnknown(t *testing.T) {
	if _, err := RenderGraph("png", sampleGraph()); err == nil {
		t.Fatal("expected error for unknown graph format")
	}
}

func TestMermaidIDsAreUnique(t *testing.T) {
	ids := makeMermaidIDs([]string{"a/b.java", "a_b.java", "1x"})
	if ids["a/b.java"] == ids["a_b.java"] {
		t.Fatal("colliding names must get distinct ids")
	}
	if ids["1x"] != "n_1x" {
		t.Fatalf("ids must not start with a digit, got %q", ids["1x"])
	}
}
