package parser

import (
	"ctxpack/internal/core/errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewJavaParser()
	if err != nil {
		t.Fatalf("create java parser: %v", err)
	}
	return p
}

const headerSource = `/*
 * Copyright (c) Example Corp.
 */
package com.example;

import com.example.B;
import static com.example.util.Strings.join;
import com.example.model.*;
import static com.example.C.*;
import java.util.List;

public class A extends Base<String> implements Runnable, com.example.api.Handler {
    class Inner extends Hidden {}
    void run() {}
}

class Helper {}
`

func TestParser_ExtractJavaHeader(t *testing.T) {
	p := newTestParser(t)

	fact, err := p.Extract("A.java", []byte(headerSource))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if fact.Namespace != "com.example" {
		t.Fatalf("expected namespace com.example, got %q", fact.Namespace)
	}

	wantImports := []ImportRef{
		{Name: "com.example.B"},
		{Name: "com.example.util.Strings.join", IsStatic: true},
		{Name: "com.example.model", IsWildcard: true},
		{Name: "com.example.C", IsWildcard: true, IsStatic: true},
		{Name: "java.util.List"},
	}
	if !reflect.DeepEqual(fact.Imports, wantImports) {
		t.Fatalf("imports mismatch:\nwant %+v\ngot  %+v", wantImports, fact.Imports)
	}

	if want := []string{"A", "Helper"}; !reflect.DeepEqual(fact.DeclaredTypes, want) {
		t.Fatalf("expected declared types %v, got %v", want, fact.DeclaredTypes)
	}
	if want := []string{"Base", "Runnable", "com.example.api.Handler"}; !reflect.DeepEqual(fact.Supertypes, want) {
		t.Fatalf("expected supertypes %v, got %v", want, fact.Supertypes)
	}
	if want := strings.Index(headerSource, "package com.example;"); fact.HeaderEnd != want {
		t.Fatalf("expected header end %d, got %d", want, fact.HeaderEnd)
	}
}

func TestParser_ExtractTypeKinds(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name       string
		code       string
		wantTypes  []string
		wantSupers []string
	}{
		{
			name:       "interface",
			code:       "package p; public interface I extends J, q.K {}",
			wantTypes:  []string{"I"},
			wantSupers: []string{"J", "q.K"},
		},
		{
			name:       "enum",
			code:       "package p; public enum E implements Marker { ONE, TWO }",
			wantTypes:  []string{"E"},
			wantSupers: []string{"Marker"},
		},
		{
			name:       "record",
			code:       "package p; public record R(int x) implements Comparable<R> { }",
			wantTypes:  []string{"R"},
			wantSupers: []string{"Comparable"},
		},
		{
			name:      "annotation",
			code:      "package p; public @interface Audit { String value(); }",
			wantTypes: []string{"Audit"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fact, err := p.Extract("X.java", []byte(tc.code))
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if fact.Namespace != "p" {
				t.Fatalf("expected namespace p, got %q", fact.Namespace)
			}
			if !reflect.DeepEqual(fact.DeclaredTypes, tc.wantTypes) {
				t.Fatalf("expected types %v, got %v", tc.wantTypes, fact.DeclaredTypes)
			}
			if len(tc.wantSupers) == 0 && len(fact.Supertypes) == 0 {
				return
			}
			if !reflect.DeepEqual(fact.Supertypes, tc.wantSupers) {
				t.Fatalf("expected supertypes %v, got %v", tc.wantSupers, fact.Supertypes)
			}
		})
	}
}

func TestParser_DefaultPackage(t *testing.T) {
	p := newTestParser(t)

	fact, err := p.Extract("Main.java", []byte("class Main { }"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fact.Namespace != "" {
		t.Fatalf("expected default package, got %q", fact.Namespace)
	}
	if fact.HeaderEnd != -1 {
		t.Fatalf("expected no header offset, got %d", fact.HeaderEnd)
	}
	if !fact.Declares("Main") {
		t.Fatal("expected Main to be declared")
	}
}

func TestParser_SyntaxErrorIsParseError(t *testing.T) {
	p := newTestParser(t)

	_, err := p.Extract("Broken.java", []byte("package p; public class { void x( }"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !errors.IsCode(err, errors.CodeParseError) {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
}

func TestParser_UnsupportedPath(t *testing.T) {
	p := newTestParser(t)

	_, err := p.Extract("Main.kt", []byte("package p"))
	if !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED, got %v", err)
	}
	if p.IsSupportedPath("Main.kt") {
		t.Fatal("kotlin must not be a supported path")
	}
	if !p.IsSupportedPath("src/Main.JAVA") {
		t.Fatal("extension matching must be case-insensitive")
	}
	if got := p.SourceFileName("Main"); got != "Main.java" {
		t.Fatalf("expected Main.java, got %s", got)
	}
}

func TestImportRef_String(t *testing.T) {
	ref := ImportRef{Name: "a.b.C", IsStatic: true, IsWildcard: true}
	if got := ref.String(); got != "static a.b.C.*" {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestUnitCache_LoadMemoizesAndReportsParseErrors(t *testing.T) {
	p := newTestParser(t)
	cache, err := NewUnitCache(p, 8)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "Good.java")
	bad := filepath.Join(dir, "Bad.java")
	if err := os.WriteFile(good, []byte("package p; class Good {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("package p; class {"), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := cache.Load(good)
	if err != nil {
		t.Fatalf("load good: %v", err)
	}
	second, err := cache.Load(good)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("expected memoized unit on second load")
	}
	if first.ParseErr != nil || first.Fingerprint == "" {
		t.Fatalf("unexpected unit state: %+v", first)
	}

	broken, err := cache.Load(bad)
	if err != nil {
		t.Fatalf("parse failures must not be load errors: %v", err)
	}
	if !errors.IsCode(broken.ParseErr, errors.CodeParseError) {
		t.Fatalf("expected parse error on unit, got %v", broken.ParseErr)
	}

	_, err = cache.Load(filepath.Join(dir, "Missing.java"))
	if !errors.IsCode(err, errors.CodeFatalInput) {
		t.Fatalf("expected FATAL_INPUT for a missing file, got %v", err)
	}
}
