package traversal

import (
	"context"
	"ctxpack/internal/core/errors"
	"ctxpack/internal/engine/index"
	"ctxpack/internal/engine/parser"
	"ctxpack/internal/engine/resolver"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root   string
	engine *Engine
}

func newFixture(t *testing.T, files map[string]string, opts Options) *fixture {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := parser.NewJavaParser()
	require.NoError(t, err)
	units, err := parser.NewUnitCache(p, 0)
	require.NoError(t, err)
	idx, err := index.Open(units, index.Options{Root: root, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	opts.Logger = logger
	return &fixture{root: root, engine: NewEngine(units, resolver.NewResolver(idx, logger), opts)}
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func (f *fixture) paths(rels ...string) []string {
	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		out = append(out, f.path(rel))
	}
	return out
}

var exampleTree = map[string]string{
	"com/example/A.java": "package com.example;\n\nimport com.example.B;\nimport com.other.X;\n\npublic class A {}\n",
	"com/example/B.java": "package com.example;\n\npublic class B {}\n",
	"com/other/X.java":   "package com.other;\n\npublic class X {}\n",
}

func TestRunFiltersOutsidePrefix(t *testing.T) {
	f := newFixture(t, exampleTree, Options{Prefix: "com.example"})

	res, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 1)
	require.NoError(t, err)
	assert.Equal(t, f.paths("com/example/A.java", "com/example/B.java"), res.Paths())
	assert.Equal(t, 1, res.Filtered)
	assert.Empty(t, res.Unresolved)
	assert.Equal(t, []Edge{{From: f.path("com/example/A.java"), To: f.path("com/example/B.java")}}, res.Edges)
}

func TestRunPartialSegmentPrefix(t *testing.T) {
	f := newFixture(t, exampleTree, Options{Prefix: "com.ex"})

	res, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 1)
	require.NoError(t, err)
	assert.Equal(t, f.paths("com/example/A.java", "com/example/B.java"), res.Paths())
	assert.Equal(t, 1, res.Filtered)
}

func TestRunDepthZeroReturnsTargetOnly(t *testing.T) {
	f := newFixture(t, exampleTree, Options{Prefix: "com.example"})

	res, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 0)
	require.NoError(t, err)
	assert.Equal(t, f.paths("com/example/A.java"), res.Paths())
	assert.Empty(t, res.Edges)
}

func TestRunWildcardFollowsDiscoveryOrder(t *testing.T) {
	f := newFixture(t, map[string]string{
		"com/example/A.java": "package com.example;\nimport com.example.*;\nclass A {}\n",
		"com/example/D.java": "package com.example;\nclass D {}\n",
		"com/example/B.java": "package com.example;\nclass B {}\n",
		"com/example/C.java": "package com.example;\nclass C {}\n",
	}, Options{Prefix: "com.example"})

	res, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 1)
	require.NoError(t, err)
	assert.Equal(t, f.paths("com/example/A.java", "com/example/B.java", "com/example/C.java", "com/example/D.java"), res.Paths())
}

func TestRunCycleEmitsEachFileOnce(t *testing.T) {
	f := newFixture(t, map[string]string{
		"com/example/A.java": "package com.example;\nimport com.example.B;\nclass A {}\n",
		"com/example/B.java": "package com.example;\nimport com.example.A;\nclass B {}\n",
	}, Options{Prefix: "com.example"})

	res, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 10)
	require.NoError(t, err)
	assert.Equal(t, f.paths("com/example/A.java", "com/example/B.java"), res.Paths())
	assert.Len(t, res.Edges, 2)
}

func TestRunDepthIsMonotonic(t *testing.T) {
	tree := map[string]string{
		"com/example/A.java": "package com.example;\nimport com.example.B;\nimport com.example.C;\nclass A {}\n",
		"com/example/B.java": "package com.example;\nimport com.example.D;\nclass B {}\n",
		"com/example/C.java": "package com.example;\nclass C {}\n",
		"com/example/D.java": "package com.example;\nimport com.example.E;\nclass D {}\n",
		"com/example/E.java": "package com.example;\nclass E {}\n",
	}
	f := newFixture(t, tree, Options{Prefix: "com.example", Workers: 4})
	target := f.path("com/example/A.java")

	previous := []string{}
	for depth := 0; depth <= 4; depth++ {
		res, err := f.engine.Run(context.Background(), target, depth)
		require.NoError(t, err)
		got := res.Paths()
		require.GreaterOrEqual(t, len(got), len(previous))
		assert.Equal(t, previous, got[:len(previous)], "depth %d must extend depth %d", depth, depth-1)
		previous = got
	}
	assert.Equal(t, f.paths("com/example/A.java", "com/example/B.java", "com/example/C.java", "com/example/D.java", "com/example/E.java"), previous)

	res, err := f.engine.Run(context.Background(), target, 2)
	require.NoError(t, err)
	depths := map[string]int{}
	for _, file := range res.Files {
		depths[filepath.Base(file.Path)] = file.Depth
	}
	assert.Equal(t, map[string]int{"A.java": 0, "B.java": 1, "C.java": 1, "D.java": 2}, depths)
}

func TestRunKeepsUnparseableDependency(t *testing.T) {
	f := newFixture(t, map[string]string{
		"com/example/A.java": "package com.example;\nimport com.example.B;\nclass A {}\n",
		"com/example/B.java": "package com.example;\nimport com.example.C;\nclass B {}\n}\n",
		"com/example/C.java": "package com.example;\nclass C {}\n",
	}, Options{Prefix: "com.example"})

	res, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 3)
	require.NoError(t, err)
	assert.Equal(t, f.paths("com/example/A.java", "com/example/B.java"), res.Paths())
	require.Error(t, res.Files[1].ParseErr)
	assert.True(t, errors.IsCode(res.Files[1].ParseErr, errors.CodeParseError))
}

func TestRunUnparseableTargetIsFatal(t *testing.T) {
	f := newFixture(t, map[string]string{
		"com/example/A.java": "package com.example;\nclass A { void broken( {}\n",
	}, Options{Prefix: "com.example"})

	_, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFatalInput))
}

func TestRunMissingTargetIsFatal(t *testing.T) {
	f := newFixture(t, exampleTree, Options{})

	_, err := f.engine.Run(context.Background(), f.path("com/example/Missing.java"), 1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFatalInput))
}

func TestRunCollectsUnresolvedImports(t *testing.T) {
	f := newFixture(t, map[string]string{
		"com/example/A.java": "package com.example;\nimport com.example.Zeta;\nimport com.example.Alpha;\nimport com.example.Zeta;\nclass A {}\n",
	}, Options{Prefix: "com.example"})

	res, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.Alpha", "com.example.Zeta"}, res.Unresolved)
}

func TestRunFollowsSamePackageSupertypes(t *testing.T) {
	tree := map[string]string{
		"com/example/A.java":     "package com.example;\nclass A extends Base implements Named<String> {}\n",
		"com/example/Base.java":  "package com.example;\nclass Base {}\n",
		"com/example/Named.java": "package com.example;\ninterface Named<T> {}\n",
	}

	f := newFixture(t, tree, Options{Prefix: "com.example", FollowSupertypes: true})
	res, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 1)
	require.NoError(t, err)
	assert.Equal(t, f.paths("com/example/A.java", "com/example/Base.java", "com/example/Named.java"), res.Paths())

	f = newFixture(t, tree, Options{Prefix: "com.example"})
	res, err = f.engine.Run(context.Background(), f.path("com/example/A.java"), 1)
	require.NoError(t, err)
	assert.Equal(t, f.paths("com/example/A.java"), res.Paths())
}

func TestRunHonorsCancellation(t *testing.T) {
	f := newFixture(t, exampleTree, Options{Prefix: "com.example"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.Run(ctx, f.path("com/example/A.java"), 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t, exampleTree, Options{Prefix: "com.example"})
	first, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 2)
	require.NoError(t, err)
	second, err := f.engine.Run(context.Background(), f.path("com/example/A.java"), 2)
	require.NoError(t, err)
	assert.Equal(t, first.Paths(), second.Paths())
	assert.Equal(t, first.Edges, second.Edges)
}
