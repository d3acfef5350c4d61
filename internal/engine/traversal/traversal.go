package traversal

import (
	"context"
	"ctxpack/internal/core/errors"
	"ctxpack/internal/engine/parser"
	"ctxpack/internal/engine/resolver"
	"ctxpack/internal/shared/observability"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// ResolvedFile is one emitted file with its BFS distance from the target.
type ResolvedFile struct {
	Path  string
	Depth int
	// ParseErr is set when the file was emitted without outgoing edges
	// because it could not be read or parsed.
	ParseErr error
}

// Edge is an import edge between two emitted files.
type Edge struct {
	From string
	To   string
}

type Result struct {
	Files      []ResolvedFile
	Edges      []Edge
	Unresolved []string
	Filtered   int
}

// Paths returns the emitted paths in traversal order.
func (r Result) Paths() []string {
	out := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, f.Path)
	}
	return out
}

type Options struct {
	// Prefix is the namespace filter; it is normalized by NewEngine.
	Prefix           string
	Workers          int
	FollowSupertypes bool
	Logger           *slog.Logger
}

// Engine walks import edges breadth first from a target file.
type Engine struct {
	units    *parser.UnitCache
	resolver *resolver.Resolver
	prefix   string
	workers  int
	supers   bool
	logger   *slog.Logger
}

func NewEngine(units *parser.UnitCache, res *resolver.Resolver, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		units:    units,
		resolver: res,
		prefix:   resolver.NormalizePrefix(opts.Prefix),
		workers:  workers,
		supers:   opts.FollowSupertypes,
		logger:   logger,
	}
}

// Run emits the target and every file reachable from it through in-prefix
// imports within maxDepth hops. Files appear once, in BFS order.
func (e *Engine) Run(ctx context.Context, target string, maxDepth int) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "traversal.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("target", target),
		attribute.Int("max_depth", maxDepth),
		attribute.String("prefix", e.prefix),
	)

	res, err := e.run(ctx, target, maxDepth)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("files", len(res.Files)), attribute.Int("edges", len(res.Edges)))
	observability.TraversalFiles.Set(float64(len(res.Files)))
	observability.FilteredImportsTotal.Add(float64(res.Filtered))
	observability.UnresolvedImportsTotal.Add(float64(len(res.Unresolved)))
	return res, nil
}

func (e *Engine) run(ctx context.Context, target string, maxDepth int) (Result, error) {
	if maxDepth < 0 {
		return Result{}, errors.New(errors.CodeValidationError, fmt.Sprintf("depth must be >= 0, got %d", maxDepth))
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return Result{}, errors.AddContext(errors.Wrap(err, errors.CodeFatalInput, "resolve target path"), errors.CtxPath, target)
	}
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}

	unit, err := e.units.Load(target)
	if err != nil {
		return Result{}, err
	}
	if unit.ParseErr != nil {
		return Result{}, errors.AddContext(errors.Wrap(unit.ParseErr, errors.CodeFatalInput, "parse target"), errors.CtxPath, target)
	}

	var res Result
	unresolved := make(map[string]struct{})
	visited := map[string]struct{}{target: {}}
	level := []string{target}

	for depth := 0; len(level) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if depth > 0 {
			if err := e.prefetch(ctx, level); err != nil {
				return Result{}, err
			}
		}

		var next []string
		for _, path := range level {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}

			file := ResolvedFile{Path: path, Depth: depth}
			unit, err := e.units.Load(path)
			if err != nil {
				file.ParseErr = err
			} else if unit.ParseErr != nil {
				file.ParseErr = unit.ParseErr
			}
			res.Files = append(res.Files, file)

			if depth == maxDepth {
				continue
			}
			if file.ParseErr != nil {
				e.logger.Debug("dependency emitted without edges", "path", path, "error", file.ParseErr)
				continue
			}

			deps, err := e.expand(unit, &res, unresolved)
			if err != nil {
				return Result{}, err
			}
			for _, dep := range deps {
				res.Edges = append(res.Edges, Edge{From: path, To: dep})
				if _, ok := visited[dep]; ok {
					continue
				}
				visited[dep] = struct{}{}
				next = append(next, dep)
			}
		}
		level = next
	}

	res.Unresolved = make([]string, 0, len(unresolved))
	for name := range unresolved {
		res.Unresolved = append(res.Unresolved, name)
	}
	sort.Strings(res.Unresolved)
	return res, nil
}

// expand returns the distinct files unit depends on: imports in declaration
// order, then supertypes in declaration order.
func (e *Engine) expand(unit *parser.Unit, res *Result, unresolved map[string]struct{}) ([]string, error) {
	var out []string
	seen := map[string]struct{}{unit.Path: {}}
	add := func(exp resolver.Expansion) {
		if exp.Filtered {
			res.Filtered++
		}
		if exp.Unresolved != "" {
			unresolved[exp.Unresolved] = struct{}{}
		}
		for _, p := range exp.Paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, ref := range unit.Fact.Imports {
		exp, err := e.resolver.Expand(ref, e.prefix)
		if err != nil {
			return nil, err
		}
		add(exp)
	}
	if !e.supers {
		return out, nil
	}
	for _, name := range unit.Fact.Supertypes {
		exp, err := e.resolver.ExpandSupertype(name, unit.Fact, e.prefix)
		if err != nil {
			return nil, err
		}
		// Supertypes outside the prefix are not imports; keep Filtered an import count.
		exp.Filtered = false
		add(exp)
	}
	return out, nil
}

// prefetch reads and parses a BFS level concurrently so the sequential pass
// finds every unit cached. Load failures resurface in the sequential pass.
func (e *Engine) prefetch(ctx context.Context, paths []string) error {
	if len(paths) < 2 || e.workers < 2 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, _ = e.units.Load(path)
			return nil
		})
	}
	return g.Wait()
}
