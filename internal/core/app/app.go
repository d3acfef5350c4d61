package app

import (
	"context"
	"ctxpack/internal/core/config"
	"ctxpack/internal/core/errors"
	"ctxpack/internal/engine/index"
	"ctxpack/internal/engine/parser"
	"ctxpack/internal/engine/resolver"
	"ctxpack/internal/engine/traversal"
	"ctxpack/internal/shared/observability"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Report summarizes one completed run.
type Report struct {
	RunID        string
	Target       string
	Root         string
	Result       traversal.Result
	Documents    int
	OutputPath   string
	OutputBytes  int
	GraphPath    string
	IndexEntries int
	Persistent   bool
	Duration     time.Duration
}

// App wires one extraction run: index load, traversal, assembly, output
// and index persistence.
type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	codeParser *parser.Parser
	logger     *slog.Logger
	stdout     io.Writer
}

func New(cfg *config.Config, paths config.ResolvedPaths, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	p, err := parser.NewJavaParser()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load java grammar")
	}
	return &App{
		Config:     cfg,
		Paths:      paths,
		codeParser: p,
		logger:     logger,
		stdout:     os.Stdout,
	}, nil
}

// SetStdout redirects output written with the "-" path.
func (a *App) SetStdout(w io.Writer) {
	a.stdout = w
}

// Run extracts the context of target. Unresolved imports never fail a run;
// an unreadable or unparseable target, or an unwritable output, does.
func (a *App) Run(ctx context.Context, target string) (Report, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger := a.logger.With("run", runID)

	ctx, span := observability.Tracer.Start(ctx, "app.Run", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	report, err := a.run(ctx, runID, target, logger)
	report.Duration = time.Since(started)
	observability.RunDuration.WithLabelValues("total").Observe(report.Duration.Seconds())
	span.SetAttributes(attribute.String("run_id", runID), attribute.Int("files", len(report.Result.Files)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	if a.Paths.MetricsPath != "" {
		if err := observability.WriteTextfile(a.Paths.MetricsPath); err != nil {
			logger.Warn("write metrics textfile failed", "path", a.Paths.MetricsPath, "error", err)
		}
	}
	return report, nil
}

func (a *App) run(ctx context.Context, runID, target string, logger *slog.Logger) (Report, error) {
	report := Report{RunID: runID, Root: a.Paths.ProjectRoot}

	targetPath, err := a.resolveTarget(target)
	if err != nil {
		return report, err
	}
	report.Target = targetPath
	if !isWithin(a.Paths.ProjectRoot, targetPath) {
		logger.Warn("target lies outside the project root", "target", targetPath, "root", a.Paths.ProjectRoot)
	}

	units, err := parser.NewUnitCache(a.codeParser, a.Config.Traversal.CacheSize)
	if err != nil {
		return report, errors.Wrap(err, errors.CodeInternal, "create unit cache")
	}

	storePath := ""
	if a.Config.IndexEnabled() {
		storePath = a.Paths.IndexPath
	}
	stage := time.Now()
	idx, err := index.Open(units, index.Options{
		Root:      a.Paths.ProjectRoot,
		StorePath: storePath,
		Walk: index.WalkOptions{
			ExcludeDirs:  a.Config.Exclude.Dirs,
			ExcludeFiles: a.Config.Exclude.Files,
			UseGitignore: a.Config.UseGitignore(),
		},
		RunID:  runID,
		Logger: logger,
	})
	if err != nil {
		return report, err
	}
	defer func() {
		if err := idx.Close(); err != nil {
			logger.Warn("close location index failed", "error", err)
		}
	}()
	observability.RunDuration.WithLabelValues("index_load").Observe(time.Since(stage).Seconds())

	stage = time.Now()
	engine := traversal.NewEngine(units, resolver.NewResolver(idx, logger), traversal.Options{
		Prefix:           a.Config.Project.BasePackage,
		Workers:          a.Config.Traversal.Workers,
		FollowSupertypes: a.Config.FollowSupertypes(),
		Logger:           logger,
	})
	result, err := engine.Run(ctx, targetPath, a.Config.MaxDepth())
	if err != nil {
		return report, err
	}
	report.Result = result
	observability.RunDuration.WithLabelValues("traversal").Observe(time.Since(stage).Seconds())
	for _, name := range result.Unresolved {
		logger.Debug("unresolved import", "import", name)
	}

	stage = time.Now()
	if err := a.writeOutputs(&report, units, logger); err != nil {
		return report, err
	}
	observability.RunDuration.WithLabelValues("output").Observe(time.Since(stage).Seconds())

	stage = time.Now()
	_, persistSpan := observability.Tracer.Start(ctx, "index.Persist")
	if err := idx.Persist(); err != nil {
		persistSpan.RecordError(err)
		logger.Warn("persist location index failed", "error", err)
	}
	persistSpan.End()
	observability.RunDuration.WithLabelValues("persist").Observe(time.Since(stage).Seconds())
	report.IndexEntries = idx.Len()
	report.Persistent = idx.Persistent()
	return report, nil
}

func (a *App) resolveTarget(target string) (string, error) {
	if target == "" {
		return "", errors.New(errors.CodeValidationError, "target file is required")
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeFatalInput, "resolve target"), errors.CtxPath, target)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeFatalInput, "target not readable"), errors.CtxPath, abs)
	}
	if info.IsDir() {
		return "", errors.AddContext(errors.New(errors.CodeFatalInput, "target is a directory"), errors.CtxPath, abs)
	}
	if !a.codeParser.IsSupportedPath(abs) {
		return "", errors.AddContext(errors.New(errors.CodeFatalInput, "target is not a java source file"), errors.CtxPath, abs)
	}
	return abs, nil
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
