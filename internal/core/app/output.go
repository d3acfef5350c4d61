package app

import (
	"ctxpack/internal/core/errors"
	"ctxpack/internal/engine/parser"
	"ctxpack/internal/output"
	"ctxpack/internal/shared/util"
	"log/slog"
)

func (a *App) writeOutputs(report *Report, units *parser.UnitCache, logger *slog.Logger) error {
	formatter, err := output.FormatterFor(a.Config.Output.Format)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "select output format")
	}

	docs := output.NewAssembler(a.Paths.ProjectRoot, units, logger).Assemble(report.Result.Files)
	data, err := formatter.Format(docs)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "format output")
	}
	report.Documents = len(docs)
	report.OutputBytes = len(data)

	if err := a.writeArtifact(a.Paths.OutputPath, data); err != nil {
		return err
	}
	report.OutputPath = a.Paths.OutputPath
	logger.Debug("output written", "path", a.Paths.OutputPath, "format", formatter.Name(), "documents", len(docs))

	if a.Paths.GraphPath == "" {
		return nil
	}
	graph, err := output.RenderGraph(a.Config.Output.GraphFormat, output.NewGraph(a.Paths.ProjectRoot, report.Result))
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "render dependency graph")
	}
	if err := a.writeArtifact(a.Paths.GraphPath, []byte(graph)); err != nil {
		return err
	}
	report.GraphPath = a.Paths.GraphPath
	logger.Debug("dependency graph written", "path", a.Paths.GraphPath, "format", a.Config.Output.GraphFormat)
	return nil
}

func (a *App) writeArtifact(path string, data []byte) error {
	if path == "-" {
		if _, err := a.stdout.Write(data); err != nil {
			return errors.Wrap(err, errors.CodeFatalInput, "write output to stdout")
		}
		return nil
	}
	if err := util.WriteFileAtomic(path, data, 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeFatalInput, "write output"), errors.CtxPath, path)
	}
	return nil
}
