package cli

import (
	"context"
	"ctxpack/internal/core/app"
	"ctxpack/internal/core/config"
	"ctxpack/internal/core/errors"
	stdErrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const versionString = "1.0.0"

type cliOptions struct {
	file         string
	root         string
	basePackage  string
	depth        int
	format       string
	output       string
	verbose      bool
	configPath   string
	graph        string
	graphFormat  string
	indexPath    string
	noCache      bool
	workers      int
	noSupertypes bool
	watch        bool
	metricsFile  string
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var de *errors.DomainError
	if !stdErrors.As(err, &de) {
		// cobra usage errors: unknown flags, missing required flags.
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return errors.ExitCode(err)
}

// NewRootCommand builds the ctxpack command.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{}
	cmd := &cobra.Command{
		Use:   "ctxpack --file <Target.java> --root <dir>",
		Short: "Collect a Java file and its in-project imports into one document",
		Long: `ctxpack starts at one Java source file, follows its import declarations
breadth first up to --depth hops, keeps only types inside --base-package and
writes the cleaned sources of every reached file to a single txt, md, json or
yaml document.

Examples:
  ctxpack --file src/main/java/com/acme/App.java --root . --base-package com.acme
  ctxpack --file App.java --root . --depth 2 --format md --output context.md
  ctxpack --file App.java --root . --graph deps.dot --watch`,
		Version:       versionString,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("ctxpack v{{.Version}}\n")

	flags := cmd.Flags()
	flags.SetNormalizeFunc(normalizeFlagName)
	flags.StringVar(&opts.file, "file", "", "Target Java source file")
	flags.StringVar(&opts.root, "root", "", "Project root to search for dependencies")
	flags.StringVar(&opts.basePackage, "base-package", "", "Namespace prefix to follow, e.g. com.acme")
	flags.IntVar(&opts.depth, "depth", 1, "Maximum import hops from the target")
	flags.StringVar(&opts.format, "format", "txt", "Output format: txt, md, json or yaml")
	flags.StringVar(&opts.output, "output", "", "Output path (default linked_classes.<format>, - for stdout)")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging (alias --debug)")
	flags.StringVar(&opts.configPath, "config", "", "Config file (default <root>/ctxpack.toml when present)")
	flags.StringVar(&opts.graph, "graph", "", "Also write the dependency graph to this path")
	flags.StringVar(&opts.graphFormat, "graph-format", "dot", "Graph format: dot, mermaid, plantuml or tsv")
	flags.StringVar(&opts.indexPath, "index", "", "Location index database (default <root>/.ctxpack/index.db)")
	flags.BoolVar(&opts.noCache, "no-cache", false, "Keep the location index in memory only")
	flags.IntVar(&opts.workers, "workers", 0, "Concurrent file parsers (default 4)")
	flags.BoolVar(&opts.noSupertypes, "no-supertypes", false, "Do not follow same-package extends/implements names")
	flags.BoolVar(&opts.watch, "watch", false, "Re-run whenever a source file under the root changes")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write prometheus metrics in text format to this path")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// normalizeFlagName accepts underscore spellings (--base_package) and the
// --debug alias.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	name = strings.ReplaceAll(name, "_", "-")
	if name == "debug" {
		name = "verbose"
	}
	return pflag.NormalizedName(name)
}

func run(cmd *cobra.Command, opts *cliOptions, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, opts.verbose)

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "determine working directory")
	}
	cfg, err := buildConfig(cmd, opts, cwd)
	if err != nil {
		return err
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return errors.Wrap(err, errors.CodeFatalInput, "invalid project root")
	}

	a, err := app.New(cfg, paths, logger)
	if err != nil {
		return err
	}
	a.SetStdout(stdout)

	ctx := cmd.Context()
	report, err := a.Run(ctx, opts.file)
	if err != nil {
		logger.Debug("run failed", "error", err)
		return err
	}
	fmt.Fprint(stderr, renderSummary(report, cfg))

	if !opts.watch {
		return nil
	}
	logger.Info("watching for changes", "root", paths.ProjectRoot)
	return a.Watch(ctx, opts.file, func(changed []string, report app.Report, err error) {
		if err != nil {
			logger.Error("re-run failed", "error", err)
			return
		}
		fmt.Fprint(stderr, renderSummary(report, cfg))
	})
}

// buildConfig loads the config file, then applies every flag the user set.
func buildConfig(cmd *cobra.Command, opts *cliOptions, cwd string) (*config.Config, error) {
	flags := cmd.Flags()

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		base := cwd
		if opts.root != "" {
			base = config.ResolveRelative(cwd, opts.root)
		}
		candidate := filepath.Join(base, config.DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			configPath = candidate
		}
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		configPath = config.ResolveRelative(cwd, configPath)
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "load config"), errors.CtxPath, configPath)
		}
		cfg = loaded
		cfg.Project.Root = config.ResolveRelative(filepath.Dir(configPath), cfg.Project.Root)
	} else if !flags.Changed("root") {
		return nil, errors.New(errors.CodeValidationError, "--root is required when no config file sets project.root")
	}

	if flags.Changed("root") {
		cfg.Project.Root = config.ResolveRelative(cwd, opts.root)
	}
	if flags.Changed("base-package") {
		cfg.Project.BasePackage = strings.TrimSpace(opts.basePackage)
	}
	if flags.Changed("depth") {
		cfg.SetMaxDepth(opts.depth)
	}
	if flags.Changed("format") {
		cfg.Output.Format = strings.ToLower(strings.TrimSpace(opts.format))
	}
	if flags.Changed("output") {
		cfg.Output.Path = strings.TrimSpace(opts.output)
	}
	if flags.Changed("graph") {
		cfg.Output.Graph = strings.TrimSpace(opts.graph)
	}
	if flags.Changed("graph-format") {
		cfg.Output.GraphFormat = strings.ToLower(strings.TrimSpace(opts.graphFormat))
	}
	if flags.Changed("index") {
		cfg.Index.Path = config.ResolveRelative(cwd, opts.indexPath)
	}
	if flags.Changed("no-cache") && opts.noCache {
		enabled := false
		cfg.Index.Enabled = &enabled
	}
	if flags.Changed("workers") {
		cfg.Traversal.Workers = opts.workers
	}
	if flags.Changed("no-supertypes") && opts.noSupertypes {
		follow := false
		cfg.Traversal.FollowSupertypes = &follow
	}
	if flags.Changed("metrics-file") {
		cfg.Output.MetricsFile = strings.TrimSpace(opts.metricsFile)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid configuration")
	}
	return cfg, nil
}
