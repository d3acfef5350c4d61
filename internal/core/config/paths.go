package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot string
	IndexPath   string
	OutputPath  string
	GraphPath   string
	MetricsPath string
}

// ResolvePaths makes every configured path absolute. The project root is
// relative to cwd; index, output, graph and metrics paths are relative to the
// project root and cwd respectively as documented on each field.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	root := ResolveRelative(cwd, cfg.Project.Root)
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	info, err := os.Stat(root)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("project root %q: %w", root, err)
	}
	if !info.IsDir() {
		return ResolvedPaths{}, fmt.Errorf("project root %q is not a directory", root)
	}

	out := ResolvedPaths{
		ProjectRoot: root,
		IndexPath:   ResolveRelative(root, cfg.Index.Path),
	}

	outputPath := strings.TrimSpace(cfg.Output.Path)
	switch outputPath {
	case "-":
		out.OutputPath = "-"
	case "":
		out.OutputPath = ResolveRelative(cwd, DefaultOutputName(cfg.Output.Format))
	default:
		out.OutputPath = ResolveRelative(cwd, outputPath)
	}
	if graph := strings.TrimSpace(cfg.Output.Graph); graph != "" {
		out.GraphPath = ResolveRelative(cwd, graph)
	}
	if metrics := strings.TrimSpace(cfg.Output.MetricsFile); metrics != "" {
		out.MetricsPath = ResolveRelative(cwd, metrics)
	}
	return out, nil
}

// DefaultOutputName is the file written when no output path is configured.
func DefaultOutputName(format string) string {
	return "linked_classes." + format
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
