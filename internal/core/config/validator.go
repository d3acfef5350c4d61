package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

var (
	supportedFormats      = []string{"txt", "md", "json", "yaml"}
	supportedGraphFormats = []string{"dot", "mermaid", "plantuml", "tsv"}
	packagePattern        = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*(\.\*|\.)?$`)
)

// Validate checks a configuration after defaults were applied.
func Validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateProject(cfg); err != nil {
		return err
	}
	if err := validateTraversal(cfg); err != nil {
		return err
	}
	if err := validateExclude(cfg); err != nil {
		return err
	}
	if err := validateOutput(cfg); err != nil {
		return err
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateProject(cfg *Config) error {
	pkg := strings.TrimSpace(cfg.Project.BasePackage)
	if pkg != "" && !packagePattern.MatchString(pkg) {
		return fmt.Errorf("project.base_package %q is not a dotted package name", pkg)
	}
	return nil
}

func validateTraversal(cfg *Config) error {
	if cfg.MaxDepth() < 0 {
		return fmt.Errorf("traversal.depth must be >= 0, got %d", cfg.MaxDepth())
	}
	if cfg.Traversal.Workers < 1 {
		return fmt.Errorf("traversal.workers must be >= 1, got %d", cfg.Traversal.Workers)
	}
	if cfg.Traversal.CacheSize < 1 {
		return fmt.Errorf("traversal.cache_size must be >= 1, got %d", cfg.Traversal.CacheSize)
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid exclude dir pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid exclude file pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if !oneOf(cfg.Output.Format, supportedFormats) {
		return fmt.Errorf("output.format must be one of: %s", strings.Join(supportedFormats, ", "))
	}
	if !oneOf(cfg.Output.GraphFormat, supportedGraphFormats) {
		return fmt.Errorf("output.graph_format must be one of: %s", strings.Join(supportedGraphFormats, ", "))
	}
	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	return false
}
