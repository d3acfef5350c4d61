package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is looked up under the project root when no --config is given.
const DefaultFileName = "ctxpack.toml"

type Config struct {
	Version   int       `toml:"version"`
	Project   Project   `toml:"project"`
	Traversal Traversal `toml:"traversal"`
	Index     Index     `toml:"index"`
	Exclude   Exclude   `toml:"exclude"`
	Output    Output    `toml:"output"`
	Watch     Watch     `toml:"watch"`
}

type Project struct {
	Root        string `toml:"root"`
	BasePackage string `toml:"base_package"`
}

type Traversal struct {
	Depth            *int  `toml:"depth"`
	Workers          int   `toml:"workers"`
	FollowSupertypes *bool `toml:"follow_supertypes"`
	CacheSize        int   `toml:"cache_size"`
}

type Index struct {
	Enabled *bool  `toml:"enabled"`
	Path    string `toml:"path"`
}

type Exclude struct {
	Dirs         []string `toml:"dirs"`
	Files        []string `toml:"files"`
	UseGitignore *bool    `toml:"use_gitignore"`
}

type Output struct {
	Format      string `toml:"format"`
	Path        string `toml:"path"`
	Graph       string `toml:"graph"`
	GraphFormat string `toml:"graph_format"`
	MetricsFile string `toml:"metrics_file"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// DefaultConfig returns a validated configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}

	if cfg.Traversal.Depth == nil {
		depth := 1
		cfg.Traversal.Depth = &depth
	}
	if cfg.Traversal.Workers <= 0 {
		cfg.Traversal.Workers = 4
	}
	if cfg.Traversal.FollowSupertypes == nil {
		enabled := true
		cfg.Traversal.FollowSupertypes = &enabled
	}
	if cfg.Traversal.CacheSize <= 0 {
		cfg.Traversal.CacheSize = 4096
	}

	if cfg.Index.Enabled == nil {
		enabled := true
		cfg.Index.Enabled = &enabled
	}
	if strings.TrimSpace(cfg.Index.Path) == "" {
		cfg.Index.Path = ".ctxpack/index.db"
	}

	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = []string{".git", ".svn", ".idea", ".gradle", "target", "build", "out", "node_modules", ".ctxpack"}
	}
	if cfg.Exclude.UseGitignore == nil {
		enabled := true
		cfg.Exclude.UseGitignore = &enabled
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "txt"
	}
	if strings.TrimSpace(cfg.Output.GraphFormat) == "" {
		cfg.Output.GraphFormat = "dot"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

func normalize(cfg *Config) {
	cfg.Project.Root = strings.TrimSpace(cfg.Project.Root)
	cfg.Project.BasePackage = strings.TrimSpace(cfg.Project.BasePackage)
	cfg.Index.Path = strings.TrimSpace(cfg.Index.Path)
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Output.GraphFormat = strings.ToLower(strings.TrimSpace(cfg.Output.GraphFormat))
	cfg.Output.Path = strings.TrimSpace(cfg.Output.Path)
	cfg.Output.Graph = strings.TrimSpace(cfg.Output.Graph)
	cfg.Output.MetricsFile = strings.TrimSpace(cfg.Output.MetricsFile)
}

// MaxDepth is the configured traversal depth.
func (c *Config) MaxDepth() int {
	if c.Traversal.Depth == nil {
		return 1
	}
	return *c.Traversal.Depth
}

func (c *Config) SetMaxDepth(depth int) {
	c.Traversal.Depth = &depth
}

func (c *Config) IndexEnabled() bool {
	return c.Index.Enabled == nil || *c.Index.Enabled
}

func (c *Config) FollowSupertypes() bool {
	return c.Traversal.FollowSupertypes == nil || *c.Traversal.FollowSupertypes
}

func (c *Config) UseGitignore() bool {
	return c.Exclude.UseGitignore == nil || *c.Exclude.UseGitignore
}
