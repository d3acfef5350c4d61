package index

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/gobwas/glob"
)

// WalkOptions control which files under the root take part in discovery.
type WalkOptions struct {
	ExcludeDirs  []string
	ExcludeFiles []string
	UseGitignore bool
}

// ListSourceFiles walks root once and returns every file accepted by
// isSource, sorted by path. Directories matching an exclude glob (by base
// name) and paths ignored by .gitignore files are skipped.
func ListSourceFiles(root string, opts WalkOptions, isSource func(string) bool) ([]string, error) {
	dirGlobs, err := compileGlobs(opts.ExcludeDirs)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude dir pattern: %w", err)
	}
	fileGlobs, err := compileGlobs(opts.ExcludeFiles)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude file pattern: %w", err)
	}

	ignore := &ignoreRules{}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		segments := relSegments(root, path)
		base := filepath.Base(path)
		if d.IsDir() {
			if path != root {
				if matchAny(dirGlobs, base) || ignore.match(segments, true) {
					return filepath.SkipDir
				}
			}
			if opts.UseGitignore {
				ignore.load(path, segments)
			}
			return nil
		}

		if !isSource(path) || matchAny(fileGlobs, base) || ignore.match(segments, false) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func relSegments(root, path string) []string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

// ignoreRules accumulates .gitignore patterns while walking. Patterns carry
// the directory they were read from as their domain, so rules of one subtree
// never match outside it.
type ignoreRules struct {
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
}

func (r *ignoreRules) load(dir string, domain []string) {
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	added := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r.patterns = append(r.patterns, gitignore.ParsePattern(line, domain))
		added = true
	}
	if added {
		r.matcher = gitignore.NewMatcher(r.patterns)
	}
}

func (r *ignoreRules) match(segments []string, isDir bool) bool {
	if r.matcher == nil || len(segments) == 0 {
		return false
	}
	return r.matcher.Match(segments, isDir)
}
