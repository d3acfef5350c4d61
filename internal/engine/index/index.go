package index

import (
	"ctxpack/internal/core/errors"
	"ctxpack/internal/engine/parser"
	"ctxpack/internal/shared/observability"
	"ctxpack/internal/shared/util"
	stdErrors "errors"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// Entry maps a fully-qualified type name to the file that declares it.
type Entry struct {
	FQName      string
	Path        string
	Fingerprint string
}

type Options struct {
	Root string
	// StorePath is the sqlite database; empty keeps the index in memory.
	StorePath string
	Walk      WalkOptions
	RunID     string
	Logger    *slog.Logger
}

// Index is the fqName -> file map. It is not safe for concurrent use; the
// traversal goroutine is its single writer.
type Index struct {
	root   string
	units  *parser.UnitCache
	store  *Store
	walk   WalkOptions
	runID  string
	logger *slog.Logger

	entries map[string]Entry
	dirty   map[string]struct{}
	evicted map[string]struct{}

	listing    []string
	listed     bool
	byFileName map[string][]string

	catalog      map[string][]string
	catalogBuilt bool

	namespaces map[string][]string
	// rivalsChecked holds names whose cached hit was compared against
	// same-named files during this run.
	rivalsChecked map[string]struct{}
}

// Open loads the persisted index for root. A corrupt or newer-than-known
// database is discarded and recreated; when that fails too the index keeps
// working in memory only.
func Open(units *parser.UnitCache, opts Options) (*Index, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeFatalInput, "resolve project root"), errors.CtxPath, opts.Root)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	idx := &Index{
		root:       root,
		units:      units,
		walk:       opts.Walk,
		runID:      opts.RunID,
		logger:     logger,
		entries:    make(map[string]Entry),
		dirty:      make(map[string]struct{}),
		evicted:    make(map[string]struct{}),
		byFileName: make(map[string][]string),
		catalog:    make(map[string][]string),
		namespaces: make(map[string][]string),

		rivalsChecked: make(map[string]struct{}),
	}

	if strings.TrimSpace(opts.StorePath) == "" {
		return idx, nil
	}

	store, records, err := openAndLoad(opts.StorePath)
	if err != nil {
		reason := "location index unreadable, rebuilding"
		if IsSchemaTooNew(err) {
			reason = "location index written by a newer release, rebuilding"
		}
		corrupt := errors.AddContext(errors.Wrap(err, errors.CodeCacheCorruption, "discarding location index"), errors.CtxPath, opts.StorePath)
		logger.Warn(reason, "path", opts.StorePath, "error", corrupt)
		if rmErr := removeStoreFiles(opts.StorePath); rmErr != nil {
			logger.Warn("remove location index failed, continuing in memory", "path", opts.StorePath, "error", rmErr)
			return idx, nil
		}
		store, records, err = openAndLoad(opts.StorePath)
		if err != nil {
			logger.Warn("recreate location index failed, continuing in memory", "path", opts.StorePath, "error", err)
			return idx, nil
		}
	}

	idx.store = store
	for _, rec := range records {
		idx.entries[rec.FQName] = Entry{
			FQName:      rec.FQName,
			Path:        idx.absPath(rec.Path),
			Fingerprint: rec.Fingerprint,
		}
	}
	observability.IndexEntries.Set(float64(len(idx.entries)))
	logger.Debug("location index loaded", "path", opts.StorePath, "entries", len(idx.entries))
	return idx, nil
}

func openAndLoad(path string) (*Store, []Record, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, nil, err
	}
	records, err := store.Load()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, records, nil
}

// Resolve returns the path of the file declaring fqName. A miss is reported
// as a CodeNotFound error.
func (idx *Index) Resolve(fqName string) (string, error) {
	fqName = strings.TrimSpace(fqName)
	if fqName == "" {
		return "", errors.New(errors.CodeNotFound, "empty type name")
	}

	if entry, ok := idx.entries[fqName]; ok {
		unit, err := idx.units.Load(entry.Path)
		if err == nil && unit.Fingerprint == entry.Fingerprint {
			if !idx.hasRivals(fqName) {
				observability.IndexLookupsTotal.WithLabelValues("hit").Inc()
				return entry.Path, nil
			}
			// Another file of the same name may declare fqName since the
			// entry was stored; the tie-break must not depend on cache history.
			observability.IndexLookupsTotal.WithLabelValues("recheck").Inc()
			return idx.discover(fqName)
		}
		observability.IndexLookupsTotal.WithLabelValues("stale").Inc()
		idx.logger.Debug("evicting stale index entry", "type", fqName, "path", entry.Path)
		idx.evict(fqName)
	}

	path, err := idx.discover(fqName)
	if err != nil {
		observability.IndexLookupsTotal.WithLabelValues("not_found").Inc()
		return "", err
	}
	observability.IndexLookupsTotal.WithLabelValues("discovered").Inc()
	return path, nil
}

func (idx *Index) discover(fqName string) (string, error) {
	if err := idx.ensureListing(); err != nil {
		return "", err
	}

	namespace, simple := splitName(fqName)
	var matches []*parser.Unit
	for _, path := range idx.byFileName[idx.units.Parser().SourceFileName(simple)] {
		unit, err := idx.units.Load(path)
		if err != nil {
			idx.logger.Debug("skipping unreadable candidate", "path", path, "error", err)
			continue
		}
		if unit.Fact.Namespace == namespace && unit.Fact.Declares(simple) {
			matches = append(matches, unit)
		}
	}

	if len(matches) == 0 {
		idx.buildCatalog()
		for _, path := range idx.catalog[fqName] {
			unit, err := idx.units.Load(path)
			if err == nil {
				matches = append(matches, unit)
			}
		}
	}

	if len(matches) == 0 {
		return "", errors.AddContext(errors.New(errors.CodeNotFound, "type not found"), errors.CtxSymbol, fqName)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	if len(matches) > 1 {
		candidates := make([]string, 0, len(matches))
		for _, m := range matches {
			candidates = append(candidates, idx.relPath(m.Path))
		}
		observability.AmbiguousTypesTotal.Inc()
		idx.logger.Warn("type declared by several files, using first path",
			"type", fqName,
			"candidates", candidates,
			"error", errors.AddContext(errors.New(errors.CodeAmbiguous, "ambiguous type"), errors.CtxSymbol, fqName))
	}

	chosen := matches[0]
	idx.put(fqName, chosen.Path, chosen.Fingerprint)
	return chosen.Path, nil
}

// TypesInNamespace lists the fully-qualified types declared in namespace, in
// path order and declaration order within a file. Discovered types are added
// to the index.
func (idx *Index) TypesInNamespace(namespace string) ([]string, error) {
	namespace = strings.TrimSpace(namespace)
	if cached, ok := idx.namespaces[namespace]; ok {
		return append([]string(nil), cached...), nil
	}
	if err := idx.ensureListing(); err != nil {
		return nil, err
	}

	dir := strings.ReplaceAll(namespace, ".", "/")
	seen := make(map[string]struct{})
	var types []string
	for _, path := range idx.listing {
		if !util.HasPathSuffix(filepath.ToSlash(filepath.Dir(idx.relPath(path))), dir) {
			continue
		}
		unit, err := idx.units.Load(path)
		if err != nil {
			idx.logger.Debug("skipping unreadable file", "path", path, "error", err)
			continue
		}
		if unit.Fact.Namespace != namespace {
			continue
		}
		for _, fq := range unit.Fact.QualifiedTypes() {
			if _, ok := seen[fq]; ok {
				continue
			}
			seen[fq] = struct{}{}
			types = append(types, fq)
			if entry, ok := idx.entries[fq]; !ok || entry.Path != path || entry.Fingerprint != unit.Fingerprint {
				idx.put(fq, path, unit.Fingerprint)
			}
		}
	}

	idx.namespaces[namespace] = types
	return append([]string(nil), types...), nil
}

// Lookup returns the current entry for fqName without validating it.
func (idx *Index) Lookup(fqName string) (Entry, bool) {
	entry, ok := idx.entries[fqName]
	return entry, ok
}

func (idx *Index) Len() int {
	return len(idx.entries)
}

// Root is the absolute project root.
func (idx *Index) Root() string {
	return idx.root
}

// Persistent reports whether the index is backed by a database.
func (idx *Index) Persistent() bool {
	return idx.store != nil
}

// Persist writes the entries changed during this run in one transaction.
func (idx *Index) Persist() error {
	observability.IndexEntries.Set(float64(len(idx.entries)))
	if idx.store == nil {
		return nil
	}
	if len(idx.dirty) == 0 && len(idx.evicted) == 0 && idx.runID == "" {
		return nil
	}

	upserts := make([]Record, 0, len(idx.dirty))
	for _, name := range util.SortedStringKeys(idx.dirty) {
		entry := idx.entries[name]
		upserts = append(upserts, Record{
			FQName:      entry.FQName,
			Path:        idx.relPath(entry.Path),
			Fingerprint: entry.Fingerprint,
		})
	}
	deletes := util.SortedStringKeys(idx.evicted)

	if err := idx.store.Apply(upserts, deletes, idx.runID); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "persist location index"), errors.CtxPath, idx.store.Path())
	}
	idx.logger.Debug("location index persisted", "upserts", len(upserts), "deletes", len(deletes))
	idx.dirty = make(map[string]struct{})
	idx.evicted = make(map[string]struct{})
	return nil
}

func (idx *Index) Close() error {
	if idx.store == nil {
		return nil
	}
	err := idx.store.Close()
	idx.store = nil
	return err
}

func (idx *Index) put(fqName, path, fingerprint string) {
	entry := Entry{FQName: fqName, Path: path, Fingerprint: fingerprint}
	if current, ok := idx.entries[fqName]; ok && current == entry {
		return
	}
	idx.entries[fqName] = entry
	idx.dirty[fqName] = struct{}{}
	delete(idx.evicted, fqName)
}

func (idx *Index) evict(fqName string) {
	delete(idx.entries, fqName)
	delete(idx.dirty, fqName)
	idx.evicted[fqName] = struct{}{}
}

// hasRivals reports, once per name and run, whether the listing holds more
// than one file named after the simple name of fqName.
func (idx *Index) hasRivals(fqName string) bool {
	if _, ok := idx.rivalsChecked[fqName]; ok {
		return false
	}
	idx.rivalsChecked[fqName] = struct{}{}
	if err := idx.ensureListing(); err != nil {
		idx.logger.Debug("cannot list sources, trusting cached entry", "type", fqName, "error", err)
		return false
	}
	_, simple := splitName(fqName)
	return len(idx.byFileName[idx.units.Parser().SourceFileName(simple)]) > 1
}

func (idx *Index) ensureListing() error {
	if idx.listed {
		return nil
	}
	files, err := ListSourceFiles(idx.root, idx.walk, idx.units.Parser().IsSupportedPath)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeFatalInput, "list source files"), errors.CtxPath, idx.root)
	}
	idx.listing = files
	for _, path := range files {
		base := filepath.Base(path)
		idx.byFileName[base] = append(idx.byFileName[base], path)
	}
	idx.listed = true
	idx.logger.Debug("source files listed", "root", idx.root, "files", len(files))
	return nil
}

func (idx *Index) buildCatalog() {
	if idx.catalogBuilt {
		return
	}
	idx.catalogBuilt = true
	for _, path := range idx.listing {
		unit, err := idx.units.Load(path)
		if err != nil {
			idx.logger.Debug("skipping unreadable file", "path", path, "error", err)
			continue
		}
		for _, fq := range unit.Fact.QualifiedTypes() {
			idx.catalog[fq] = append(idx.catalog[fq], path)
		}
	}
	idx.logger.Debug("declaration catalog built", "types", len(idx.catalog))
}

func (idx *Index) relPath(path string) string {
	return util.RelSlash(idx.root, path)
}

func (idx *Index) absPath(stored string) string {
	p := filepath.FromSlash(stored)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(idx.root, p)
}

func splitName(fqName string) (string, string) {
	i := strings.LastIndex(fqName, ".")
	if i < 0 {
		return "", fqName
	}
	return fqName[:i], fqName[i+1:]
}

// IsSchemaTooNew reports whether err came from a database written by a newer
// release.
func IsSchemaTooNew(err error) bool {
	var target errSchemaTooNew
	return stdErrors.As(err, &target)
}
