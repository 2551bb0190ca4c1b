package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/svfront/driver/internal/base"
)

// Buffer is one loaded source file: its resolved path, content fingerprint
// and raw text, plus the library it belongs to (empty for ordinary design
// sources). Order of a Buffer slice returned by the loader always matches
// the order addFiles/addLibraryFiles was called in, regardless of how
// many worker-pool goroutines parse the buffers.
type Buffer struct {
	Path        string
	Library     string
	Text        []byte
	Fingerprint Fingerprint
}

type fileEntry struct {
	pattern string
	library string
}

// ErrorFunc is the load-error callback supplied at construction; the
// driver's callback prints the message and sets the process-wide failure
// flag.
type ErrorFunc func(err error)

// Loader is the source loader: it expands glob patterns into a
// deterministic file list and fans parsing out across a worker pool.
// Grounded on UFS.go's glob resolution (utils/UFS.go) for pattern
// expansion and on ThreadPool (internal/base/threadpool.go, itself
// adapted from fixedSizeThreadPool) for the parallel parse fan-out.
type Loader struct {
	onError      ErrorFunc
	files        []fileEntry
	excludeExt   map[string]bool
	searchDirs   []string
	searchExts   []string
	anyLoadError bool
}

func NewLoader(onError ErrorFunc) *Loader {
	if onError == nil {
		onError = func(error) {}
	}
	return &Loader{onError: onError, excludeExt: map[string]bool{}}
}

func (l *Loader) SetExcludeExtensions(exts []string) {
	l.excludeExt = map[string]bool{}
	for _, e := range exts {
		l.excludeExt[e] = true
	}
}

// AddFiles records a glob pattern or explicit path for later expansion.
func (l *Loader) AddFiles(pattern string) {
	l.files = append(l.files, fileEntry{pattern: pattern})
}

// AddLibraryFiles registers pattern as belonging to libName: library
// files form independent compilation units whose modules are never
// auto-instantiated.
func (l *Loader) AddLibraryFiles(libName, pattern string) {
	l.files = append(l.files, fileEntry{pattern: pattern, library: libName})
}

func (l *Loader) AddSearchDirectories(dirs []string) { l.searchDirs = append(l.searchDirs, dirs...) }
func (l *Loader) AddSearchExtensions(exts []string)  { l.searchExts = append(l.searchExts, exts...) }

func (l *Loader) SearchDirectories() []string { return l.searchDirs }
func (l *Loader) SearchExtensions() []string  { return l.searchExts }

func (l *Loader) HasFiles() bool { return len(l.files) > 0 }

func (l *Loader) AnyLoadErrors() bool { return l.anyLoadError }

// expand resolves every registered pattern, in registration order, into
// a deterministic list of (path, library) pairs, dropping excluded
// extensions. A pattern with no glob metacharacters that doesn't match an
// existing file is kept verbatim so a later "file not found" read error
// carries the user's original spelling.
func (l *Loader) expand() []fileEntry {
	var out []fileEntry
	for _, fe := range l.files {
		matches, err := filepath.Glob(fe.pattern)
		if err != nil || len(matches) == 0 {
			out = append(out, fe)
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			// exclude-ext only ever drops positional design files; library
			// files (-y/-v) are exempt, matching the documented asymmetry
			// between positional and library file handling.
			if fe.library == "" && l.excludeExt[filepath.Ext(m)] {
				continue
			}
			out = append(out, fileEntry{pattern: m, library: fe.library})
		}
	}
	return out
}

// LoadSources reads every registered file into a Buffer, preserving
// registration/expansion order.
func (l *Loader) LoadSources() []*Buffer {
	entries := l.expand()
	buffers := make([]*Buffer, len(entries))
	for i, fe := range entries {
		text, err := os.ReadFile(fe.pattern)
		if err != nil {
			l.anyLoadError = true
			l.onError(fmt.Errorf("unable to load source %q: %w", fe.pattern, err))
			continue
		}
		buffers[i] = &Buffer{
			Path:        fe.pattern,
			Library:     fe.library,
			Text:        text,
			Fingerprint: FingerprintOf(text),
		}
	}
	return compact(buffers)
}

func compact(buffers []*Buffer) []*Buffer {
	out := buffers[:0]
	for _, b := range buffers {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

// ParseFunc parses one loaded buffer into whatever tree representation
// the caller's syntax layer produces; kept abstract here so source stays
// independent of the syntax package (avoids an import cycle, since the
// syntax/preprocess layers need to reference source.Buffer already).
type ParseFunc func(*Buffer) (any, error)

// LoadAndParseSources loads every registered file then parses each buffer,
// fanning the parse step out across numThreads workers when numThreads>1.
// The returned slice is always ordered to match the buffers' load order,
// not completion order.
func (l *Loader) LoadAndParseSources(numThreads int, parse ParseFunc) []any {
	buffers := l.LoadSources()
	trees := make([]any, len(buffers))

	if numThreads <= 1 || len(buffers) <= 1 {
		for i, buf := range buffers {
			tree, err := parse(buf)
			if err != nil {
				l.anyLoadError = true
				l.onError(fmt.Errorf("unable to parse %q: %w", buf.Path, err))
				continue
			}
			trees[i] = tree
		}
		return trees
	}

	pool := base.NewThreadPool(numThreads)
	var mu sync.Mutex
	for i, buf := range buffers {
		i, buf := i, buf
		pool.Queue(func(int) {
			tree, err := parse(buf)
			if err != nil {
				mu.Lock()
				l.anyLoadError = true
				mu.Unlock()
				l.onError(fmt.Errorf("unable to parse %q: %w", buf.Path, err))
				return
			}
			trees[i] = tree
		})
	}
	pool.Join()
	return trees
}
