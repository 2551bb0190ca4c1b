// Package cmdfile implements the command-file loader: -f/-F argument
// files that re-enter the option parser with their own base directory.
//
// This deliberately avoids os.Chdir — it threads a "resolution base
// directory" through the re-entrant parse instead, preserving -F's
// documented semantics (paths resolve against the command file's own
// directory) without mutating process-global state. Grounded on the
// load idiom in utils/CommandEnv.go (LoadConfig/SaveConfig), adapted
// from "load persisted config" to "load nested argument file".
package cmdfile

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/svfront/driver/internal/base"
	"github.com/svfront/driver/option"
)

var LogCmdFile = base.NewLogCategory("cmdfile")

// DefaultMaxDepth bounds nested -f/-F inclusion against self-referential
// command files; callers should pass the configured max-include-depth
// instead when known.
const DefaultMaxDepth = 256

type frame struct {
	baseDir string
	depth   int
}

// Loader re-enters option.Parser for nested command files, tracking the
// resolution base directory and recursion depth as an explicit stack
// (rather than a chdir) and accumulating a process-wide failure flag.
type Loader struct {
	schema   *option.Schema
	MaxDepth int

	// ResponseEncoding is the --response-encoding hint: "utf8" reads
	// command files as plain UTF-8, "auto" (the default) additionally
	// sniffs and strips a leading UTF-8 BOM some editors write.
	ResponseEncoding string

	AnyFailedLoads bool
	stack          []frame
	errs           []error
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(raw []byte) []byte {
	if bytes.HasPrefix(raw, utf8BOM) {
		return raw[len(utf8BOM):]
	}
	return raw
}

// NewLoader registers -f/-F entries on schema that call back into this
// loader, then returns it. Schema must not already define -f/-F.
func NewLoader(schema *option.Schema, maxDepth int) *Loader {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	l := &Loader{schema: schema, MaxDepth: maxDepth}

	schema.Register(&option.Entry{
		Long: "-f", Kind: option.KindCallback, IsFileName: true,
		Help:     "read additional arguments from FILE, relative to the current directory",
		Callback: func(path string) error { return l.include(path, false) },
	})
	schema.Register(&option.Entry{
		Long: "-F", Kind: option.KindCallback, IsFileName: true,
		Help:     "read additional arguments from FILE, relative to FILE's own directory",
		Callback: func(path string) error { return l.include(path, true) },
	})
	return l
}

func (l *Loader) top() frame {
	if len(l.stack) == 0 {
		return frame{}
	}
	return l.stack[len(l.stack)-1]
}

// CurrentBaseDir returns the resolution base directory in effect for
// whatever command file is being parsed right now (empty outside a
// nested parse), so schema.Positional callbacks can resolve bare
// filenames the same way -F resolves nested command files.
func (l *Loader) CurrentBaseDir() string { return l.top().baseDir }

// Load begins loading the top-level command file referenced on the
// original process argv (e.g. "-f build.f").
func (l *Loader) Load(path string, relativeToFile bool) error {
	return l.include(path, relativeToFile)
}

func (l *Loader) include(path string, relativeToFile bool) error {
	cur := l.top()
	if cur.depth >= l.MaxDepth {
		l.AnyFailedLoads = true
		return base.MakeError("command file inclusion exceeds max-include-depth (%d): %q", l.MaxDepth, path)
	}

	resolved := path
	if cur.baseDir != "" && !filepath.IsAbs(path) {
		resolved = filepath.Join(cur.baseDir, path)
	}
	canonical, err := filepath.Abs(resolved)
	if err != nil {
		l.AnyFailedLoads = true
		return base.MakeError("unable to find or open file %q", path)
	}

	raw, err := os.ReadFile(canonical)
	if err != nil {
		l.AnyFailedLoads = true
		return base.MakeError("unable to find or open file %q", path)
	}
	// strip a single trailing sentinel byte some vendor writers append.
	if n := len(raw); n > 0 && raw[n-1] == 0 {
		raw = raw[:n-1]
	}
	if l.ResponseEncoding != "utf8" {
		raw = stripBOM(raw)
	}

	nextBaseDir := cur.baseDir
	if relativeToFile {
		nextBaseDir = filepath.Dir(canonical)
	}
	base.LogTrace(LogCmdFile, "loading %q (relativeToFile=%v, depth=%d)", canonical, relativeToFile, cur.depth+1)

	l.stack = append(l.stack, frame{baseDir: nextBaseDir, depth: cur.depth + 1})
	defer func() { l.stack = l.stack[:len(l.stack)-1] }()

	nested := option.NewParser(l.schema, option.ParseOptions{
		ExpandEnvVars:     true,
		IgnoreProgramName: false, // a command file has no leading program name
		SupportComments:   true,
		IgnoreDuplicates:  true,
	})
	if perr := nested.Parse(string(raw)); perr != nil {
		l.AnyFailedLoads = true
		return perr
	}
	if errs := nested.Errors(); len(errs) > 0 {
		l.AnyFailedLoads = true
		l.errs = append(l.errs, errs...)
	}
	return nil
}

// Errors returns every error collected across all nested command-file
// parses triggered by -f/-F callbacks, to be merged into the outer
// parser's error list.
func (l *Loader) Errors() []error { return l.errs }
