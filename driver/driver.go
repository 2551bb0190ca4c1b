// Package driver implements the three top-level entry points a command
// line invocation resolves to after option parsing and validation:
// preprocess-only, report-macros, and parse-and-compile. Each composes
// the source manager/loader, the preprocessor, and (parse-and-compile
// only) the parser and compilation binder, then renders its result to
// the output channels documented for it (stdout for data, stderr for
// diagnostics).
//
// Grounded on Build.go's LaunchCommand orchestration shape (init ambient
// services, run, flush) and app/App.go's WithCommandEnv (benchmarked
// phase timing, deferred profiling/trace flush), adapted from "launch a
// persisted build command" to "run one compiler-driver mode and report
// success".
package driver

import (
	"fmt"
	"io"

	"github.com/svfront/driver/compilation"
	"github.com/svfront/driver/diag"
	"github.com/svfront/driver/internal/base"
	"github.com/svfront/driver/optionbag"
	"github.com/svfront/driver/parser"
	"github.com/svfront/driver/preprocess"
	"github.com/svfront/driver/source"
)

var LogDriver = base.NewLogCategory("driver")

// PreprocessArgs bundles RunPreprocessor's mode-specific knobs
// (includeComments, includeDirectives, obfuscate, fixedSeed), collected
// into a struct since Go has no named positional arguments.
type PreprocessArgs struct {
	IncludeComments   bool
	IncludeDirectives bool
	Obfuscate         bool
	FixedSeed         bool
}

func newPreprocessor(bag *optionbag.OptionBag, manager *source.Manager, engine *diag.Engine, args PreprocessArgs) *preprocess.Preprocessor {
	ignore := map[string]bool{}
	for _, d := range bag.Preprocessor.IgnoreDirectives {
		ignore[d] = true
	}
	p := preprocess.NewPreprocessor(preprocess.Options{
		IncludeComments:   args.IncludeComments,
		IncludeDirectives: args.IncludeDirectives,
		Obfuscate:         args.Obfuscate,
		FixedSeed:         args.FixedSeed,
		MaxIncludeDepth:   bag.Preprocessor.MaxIncludeDepth,
		IgnoreDirectives:  ignore,
		Engine:            engine,
	}, manager)
	for _, name := range bag.Preprocessor.DefineOrder {
		p.Predefine(name, bag.Preprocessor.Defines[name])
	}
	for _, name := range bag.Preprocessor.Undefines {
		p.Undefine(name)
	}
	return p
}

// RunPreprocessor produces a single expanded text stream to stdout.
// Diagnostics issued while preprocessing are rendered to stderr as they
// occur (engine.Out), but the text stream itself is withheld — never
// written to stdout — if any diagnostic reached error severity, matching
// the documented "buffered, all-or-nothing" output contract.
func RunPreprocessor(bag *optionbag.OptionBag, manager *source.Manager, loader *source.Loader, engine *diag.Engine, stdout io.Writer, args PreprocessArgs) bool {
	buffers := loader.LoadSources()
	if loader.AnyLoadErrors() {
		return false
	}

	p := newPreprocessor(bag, manager, engine, args)
	tokens, err := p.Run(buffers)
	if err != nil {
		fmt.Fprintln(engine.Out, err)
		return false
	}
	if engine.ErrorCount() > 0 {
		return false
	}

	io.WriteString(stdout, preprocess.Render(tokens, args.IncludeComments))
	return true
}

// RunMacroReport runs the preprocessor to end-of-file solely to populate
// the macro table, then prints each still-defined macro's signature and
// body, in first-definition order, to stdout.
func RunMacroReport(bag *optionbag.OptionBag, manager *source.Manager, loader *source.Loader, engine *diag.Engine, stdout io.Writer) bool {
	buffers := loader.LoadSources()
	if loader.AnyLoadErrors() {
		return false
	}

	p := newPreprocessor(bag, manager, engine, PreprocessArgs{IncludeDirectives: true})
	if _, err := p.Run(buffers); err != nil {
		fmt.Fprintln(engine.Out, err)
		return false
	}
	if engine.ErrorCount() > 0 {
		return false
	}

	macros := p.Macros()
	for _, name := range p.MacroOrder() {
		m, live := macros[name]
		if !live {
			continue
		}
		fmt.Fprintf(stdout, "%s%s\n", m.Signature(), m.BodyText())
	}
	return true
}

// RunParseAndCompile preprocesses and parses every source file across
// the loader's worker pool, binds the resulting trees into a
// compilation, resolves top-level instances, and prints the build
// summary. Per-file preprocessing and parsing both run inside the same
// worker-pool task (parallelism stays confined to the parse fan-out):
// each file gets its own Preprocessor seeded with the command line's
// macro state, since cross-file macro visibility is part of the full
// elaboration this driver explicitly stands in for rather than
// implements. Each task issues diagnostics into its own sink, and the
// driver replays the sinks into engine in load order, so engine has a
// single writer; a file whose preprocessing fails contributes no replayed
// diagnostics.
func RunParseAndCompile(bag *optionbag.OptionBag, manager *source.Manager, loader *source.Loader, engine *diag.Engine, stdout io.Writer, quiet bool) bool {
	type parsed struct {
		unit compilation.Unit
		sink *diag.Engine
	}

	results := loader.LoadAndParseSources(bag.Source.Threads, func(buf *source.Buffer) (any, error) {
		sink := diag.NewEngine(io.Discard, engine.Table)
		sink.ErrorLimit = engine.ErrorLimit
		p := newPreprocessor(bag, manager, sink, PreprocessArgs{IncludeDirectives: false})
		tokens, err := p.Run([]*source.Buffer{buf})
		if err != nil {
			return nil, err
		}
		tree := parser.Parse(buf.Path, tokens, sink)
		return parsed{unit: compilation.Unit{Path: buf.Path, Library: buf.Library, Tree: tree}, sink: sink}, nil
	})
	for _, r := range results {
		if r != nil {
			for _, d := range r.(parsed).sink.Issued() {
				engine.Issue(d)
			}
		}
	}
	// AnyLoadErrors reflects filesystem/`include failures the parse
	// callback returned an error for; a file that merely failed to parse
	// still produced a (partial) *parser.Tree and reported its failure
	// through its sink, so it does not short-circuit compilation here.
	if loader.AnyLoadErrors() {
		return false
	}

	units := make([]compilation.Unit, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		units = append(units, r.(parsed).unit)
	}

	comp := compilation.CreateCompilation(units, bag.Source.SingleUnit, engine)
	comp.ResolveTops(bag.Compilation.Top, bag.Compilation.IgnoreUnknownModules, engine)
	compilation.ReportCompilation(comp, engine, quiet, func(format string, a ...interface{}) {
		fmt.Fprintf(stdout, format, a...)
	})

	return engine.ErrorCount() == 0
}
