// Command svfront is the compilation driver's command-line entry point:
// parse argv and any -f/-F command files against the option schema,
// validate the result into an OptionBag, then dispatch to one of the
// three driver modes. Grounded on cmd/ppb/ppb.go's thin main delegating
// to Build.go's LaunchCommand, adapted from "launch a persisted build
// command" to "run one invocation of this front end and return its exit
// code".
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/svfront/driver/diag"
	"github.com/svfront/driver/driver"
	"github.com/svfront/driver/option"
	"github.com/svfront/driver/optionbag"
	"github.com/svfront/driver/source"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one invocation and returns the process exit code: 0 on a
// successful build (or a successful preprocess/report-macros mode), 1 on
// any option, load, or diagnostic-engine failure.
func run(args []string) int {
	start := time.Now()

	schema := option.NewSchema()
	raw := &optionbag.RawOptions{}
	loader := source.NewLoader(func(err error) {
		fmt.Fprintln(os.Stderr, err)
	})
	cmdLoader := optionbag.Register(schema, raw, 0)

	// A process argv is already shell-split; rejoin it into the single
	// string option.Parser expects so the same quote-aware tokenizer
	// handles both argv and command files. An argument that itself
	// contained a literal space cannot round-trip through this join, the
	// one simplification command-file re-entry does not need to make.
	parser := option.NewParser(schema, option.ParseOptions{ExpandEnvVars: true})
	if err := parser.Parse(strings.Join(args, " ")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if errs := parser.Errors(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return 1
	}
	if len(cmdLoader.Errors()) > 0 {
		for _, e := range cmdLoader.Errors() {
			fmt.Fprintln(os.Stderr, e)
		}
		return 1
	}

	manager := source.NewManager()
	table := diag.NewTable()
	engine := diag.NewEngine(os.Stderr, table)

	bag, errs := optionbag.Validate(raw, optionbag.Services{
		Manager: manager,
		Loader:  loader,
		Table:   table,
		Engine:  engine,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	})
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return 1
	}
	if cmdLoader.AnyFailedLoads {
		return 1
	}

	stop := driver.StartProfiling(raw.Profile.V)
	defer stop()

	var ok bool
	switch {
	case raw.PreprocessMode.V:
		ok = driver.RunPreprocessor(bag, manager, loader, engine, os.Stdout, driver.PreprocessArgs{
			IncludeComments:   raw.IncludeComments.V,
			IncludeDirectives: raw.IncludeDirectives.V,
			Obfuscate:         raw.Obfuscate.V,
			FixedSeed:         raw.FixedSeed.V,
		})
	case raw.ReportMacrosMode.V:
		ok = driver.RunMacroReport(bag, manager, loader, engine, os.Stdout)
	default:
		ok = driver.RunParseAndCompile(bag, manager, loader, engine, os.Stdout, raw.Quiet.V)
	}

	if !raw.Quiet.V {
		fmt.Fprintln(os.Stderr, engine.Summary())
	}
	if raw.Summary.V {
		driver.PrintSummary(os.Stdout, loader.LoadSources(), bag.Source.Threads, time.Since(start))
	}
	if raw.DumpDiagnostics.V != "" {
		if err := driver.DumpDiagnosticsJSON(raw.DumpDiagnostics.V, table, engine); err != nil {
			fmt.Fprintln(os.Stderr, err)
			ok = false
		}
	}

	if !ok || engine.ErrorCount() > 0 {
		return 1
	}
	return 0
}
