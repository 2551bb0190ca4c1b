package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/svfront/driver/diag"
	"github.com/svfront/driver/optionbag"
	"github.com/svfront/driver/source"
)

func newTestEngine() (*diag.Table, *diag.Engine, *bytes.Buffer) {
	var stderr bytes.Buffer
	table := diag.NewTable()
	engine := diag.NewEngine(&stderr, table)
	return table, engine, &stderr
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Mirrors the "-I inc src.v with an `include resolving to a one-module
// file" scenario: exactly one top instance is printed and the build
// succeeds.
func TestRunParseAndCompileResolvesIncludedModuleAndReportsSuccess(t *testing.T) {
	dir := t.TempDir()
	incDir := filepath.Join(dir, "inc")
	if err := os.Mkdir(incDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, incDir, "x.vh", "module m; endmodule\n")
	src := writeFile(t, dir, "src.v", "`include \"x.vh\"\n")

	manager := source.NewManager()
	manager.AddUserDirectory(incDir)
	loader := source.NewLoader(func(error) {})
	loader.AddFiles(src)

	_, engine, _ := newTestEngine()
	bag := &optionbag.OptionBag{Source: optionbag.SourceOptions{Threads: 1}}

	var stdout bytes.Buffer
	ok := RunParseAndCompile(bag, manager, loader, engine, &stdout, false)
	if !ok {
		t.Fatalf("expected success, stdout=%q", stdout.String())
	}
	if got := stdout.String(); !bytes.Contains(stdout.Bytes(), []byte("m")) {
		t.Fatalf("expected top instance %q in output, got %q", "m", got)
	}
	if engine.ErrorCount() != 0 || engine.WarningCount() != 0 {
		t.Fatalf("expected 0 errors/0 warnings, got %d/%d", engine.ErrorCount(), engine.WarningCount())
	}
}

// Every file with an unterminated module declaration fails to parse; this
// is the minimal grammar's stand-in for "many syntactically invalid
// files". Each failure is issued through the diagnostic engine rather
// than the source loader's filesystem-error path, so compilation and
// reporting still run to completion and the engine's counts (not just a
// false return) reflect every one of them, not just the first.
func TestRunParseAndCompileFailsOnEverySyntaxError(t *testing.T) {
	dir := t.TempDir()
	const fileCount = 50
	loader := source.NewLoader(func(error) {})
	for i := 0; i < fileCount; i++ {
		path := writeFile(t, dir, filename(i), "module broken; // missing endmodule\n")
		loader.AddFiles(path)
	}

	manager := source.NewManager()
	_, engine, _ := newTestEngine()
	bag := &optionbag.OptionBag{Source: optionbag.SourceOptions{Threads: 4}}

	var stdout bytes.Buffer
	ok := RunParseAndCompile(bag, manager, loader, engine, &stdout, false)
	if ok {
		t.Fatal("expected failure when every file has an unterminated module")
	}
	if loader.AnyLoadErrors() {
		t.Fatal("syntax errors must not be reported through the loader's load-error path")
	}
	if engine.ErrorCount() != fileCount {
		t.Fatalf("expected %d errors reported through the engine, got %d", fileCount, engine.ErrorCount())
	}
	if got, want := engine.Summary(), "Build failed: 50 errors, 0 warnings"; got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}
}

func filename(i int) string {
	return "broken" + string(rune('a'+i%26)) + string(rune('0'+i/26)) + ".v"
}

func TestRunPreprocessorWithholdsOutputOnError(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.v", "`include \"missing.vh\"\n")

	manager := source.NewManager()
	loader := source.NewLoader(func(error) {})
	loader.AddFiles(src)

	_, engine, _ := newTestEngine()
	bag := &optionbag.OptionBag{}

	var stdout bytes.Buffer
	ok := RunPreprocessor(bag, manager, loader, engine, &stdout, PreprocessArgs{})
	if ok {
		t.Fatal("expected failure for an unresolvable `include")
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no stdout output on failure, got %q", stdout.String())
	}
}

func TestRunMacroReportListsOnlyStillDefinedMacros(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.v", "`define A 1\n`define B 2\n`undef A\n")

	manager := source.NewManager()
	loader := source.NewLoader(func(error) {})
	loader.AddFiles(src)

	_, engine, _ := newTestEngine()
	bag := &optionbag.OptionBag{}

	var stdout bytes.Buffer
	ok := RunMacroReport(bag, manager, loader, engine, &stdout)
	if !ok {
		t.Fatalf("expected success, stdout=%q", stdout.String())
	}
	out := stdout.String()
	if bytes.Contains([]byte(out), []byte("A ")) {
		t.Fatalf("expected undefined macro A to be absent from report, got %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("B")) {
		t.Fatalf("expected macro B in report, got %q", out)
	}
}
