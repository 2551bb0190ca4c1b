package preprocess

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/svfront/driver/diag"
	"github.com/svfront/driver/source"
	"github.com/svfront/driver/syntax"
)

func bufferOf(path, text string) *source.Buffer {
	return &source.Buffer{Path: path, Text: []byte(text)}
}

func tokenTexts(tokens []syntax.Token) []string {
	var out []string
	for _, tok := range tokens {
		if tok.Kind == syntax.TokEOF || tok.Kind == syntax.TokNewline {
			continue
		}
		out = append(out, tok.Text)
	}
	return out
}

func TestRunStripsDirectivesByDefault(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	out, err := p.Run([]*source.Buffer{bufferOf("a.v", "`timescale 1ns/1ps\nmodule m; endmodule\n")})
	if err != nil {
		t.Fatal(err)
	}
	got := tokenTexts(out)
	want := []string{"module", "m", ";", "endmodule"}
	if !equalSlices(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestRunExpandsParameterlessMacro(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	out, err := p.Run([]*source.Buffer{bufferOf("a.v", "`define WIDTH 8\nwire [`WIDTH-1:0] x;\n")})
	if err != nil {
		t.Fatal(err)
	}
	got := tokenTexts(out)
	want := []string{"wire", "[", "8", "-", "1", ":", "0", "]", "x", ";"}
	if !equalSlices(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestRunExpandsParameterizedMacro(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	out, err := p.Run([]*source.Buffer{bufferOf("a.v", "`define ADD(a, b) a + b\nwire [`ADD(x, 1)-1:0] v;\n")})
	if err != nil {
		t.Fatal(err)
	}
	got := tokenTexts(out)
	want := []string{"wire", "[", "x", "+", "1", "-", "1", ":", "0", "]", "v", ";"}
	if !equalSlices(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestRunUndefRemovesMacro(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	out, err := p.Run([]*source.Buffer{bufferOf("a.v", "`define FOO 1\n`undef FOO\n`FOO\n")})
	if err != nil {
		t.Fatal(err)
	}
	got := tokenTexts(out)
	want := []string{}
	if !equalSlices(got, want) {
		t.Fatalf("tokens = %v, want %v (an undef'd `FOO is an unrecognized directive, dropped by default)", got, want)
	}
}

func TestRunIfdefTakesTrueBranch(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	src := "`define FOO\n`ifdef FOO\nwire a;\n`else\nwire b;\n`endif\n"
	out, err := p.Run([]*source.Buffer{bufferOf("a.v", src)})
	if err != nil {
		t.Fatal(err)
	}
	got := tokenTexts(out)
	want := []string{"wire", "a", ";"}
	if !equalSlices(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestRunIfndefTakesElseBranchWhenDefined(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	src := "`define FOO\n`ifndef FOO\nwire a;\n`else\nwire b;\n`endif\n"
	out, err := p.Run([]*source.Buffer{bufferOf("a.v", src)})
	if err != nil {
		t.Fatal(err)
	}
	got := tokenTexts(out)
	want := []string{"wire", "b", ";"}
	if !equalSlices(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestRunNestedConditionalsRespectParentInactivity(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	src := "`ifdef NOPE\n`ifdef ALSO_NOPE\nwire never;\n`endif\nwire also_never;\n`endif\nwire seen;\n"
	out, err := p.Run([]*source.Buffer{bufferOf("a.v", src)})
	if err != nil {
		t.Fatal(err)
	}
	got := tokenTexts(out)
	want := []string{"wire", "seen", ";"}
	if !equalSlices(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestRunIncludeSplicesResolvedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "child.vh"), []byte("wire included;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mgr := source.NewManager()
	mgr.AddUserDirectory(dir)
	p := NewPreprocessor(Options{}, mgr)
	out, err := p.Run([]*source.Buffer{bufferOf("top.v", "`include \"child.vh\"\nwire after;\n")})
	if err != nil {
		t.Fatal(err)
	}
	got := tokenTexts(out)
	want := []string{"wire", "included", ";", "wire", "after", ";"}
	if !equalSlices(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestRunIncludeMissingFileIsError(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	_, err := p.Run([]*source.Buffer{bufferOf("top.v", "`include \"nope.vh\"\n")})
	if err == nil {
		t.Fatal("expected an error for an unresolvable `include path")
	}
}

func TestRunMultipleBuffersEmitInOriginalOrder(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	out, err := p.Run([]*source.Buffer{
		bufferOf("a.v", "wire a;\n"),
		bufferOf("b.v", "wire b;\n"),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := tokenTexts(out)
	want := []string{"wire", "a", ";", "wire", "b", ";"}
	if !equalSlices(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestRunMacroBodySurvivesArenaRelease(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	if _, err := p.Run([]*source.Buffer{bufferOf("a.v", "`define A 1\n`define B 2\n`define C 3\n")}); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"A", "B", "C"} {
		m, ok := p.Macros()[name]
		if !ok {
			t.Fatalf("macro %s missing", name)
		}
		if len(m.Body) != 1 {
			t.Fatalf("macro %s body = %+v, want a single token", name, m.Body)
		}
	}
	// A second Run reuses the arena; earlier macro bodies must not have
	// been silently overwritten by its allocations.
	if _, err := p.Run([]*source.Buffer{bufferOf("b.v", "`define D 4\n`define E 5\n")}); err != nil {
		t.Fatal(err)
	}
	if p.Macros()["A"].BodyText() != " 1" {
		t.Fatalf("macro A body = %q, want %q (must survive the arena release from the prior Run)", p.Macros()["A"].BodyText(), " 1")
	}
}

func TestRunObfuscateIsDeterministicWithFixedSeed(t *testing.T) {
	src := "module top; wire a; wire b; endmodule\n"
	out1, err := NewPreprocessor(Options{Obfuscate: true, FixedSeed: true}, source.NewManager()).Run([]*source.Buffer{bufferOf("m.v", src)})
	if err != nil {
		t.Fatal(err)
	}
	out2, err := NewPreprocessor(Options{Obfuscate: true, FixedSeed: true}, source.NewManager()).Run([]*source.Buffer{bufferOf("m.v", src)})
	if err != nil {
		t.Fatal(err)
	}
	if !equalSlices(tokenTexts(out1), tokenTexts(out2)) {
		t.Fatalf("fixed-seed obfuscation runs diverged: %v vs %v", tokenTexts(out1), tokenTexts(out2))
	}
}

func TestRunObfuscatePreservesVectorLiteralDigits(t *testing.T) {
	src := "wire [3:0] a = 4'hF;\n"
	out, err := NewPreprocessor(Options{Obfuscate: true, FixedSeed: true}, source.NewManager()).Run([]*source.Buffer{bufferOf("m.v", src)})
	if err != nil {
		t.Fatal(err)
	}
	got := tokenTexts(out)
	var sawBase, sawDigit bool
	for _, tok := range got {
		if tok == "4'h" {
			sawBase = true
		}
		if tok == "F" {
			sawDigit = true
		}
	}
	if !sawBase || !sawDigit {
		t.Fatalf("tokens = %v, want the 4'h base and F digit to survive obfuscation untouched", got)
	}
}

func TestMacroSignaturePreservesFormalArgumentSpacing(t *testing.T) {
	p := NewPreprocessor(Options{}, source.NewManager())
	if _, err := p.Run([]*source.Buffer{bufferOf("a.v", "`define FOO(a,   b) a + b\n")}); err != nil {
		t.Fatal(err)
	}
	if got, want := p.Macros()["FOO"].Signature(), "FOO(a,   b)"; got != want {
		t.Fatalf("signature = %q, want %q (original argument spacing must survive)", got, want)
	}
}

func TestDuplicateDefinitionStopsAtErrorLimit(t *testing.T) {
	var buf bytes.Buffer
	table := diag.NewTable()
	engine := diag.NewEngine(&buf, table)
	engine.ErrorLimit = 1

	src := "`define A 1\n`define A 2\n`define A 3\nwire w;\n"
	p := NewPreprocessor(Options{Engine: engine}, source.NewManager())
	out, err := p.Run([]*source.Buffer{bufferOf("a.v", src)})
	if err != nil {
		t.Fatal(err)
	}
	if engine.ErrorCount() != 1 {
		t.Fatalf("error count = %d, want 1 (run must stop issuing past the limit)", engine.ErrorCount())
	}
	if len(tokenTexts(out)) != 0 {
		t.Fatalf("tokens = %v, want none (run stopped before reaching %q)", tokenTexts(out), "wire w;")
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
