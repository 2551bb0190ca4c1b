package diag

import (
	"bytes"
	"testing"
)

func TestMandatoryOverridesAppliedRegardlessOfCompat(t *testing.T) {
	table := NewTable()
	if got := table.Severity("DuplicateDefinition"); got != Error {
		t.Fatalf("DuplicateDefinition = %v, want Error", got)
	}
	if got := table.Severity("BadProceduralForce"); got != Error {
		t.Fatalf("BadProceduralForce = %v, want Error", got)
	}
}

func TestVcsCompatIgnoresConversionDiagnostics(t *testing.T) {
	table := NewTable()
	table.SetCompat(true)
	table.SetDefaultWarnings()
	if got := table.Severity("ImplicitConvert"); got != Ignored {
		t.Fatalf("ImplicitConvert under compat=vcs = %v, want Ignored", got)
	}
}

func TestNonCompatPromotesOutOfBoundsDiagnostics(t *testing.T) {
	table := NewTable()
	table.SetCompat(false)
	table.SetDefaultWarnings()
	for _, kind := range []Kind{"IndexOOB", "RangeOOB", "RangeWidthOOB", "ImplicitNamedPortTypeMismatch", "SplitDistWeightOp"} {
		if got := table.Severity(kind); got != Error {
			t.Fatalf("%s = %v, want Error under non-compat defaults", kind, got)
		}
	}
}

func TestApplyingCompatTwiceIsIdempotent(t *testing.T) {
	a := NewTable()
	a.SetCompat(true)
	a.SetDefaultWarnings()

	b := NewTable()
	b.SetCompat(true)
	b.SetDefaultWarnings()
	b.SetCompat(true)
	b.SetDefaultWarnings()

	for _, kind := range append(a.SortedKinds(), b.SortedKinds()...) {
		if a.Severity(kind) != b.Severity(kind) {
			t.Fatalf("severity for %s diverged after reapplying compat: %v vs %v", kind, a.Severity(kind), b.Severity(kind))
		}
	}
}

func TestUserWarningOptionsOverrideEverythingElse(t *testing.T) {
	table := NewTable()
	table.SetCompat(true)
	table.SetDefaultWarnings() // ImplicitConvert -> Ignored under vcs compat

	if errs := table.SetWarningOptions([]string{"error=ImplicitConvert"}); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := table.Severity("ImplicitConvert"); got != Error {
		t.Fatalf("ImplicitConvert after user -Werror= override = %v, want Error (user options take final precedence)", got)
	}
}

func TestSetWarningOptionsNoPrefixIgnores(t *testing.T) {
	table := NewTable()
	table.SetWarningOptions([]string{"no-DuplicateDefinition"})
	if got := table.Severity("DuplicateDefinition"); got != Ignored {
		t.Fatalf("DuplicateDefinition after -Wno- override = %v, want Ignored", got)
	}
}

func TestEngineErrorLimitStopsIssuing(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable()
	engine := NewEngine(&buf, table)
	engine.ErrorLimit = 2

	table.SetSeverity("SomeError", Error)
	ok1 := engine.Issue(Diagnostic{Kind: "SomeError", Message: "first"})
	ok2 := engine.Issue(Diagnostic{Kind: "SomeError", Message: "second"})
	if !ok1 || ok2 {
		t.Fatalf("expected engine to signal stop once error limit (2) is reached: ok1=%v ok2=%v", ok1, ok2)
	}
	if engine.ErrorCount() != 2 {
		t.Fatalf("error count = %d, want 2", engine.ErrorCount())
	}
}

func TestEngineIgnorePathSuppression(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable()
	engine := NewEngine(&buf, table)
	engine.AddIgnorePath("third_party")
	table.SetSeverity("NoisyWarning", Warning)

	engine.Issue(Diagnostic{Kind: "NoisyWarning", Path: "third_party/foo.sv", Message: "noise"})
	if engine.WarningCount() != 0 {
		t.Fatalf("expected suppressed diagnostic not to count, got %d warnings", engine.WarningCount())
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing rendered for a suppressed diagnostic, got %q", buf.String())
	}
}

func TestSummaryPluralization(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable()
	engine := NewEngine(&buf, table)
	table.SetSeverity("K", Error)

	engine.Issue(Diagnostic{Kind: "K", Message: "one"})
	if want := "Build failed: 1 error, 0 warnings"; engine.Summary() != want {
		t.Fatalf("summary = %q, want %q", engine.Summary(), want)
	}
}
