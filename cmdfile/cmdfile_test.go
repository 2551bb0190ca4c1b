package cmdfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/svfront/driver/option"
)

// TestLoaderDashFResolvesRelativeToInvocationDir exercises plain "-f": a
// bare filename inside the command file resolves against the process's
// own working directory, not the command file's directory, since
// relativeToFile is false.
func TestLoaderDashFResolvesRelativeToInvocationDir(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "foo.v"), []byte("module foo; endmodule\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmdPath := filepath.Join(sub, "cmd.f")
	if err := os.WriteFile(cmdPath, []byte("foo.v\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	var loader *Loader
	var resolved []string
	schema := option.NewSchema()
	schema.Positional = func(tok string) error {
		resolved = append(resolved, resolveAgainst(loader.CurrentBaseDir(), tok))
		return nil
	}
	loader = NewLoader(schema, 0)

	if err := loader.Load(cmdPath, false); err != nil {
		t.Fatal(err)
	}
	if loader.AnyFailedLoads {
		t.Fatalf("unexpected failed load: %v", loader.Errors())
	}
	if len(resolved) != 1 {
		t.Fatalf("expected one positional token, got %v", resolved)
	}
	if want := filepath.Join(root, "foo.v"); resolved[0] != want {
		t.Fatalf("foo.v resolved to %q, want %q (bare -f resolves against the invocation directory)", resolved[0], want)
	}
}

// resolveAgainst mirrors how a source loader turns a bare filename token
// plus a command-file base directory into an absolute path: an empty base
// (top-level invocation, or -f rather than -F) falls back to the process's
// own working directory via filepath.Abs.
func resolveAgainst(baseDir, tok string) string {
	if baseDir == "" {
		abs, err := filepath.Abs(tok)
		if err != nil {
			return tok
		}
		return abs
	}
	return filepath.Join(baseDir, tok)
}

// TestLoaderDashCapitalFResolvesRelativeToFileDir: for "-F path/to/cmd.f"
// containing "foo.v", foo.v resolves against path/to/, not the
// invocation directory.
func TestLoaderDashCapitalFResolvesRelativeToFileDir(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "path", "to")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "foo.v"), []byte("module foo; endmodule\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmdPath := filepath.Join(sub, "cmd.f")
	if err := os.WriteFile(cmdPath, []byte("foo.v\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var loader *Loader
	var resolved []string
	schema := option.NewSchema()
	schema.Positional = func(tok string) error {
		resolved = append(resolved, resolveAgainst(loader.CurrentBaseDir(), tok))
		return nil
	}
	loader = NewLoader(schema, 0)

	// Load from an unrelated invocation directory: -F must still resolve
	// foo.v against sub, never against root.
	if err := loader.Load(cmdPath, true); err != nil {
		t.Fatal(err)
	}
	if loader.AnyFailedLoads {
		t.Fatalf("unexpected failed load: %v", loader.Errors())
	}
	if len(resolved) != 1 {
		t.Fatalf("expected one positional token, got %v", resolved)
	}
	if want := filepath.Join(sub, "foo.v"); resolved[0] != want {
		t.Fatalf("foo.v resolved to %q, want %q (-F resolves against the command file's own directory)", resolved[0], want)
	}
}

func TestLoaderRejectsExcessiveDepth(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.f")
	b := filepath.Join(dir, "b.f")
	if err := os.WriteFile(a, []byte("-F "+b+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("-F "+a+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	schema := NewTestSourceSchema(t)
	loader := NewLoader(schema, 4)

	_ = loader.Load(a, true)
	if !loader.AnyFailedLoads {
		t.Fatal("expected depth limit to trip on mutually-recursive command files")
	}
}

func TestLoaderStripsTrailingSentinelByte(t *testing.T) {
	dir := t.TempDir()
	cmdPath := filepath.Join(dir, "cmd.f")
	raw := append([]byte("--single-unit\n"), 0)
	if err := os.WriteFile(cmdPath, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	schema := option.NewSchema()
	single := &option.BoolValue{}
	schema.Register(&option.Entry{Long: "--single-unit", Kind: option.KindScalar, Value: single})
	loader := NewLoader(schema, 0)

	if err := loader.Load(cmdPath, false); err != nil {
		t.Fatal(err)
	}
	if loader.AnyFailedLoads {
		t.Fatalf("unexpected failed load: %v", loader.Errors())
	}
	if !single.V {
		t.Fatal("expected --single-unit to bind despite trailing sentinel byte")
	}
}

// NewTestSourceSchema builds a schema whose only non--f/-F concern is a
// positional callback recording every bare filename token, standing in
// for the real source schema's positional-file handling.
func NewTestSourceSchema(t *testing.T) *option.Schema {
	t.Helper()
	schema := option.NewSchema()
	var seen []string
	schema.Positional = func(tok string) error {
		seen = append(seen, tok)
		return nil
	}
	return schema
}
