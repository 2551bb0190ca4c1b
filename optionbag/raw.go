package optionbag

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/svfront/driver/cmdfile"
	"github.com/svfront/driver/internal/base"
	"github.com/svfront/driver/option"
)

// RawOptions is the full set of scalar/list/set destinations every
// recognized flag binds to, registered on a schema up front so
// Validate has a single typed struct to read from instead of walking
// schema.Entries() by name.
type RawOptions struct {
	// Include/library paths.
	IncludeDirs    option.StringSetValue
	SystemDirs     option.StringSetValue
	LibDirs        option.StringSetValue
	LibExts        option.StringSetValue
	LibFiles       option.StringListValue
	ExcludeExt     option.StringSetValue

	// Preprocessor.
	Defines             option.StringListValue
	Undefines           option.StringListValue
	MaxIncludeDepth     option.IntValue
	LibrariesInheritMacros option.BoolValue
	IgnoreDirective     option.StringSetValue

	// Parser/threads.
	MaxParseDepth  option.IntValue
	MaxLexerErrors option.IntValue
	Threads        option.IntValue

	// Compilation bounds.
	MaxHierarchyDepth     option.IntValue
	MaxGenerateSteps      option.IntValue
	MaxConstexprDepth     option.IntValue
	MaxConstexprSteps     option.IntValue
	ConstexprBacktrace    option.IntValue
	MaxInstanceArray      option.IntValue

	// Semantics knobs.
	Compat                 option.StringValue
	Timing                 option.StringValue
	TimescaleRaw           option.StringValue
	AllowUseBeforeDeclare  option.BoolValue
	AllowUseBeforeDeclareSet bool
	IgnoreUnknownModules   option.BoolValue
	IgnoreUnknownModulesSet bool
	RelaxEnumConversions   option.BoolValue
	RelaxEnumConversionsSet bool
	AllowHierarchicalConst option.BoolValue
	AllowHierarchicalConstSet bool
	AllowDupInitialDrivers option.BoolValue
	StrictDriverChecking   option.BoolValue
	LintOnly               option.BoolValue
	Top                    option.StringListValue
	ParamOverrides         option.StringListValue

	// Diagnostics.
	WarningOptions        option.StringListValue
	ColorDiagnostics       option.StringValue
	DiagColumn            option.BoolValue
	DiagLocation          option.BoolValue
	DiagSource            option.BoolValue
	DiagOptionName        option.BoolValue
	DiagIncludeStack      option.BoolValue
	DiagMacroExpansion    option.BoolValue
	DiagHierarchy         option.BoolValue
	ErrorLimit            option.IntValue
	SuppressWarnings      option.StringListValue
	SuppressMacroWarnings option.StringListValue

	SingleUnit option.BoolValue

	// Ambient (expansion).
	DiagProfile     option.StringValue
	Profile         option.BoolValue
	Summary         option.BoolValue
	DumpDiagnostics option.StringValue
	ResponseEncoding option.StringValue

	// Driver mode selection; parse-and-compile is the default when neither
	// is set.
	PreprocessMode    option.BoolValue
	ReportMacrosMode  option.BoolValue
	IncludeComments   option.BoolValue
	IncludeDirectives option.BoolValue
	Obfuscate         option.BoolValue
	FixedSeed         option.BoolValue
	Quiet             option.BoolValue

	Positionals []string
}

// boolDefault wires a BoolValue pre-set to true, since the diagnostic
// display flags default to true.
func boolDefault(v *option.BoolValue, def bool) *option.BoolValue {
	v.V = def
	return v
}

// trackedBool wraps a BoolValue and additionally records whether the user
// ever explicitly set it, for the handful of flags whose default depends
// on whether the user touched them at all (the vcs compat profile and the
// lint-only-implies-ignore-unknown-modules rule only kick in when the
// fine-grained flag was left untouched).
type trackedBool struct {
	dest *option.BoolValue
	set  *bool
}

func (t *trackedBool) IsBoolFlag() bool  { return true }
func (t *trackedBool) String() string    { return t.dest.String() }
func (t *trackedBool) Set(s string) error {
	*t.set = true
	return t.dest.Set(s)
}

func trackedBoolEntry(long string, dest *option.BoolValue, setFlag *bool) *option.Entry {
	return &option.Entry{Long: long, Kind: option.KindScalar, Value: &trackedBool{dest: dest, set: setFlag}}
}

// responseEncodingValue additionally threads --response-encoding straight
// onto the command-file loader the moment it is parsed, since whether a
// later -f/-F include strips a BOM depends on this flag's value at the
// point that include is processed, not at the end of the whole parse.
type responseEncodingValue struct {
	dest   *option.StringValue
	loader *cmdfile.Loader
}

func (v *responseEncodingValue) String() string { return v.dest.String() }
func (v *responseEncodingValue) Set(s string) error {
	if err := v.dest.Set(s); err != nil {
		return err
	}
	v.loader.ResponseEncoding = s
	return nil
}

// Register binds every recognized long/short/vendor option onto schema,
// including -f/-F (via cmdfile.NewLoader) and the positional file
// callback. Returns the loader so the driver can read AnyFailedLoads and
// merge its errors.
func Register(schema *option.Schema, raw *RawOptions, maxIncludeDepth int) *cmdfile.Loader {
	loader := cmdfile.NewLoader(schema, maxIncludeDepth)

	reg := func(e *option.Entry) { schema.Register(e) }

	reg(&option.Entry{Long: "--include-directory", Short: "-I", Vendor: "+incdir", Kind: option.KindSet, IsFileName: true, Value: &raw.IncludeDirs, Help: "add a user include directory"})
	reg(&option.Entry{Long: "--isystem", Kind: option.KindSet, IsFileName: true, Value: &raw.SystemDirs, Help: "add a system include directory"})
	reg(&option.Entry{Long: "--libdir", Short: "-y", Kind: option.KindSet, IsFileName: true, Value: &raw.LibDirs, Help: "add a library search directory"})
	reg(&option.Entry{Long: "--libext", Short: "-Y", Kind: option.KindSet, Value: &raw.LibExts, Help: "add a library file extension"})
	reg(&option.Entry{Short: "-v", Kind: option.KindList, IsFileName: true, Value: &raw.LibFiles, Help: "add a library file"})
	reg(&option.Entry{Long: "--exclude-ext", Kind: option.KindSet, Value: &raw.ExcludeExt, Help: "exclude positional files with this extension"})

	reg(&option.Entry{Long: "--define-macro", Short: "-D", Vendor: "+define", Kind: option.KindList, Value: &raw.Defines, Help: "define NAME or NAME=VALUE"})
	reg(&option.Entry{Long: "--undefine-macro", Short: "-U", Kind: option.KindList, Value: &raw.Undefines, Help: "undefine NAME"})
	reg(&option.Entry{Long: "--max-include-depth", Kind: option.KindScalar, Value: &raw.MaxIncludeDepth, Help: "maximum nested `include depth"})
	reg(&option.Entry{Long: "--libraries-inherit-macros", Kind: option.KindScalar, Value: &raw.LibrariesInheritMacros, Help: "library files see macros defined in the main unit"})
	reg(&option.Entry{Long: "--ignore-directive", Kind: option.KindSet, Value: &raw.IgnoreDirective, Help: "pass this directive through unexpanded"})

	reg(&option.Entry{Long: "--cmd-ignore", Kind: option.KindCallback, Help: "VENDOR,N: ignore a vendor command and N following tokens", Callback: func(v string) error { return parseCmdIgnore(schema, v) }})
	reg(&option.Entry{Long: "--cmd-rename", Kind: option.KindCallback, Help: "VENDOR,SLANG: rewrite a vendor command to its canonical form", Callback: func(v string) error { return parseCmdRename(schema, v) }})

	reg(&option.Entry{Long: "--max-parse-depth", Kind: option.KindScalar, Value: &raw.MaxParseDepth, Help: "maximum parser recursion depth"})
	reg(&option.Entry{Long: "--max-lexer-errors", Kind: option.KindScalar, Value: &raw.MaxLexerErrors, Help: "maximum lexer error count before abort"})
	reg(&option.Entry{Long: "--threads", Short: "-j", Kind: option.KindScalar, Value: &raw.Threads, Help: "parse worker thread count (0 or 1 = parse serially)"})

	reg(&option.Entry{Long: "--max-hierarchy-depth", Kind: option.KindScalar, Value: &raw.MaxHierarchyDepth, Help: "maximum instance nesting depth"})
	reg(&option.Entry{Long: "--max-generate-steps", Kind: option.KindScalar, Value: &raw.MaxGenerateSteps, Help: "maximum generate-block iteration count"})
	reg(&option.Entry{Long: "--max-constexpr-depth", Kind: option.KindScalar, Value: &raw.MaxConstexprDepth, Help: "maximum constant-expression recursion depth"})
	reg(&option.Entry{Long: "--max-constexpr-steps", Kind: option.KindScalar, Value: &raw.MaxConstexprSteps, Help: "maximum constant-expression evaluation steps"})
	reg(&option.Entry{Long: "--constexpr-backtrace-limit", Kind: option.KindScalar, Value: &raw.ConstexprBacktrace, Help: "maximum constexpr backtrace frames reported"})
	reg(&option.Entry{Long: "--max-instance-array", Kind: option.KindScalar, Value: &raw.MaxInstanceArray, Help: "maximum instance array size"})

	reg(&option.Entry{Long: "--compat", Kind: option.KindScalar, Value: &raw.Compat, Help: "compatibility profile (vcs)"})
	reg(&option.Entry{Long: "--timing", Short: "-T", Kind: option.KindScalar, Value: &raw.Timing, Help: "min|typ|max delay selection"})
	reg(&option.Entry{Long: "--timescale", Kind: option.KindScalar, Value: &raw.TimescaleRaw, Help: "default time scale BASE/PRECISION"})
	reg(trackedBoolEntry("--allow-use-before-declare", &raw.AllowUseBeforeDeclare, &raw.AllowUseBeforeDeclareSet))
	reg(trackedBoolEntry("--ignore-unknown-modules", &raw.IgnoreUnknownModules, &raw.IgnoreUnknownModulesSet))
	reg(trackedBoolEntry("--relax-enum-conversions", &raw.RelaxEnumConversions, &raw.RelaxEnumConversionsSet))
	reg(trackedBoolEntry("--allow-hierarchical-const", &raw.AllowHierarchicalConst, &raw.AllowHierarchicalConstSet))
	reg(&option.Entry{Long: "--allow-dup-initial-drivers", Kind: option.KindScalar, Value: &raw.AllowDupInitialDrivers})
	reg(&option.Entry{Long: "--strict-driver-checking", Kind: option.KindScalar, Value: &raw.StrictDriverChecking})
	reg(&option.Entry{Long: "--lint-only", Kind: option.KindScalar, Value: &raw.LintOnly})
	reg(&option.Entry{Long: "--top", Kind: option.KindList, Value: &raw.Top, Help: "top-level module name (repeatable)"})
	reg(&option.Entry{Short: "-G", Kind: option.KindList, Value: &raw.ParamOverrides, Help: "NAME=VALUE top-level parameter override"})

	reg(&option.Entry{Short: "-W", Kind: option.KindList, Value: &raw.WarningOptions, Help: "warning-option directive"})
	reg(&option.Entry{Long: "--color-diagnostics", Kind: option.KindScalar, Value: &raw.ColorDiagnostics, Help: "auto|always|never"})
	reg(&option.Entry{Long: "--diag-column", Kind: option.KindScalar, Value: boolDefault(&raw.DiagColumn, true)})
	reg(&option.Entry{Long: "--diag-location", Kind: option.KindScalar, Value: boolDefault(&raw.DiagLocation, true)})
	reg(&option.Entry{Long: "--diag-source", Kind: option.KindScalar, Value: boolDefault(&raw.DiagSource, true)})
	reg(&option.Entry{Long: "--diag-option", Kind: option.KindScalar, Value: boolDefault(&raw.DiagOptionName, true)})
	reg(&option.Entry{Long: "--diag-include-stack", Kind: option.KindScalar, Value: boolDefault(&raw.DiagIncludeStack, true)})
	reg(&option.Entry{Long: "--diag-macro-expansion", Kind: option.KindScalar, Value: boolDefault(&raw.DiagMacroExpansion, true)})
	reg(&option.Entry{Long: "--diag-hierarchy", Kind: option.KindScalar, Value: boolDefault(&raw.DiagHierarchy, true)})
	raw.ErrorLimit.V = 20
	reg(&option.Entry{Long: "--error-limit", Kind: option.KindScalar, Value: &raw.ErrorLimit, Help: "0 = unlimited"})
	reg(&option.Entry{Long: "--suppress-warnings", Kind: option.KindSet, IsFileName: true, Value: &raw.SuppressWarnings})
	reg(&option.Entry{Long: "--suppress-macro-warnings", Kind: option.KindSet, IsFileName: true, Value: &raw.SuppressMacroWarnings})

	reg(&option.Entry{Long: "--single-unit", Kind: option.KindScalar, Value: &raw.SingleUnit})

	reg(&option.Entry{Long: "--diag-profile", Kind: option.KindScalar, Value: &raw.DiagProfile, Help: "default|strict severity preset"})
	reg(&option.Entry{Long: "--profile", Kind: option.KindScalar, Value: &raw.Profile, Help: "enable pprof CPU profiling of this process"})
	reg(&option.Entry{Long: "--summary", Kind: option.KindScalar, Value: &raw.Summary, Help: "print a post-run timing summary"})
	reg(&option.Entry{Long: "--dump-diagnostics-json", Kind: option.KindScalar, IsFileName: true, Value: &raw.DumpDiagnostics, Help: "write the severity table and diagnostics as JSON to PATH"})
	reg(&option.Entry{Long: "--response-encoding", Kind: option.KindScalar,
		Value: &responseEncodingValue{dest: &raw.ResponseEncoding, loader: loader},
		Help:  "utf8|auto command-file encoding hint"})

	reg(&option.Entry{Long: "--preprocess", Short: "-E", Kind: option.KindScalar, Value: &raw.PreprocessMode, Help: "preprocess-only mode: emit the expanded token stream to stdout"})
	reg(&option.Entry{Long: "--report-macros", Kind: option.KindScalar, Value: &raw.ReportMacrosMode, Help: "report every macro defined by the end of preprocessing"})
	reg(&option.Entry{Long: "--include-comments", Kind: option.KindScalar, Value: &raw.IncludeComments, Help: "preprocess mode: keep comments in the emitted stream"})
	reg(&option.Entry{Long: "--include-directives", Kind: option.KindScalar, Value: &raw.IncludeDirectives, Help: "preprocess mode: pass unrecognized directives through"})
	reg(&option.Entry{Long: "--obfuscate", Kind: option.KindScalar, Value: &raw.Obfuscate, Help: "preprocess mode: rewrite identifiers to opaque strings"})
	reg(&option.Entry{Long: "--fixed-seed", Kind: option.KindScalar, Value: &raw.FixedSeed, Help: "obfuscate with a deterministic seed instead of system entropy"})
	reg(&option.Entry{Long: "--quiet", Short: "-q", Kind: option.KindScalar, Value: &raw.Quiet, Help: "suppress the top-instance list in parse-and-compile mode"})

	schema.Positional = func(tok string) error {
		raw.Positionals = append(raw.Positionals, resolveAgainstBaseDir(loader.CurrentBaseDir(), tok))
		return nil
	}

	return loader
}

// resolveAgainstBaseDir resolves a bare positional filename the same way
// -F resolves nested command files: relative to the command file's own
// directory when one is in effect, relative to the process's working
// directory otherwise. Absolute tokens and tokens with no base pass
// through unchanged.
func resolveAgainstBaseDir(baseDir, tok string) string {
	if baseDir == "" || filepath.IsAbs(tok) {
		return tok
	}
	return filepath.Join(baseDir, tok)
}

func parseCmdIgnore(schema *option.Schema, v string) error {
	parts := strings.SplitN(v, ",", 2)
	if len(parts) != 2 {
		return fmt.Errorf("--cmd-ignore expects VENDOR,N, got %q", v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return fmt.Errorf("--cmd-ignore arity %q is not an integer", parts[1])
	}
	schema.AddIgnoreRule(strings.TrimSpace(parts[0]), n)
	return nil
}

func parseCmdRename(schema *option.Schema, v string) error {
	parts := strings.SplitN(v, ",", 2)
	if len(parts) != 2 {
		return fmt.Errorf("--cmd-rename expects VENDOR,SLANG, got %q", v)
	}
	schema.AddRenameRule(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	return nil
}

var LogOptionBag = base.NewLogCategory("optionbag")
