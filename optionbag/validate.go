package optionbag

import (
	"fmt"
	"os"
	"strings"

	"github.com/svfront/driver/diag"
	"github.com/svfront/driver/internal/base"
	"github.com/svfront/driver/source"
)

// Services bundles the collaborators Validate wires registered paths,
// severity overrides, and display flags into. All four are mutated;
// none are read back by Validate, so callers retain ownership.
type Services struct {
	Manager *source.Manager
	Loader  *source.Loader
	Table   *diag.Table
	Engine  *diag.Engine
	Stdout  *os.File
	Stderr  *os.File
}

// Validate executes the eleven-step sequence: color policy, compat
// profile defaults, enum validation, cross-option invariants, lint-only
// promotion, path registration, diagnostic display configuration, error
// limit, severity table layering, suppression-path registration, and
// finally user -W overrides (applied last so they always win). Returns
// the immutable bag and any validation errors; a non-empty error list
// means validation failed and no source should be loaded.
func Validate(raw *RawOptions, svc Services) (*OptionBag, []error) {
	var errs []error

	bag := &OptionBag{}

	// Step 1: color policy.
	var mode base.ColorMode
	if raw.ColorDiagnostics.V != "" {
		if err := mode.Set(raw.ColorDiagnostics.V); err != nil {
			errs = append(errs, err)
		}
	}
	stdout, stderr := svc.Stdout, svc.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	colorEnabled := base.ResolveColor(mode, stdout, stderr)
	bag.ColorStdout = colorEnabled
	bag.ColorStderr = colorEnabled

	// Step 2: vcs compat profile defaults.
	isVcs := raw.Compat.V == "vcs"
	if isVcs {
		if !raw.AllowHierarchicalConstSet {
			raw.AllowHierarchicalConst.V = true
		}
		if !raw.AllowUseBeforeDeclareSet {
			raw.AllowUseBeforeDeclare.V = true
		}
		if !raw.RelaxEnumConversionsSet {
			raw.RelaxEnumConversions.V = true
		}
	}

	// Step 3: enum validation.
	switch raw.Compat.V {
	case "", "vcs":
	default:
		errs = append(errs, fmt.Errorf("invalid value for compat option: '%s'", raw.Compat.V))
	}
	switch raw.Timing.V {
	case "", "min", "typ", "max":
	default:
		errs = append(errs, fmt.Errorf("invalid value for timing option: '%s'", raw.Timing.V))
	}
	var timescale Timescale
	if raw.TimescaleRaw.V != "" {
		ts, err := parseTimescale(raw.TimescaleRaw.V)
		if err != nil {
			errs = append(errs, err)
		} else {
			timescale = ts
		}
	}

	// Step 4: cross-option invariants.
	if raw.LibrariesInheritMacros.V && !raw.SingleUnit.V {
		errs = append(errs, fmt.Errorf("--single-unit must be set when --libraries-inherit-macros is used"))
	}

	// Bail out before any source/path registration if validation failed so
	// far — steps 5 onward assume a consistent configuration.
	if len(errs) > 0 {
		return nil, errs
	}

	// Step 5: lint-only promotions.
	if raw.LintOnly.V && !raw.IgnoreUnknownModulesSet {
		raw.IgnoreUnknownModules.V = true
	}

	// Step 6: register include/library search paths; missing directories
	// degrade to a warning, never a failure.
	for _, dir := range raw.IncludeDirs.V {
		if !svc.Manager.AddUserDirectory(dir) {
			base.LogWarning(LogOptionBag, "include directory does not exist: %q", dir)
		}
	}
	for _, dir := range raw.SystemDirs.V {
		if !svc.Manager.AddSystemDirectory(dir) {
			base.LogWarning(LogOptionBag, "system include directory does not exist: %q", dir)
		}
	}
	svc.Loader.AddSearchDirectories(raw.LibDirs.V)
	svc.Loader.AddSearchExtensions(raw.LibExts.V)
	svc.Loader.SetExcludeExtensions(raw.ExcludeExt.V)
	for _, f := range raw.LibFiles.V {
		svc.Loader.AddLibraryFiles("v", f)
	}
	for _, f := range raw.Positionals {
		svc.Loader.AddFiles(f)
	}

	// Step 7: diagnostic display flags.
	svc.Engine.Color = colorEnabled
	svc.Engine.ShowColumn = raw.DiagColumn.V
	svc.Engine.ShowLocation = raw.DiagLocation.V
	svc.Engine.ShowSource = raw.DiagSource.V
	svc.Engine.ShowOptionName = raw.DiagOptionName.V
	svc.Engine.ShowIncludeStack = raw.DiagIncludeStack.V
	svc.Engine.ShowMacroExpansion = raw.DiagMacroExpansion.V
	svc.Engine.ShowHierarchy = raw.DiagHierarchy.V
	bag.DiagColumn = raw.DiagColumn.V
	bag.DiagLocation = raw.DiagLocation.V
	bag.DiagSource = raw.DiagSource.V
	bag.DiagOptionName = raw.DiagOptionName.V
	bag.DiagIncludeStack = raw.DiagIncludeStack.V
	bag.DiagMacroExpansion = raw.DiagMacroExpansion.V
	bag.DiagHierarchy = raw.DiagHierarchy.V

	// Step 8: error limit.
	svc.Engine.ErrorLimit = raw.ErrorLimit.V

	// Step 9: setDefaultWarnings, layered with the compat profile.
	svc.Table.SetCompat(isVcs)
	svc.Table.SetDefaultWarnings()

	// (expansion) --diag-profile strict: promote every still-Warning kind
	// to Error before the user's own -W options get a chance to downgrade
	// individual ones back down.
	if raw.DiagProfile.V == "strict" {
		svc.Table.SetWarningOptions([]string{"error"})
	}

	// Step 10: suppression paths.
	for _, p := range raw.SuppressWarnings.V {
		svc.Engine.AddIgnorePath(p)
	}
	for _, p := range raw.SuppressMacroWarnings.V {
		svc.Engine.AddIgnoreMacroPath(p)
	}

	// Step 11: user -W overrides, applied last.
	for _, werr := range svc.Table.SetWarningOptions(raw.WarningOptions.V) {
		errs = append(errs, werr)
	}

	defines, order := parseDefines(raw.Defines.V)

	errorLimit := raw.ErrorLimit.V
	if errorLimit != 0 {
		errorLimit *= 2
	}

	bag.Source = SourceOptions{
		Threads:                raw.Threads.V,
		SingleUnit:             raw.SingleUnit.V,
		LintOnly:               raw.LintOnly.V,
		LibrariesInheritMacros: raw.LibrariesInheritMacros.V,
	}
	bag.Preprocessor = PreprocessorOptions{
		Defines:          defines,
		DefineOrder:      order,
		Undefines:        append([]string{}, raw.Undefines.V...),
		MaxIncludeDepth:  raw.MaxIncludeDepth.V,
		IgnoreDirectives: append([]string{}, raw.IgnoreDirective.V...),
	}
	bag.Lexer = LexerOptions{MaxErrors: raw.MaxLexerErrors.V}
	bag.Parser = ParserOptions{MaxRecursionDepth: raw.MaxParseDepth.V}
	bag.Compilation = CompilationOptions{
		MaxInstanceDepth:      raw.MaxHierarchyDepth.V,
		MaxGenerateSteps:      raw.MaxGenerateSteps.V,
		MaxConstexprDepth:     raw.MaxConstexprDepth.V,
		MaxConstexprSteps:     raw.MaxConstexprSteps.V,
		MaxConstexprBacktrace: raw.ConstexprBacktrace.V,
		MaxInstanceArray:      raw.MaxInstanceArray.V,
		ErrorLimit:            errorLimit,

		SuppressUnused:         raw.LintOnly.V,
		ScriptMode:             false,
		LintMode:               raw.LintOnly.V,
		AllowHierarchicalConst: raw.AllowHierarchicalConst.V,
		AllowDupInitialDrivers: raw.AllowDupInitialDrivers.V,
		RelaxEnumConversions:   raw.RelaxEnumConversions.V,
		StrictDriverChecking:   raw.StrictDriverChecking.V,
		IgnoreUnknownModules:   raw.IgnoreUnknownModules.V,
		AllowUseBeforeDeclare:  raw.AllowUseBeforeDeclare.V,

		Top:            append([]string{}, raw.Top.V...),
		ParamOverrides: append([]string{}, raw.ParamOverrides.V...),
		MinTypMax:      raw.Timing.V,
		Timescale:      timescale,
		Compat:         raw.Compat.V,
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return bag, nil
}

// parseDefines turns "-D NAME=VALUE"/"-D NAME" entries into a map (value
// defaults to "1") plus first-definition order, last value wins on redefinition.
func parseDefines(raw []string) (map[string]string, []string) {
	defines := map[string]string{}
	var order []string
	for _, d := range raw {
		name, value := d, "1"
		if i := strings.IndexByte(d, '='); i >= 0 {
			name, value = d[:i], d[i+1:]
		}
		if _, seen := defines[name]; !seen {
			order = append(order, name)
		}
		defines[name] = value
	}
	return defines, order
}
