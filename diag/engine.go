package diag

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/svfront/driver/internal/base"
)

var LogDiag = base.NewLogCategory("diag")

// Diagnostic is one issued message, resolved against a Table's severity
// at the moment it is issued (not at the moment it was produced), since
// -W overrides may postdate the code that detected the condition.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Message  string
	Path     string
	Line     int
	Column   int
}

// Table is the diagnostic severity table: compiled defaults, layered with
// mandatory overrides, an optional compat profile, and finally user -W
// directives, applied in that fixed order.
type Table struct {
	severities map[Kind]Severity
	compat     bool
}

func NewTable() *Table {
	t := &Table{severities: map[Kind]Severity{}}
	t.SetDefaultWarnings()
	return t
}

// SetCompat toggles the vcs compatibility profile; SetDefaultWarnings
// must be called again (or will be, by the validator) for it to apply to
// the compat-conditioned overrides. Applying it twice in a row and
// re-running SetDefaultWarnings converges to the same table either way.
func (t *Table) SetCompat(enabled bool) { t.compat = enabled }

// SetDefaultWarnings resets the table to compiled defaults, reapplies the
// mandatory overrides, then the compat-specific layer, discarding any
// prior SetSeverity/SetWarningOptions calls — callers re-run those
// afterward to restore the documented layering order.
func (t *Table) SetDefaultWarnings() {
	t.severities = make(map[Kind]Severity, len(compiledDefaults))
	for k, v := range compiledDefaults {
		t.severities[k] = v
	}
	for k, v := range mandatoryOverrides {
		t.severities[k] = v
	}
	if t.compat {
		for k, v := range vcsCompatOverrides {
			t.severities[k] = v
		}
	} else {
		for k, v := range nonCompatDefaultPromotions {
			t.severities[k] = v
		}
	}
}

func (t *Table) SetSeverity(kind Kind, sev Severity) { t.severities[kind] = sev }

func (t *Table) Severity(kind Kind) Severity {
	if sev, ok := t.severities[kind]; ok {
		return sev
	}
	return Warning
}

// SetWarningOptions applies user "-W" directives, last and always
// overriding any earlier layer. Recognized forms:
//
//	error           promote every currently-Warning kind to Error
//	error=KIND      set KIND to Error
//	no-KIND         set KIND to Ignored
//	KIND            set KIND to Warning
//
// Unrecognized KINDs are accepted (diagnostics use an open kind space);
// malformed directives (empty after trimming) are reported as errors.
func (t *Table) SetWarningOptions(opts []string) []error {
	var errs []error
	for _, raw := range opts {
		opt := strings.TrimSpace(raw)
		switch {
		case opt == "":
			errs = append(errs, fmt.Errorf("invalid -W option: empty"))
		case opt == "error":
			for k, v := range t.severities {
				if v == Warning {
					t.severities[k] = Error
				}
			}
		case strings.HasPrefix(opt, "error="):
			t.severities[Kind(opt[len("error="):])] = Error
		case strings.HasPrefix(opt, "no-"):
			t.severities[Kind(opt[len("no-"):])] = Ignored
		default:
			t.severities[Kind(opt)] = Warning
		}
	}
	return errs
}

// Engine is the text diagnostic client: it resolves each issued
// Diagnostic against a Table, applies ignore-path suppression, tracks
// running error/warning counts, and renders to Out (stderr in the
// driver). Display flags default true.
type Engine struct {
	Out    io.Writer
	Table  *Table
	Color  bool

	ShowColumn         bool
	ShowLocation       bool
	ShowSource         bool
	ShowOptionName     bool
	ShowIncludeStack   bool
	ShowMacroExpansion bool
	ShowHierarchy      bool

	ErrorLimit int // 0 = unlimited

	ignorePaths      []string
	ignoreMacroPaths []string

	errorCount   int
	warningCount int
	issued       []Diagnostic
}

func NewEngine(out io.Writer, table *Table) *Engine {
	return &Engine{
		Out:                out,
		Table:              table,
		ShowColumn:         true,
		ShowLocation:       true,
		ShowSource:         true,
		ShowOptionName:     true,
		ShowIncludeStack:   true,
		ShowMacroExpansion: true,
		ShowHierarchy:      true,
		ErrorLimit:         20,
	}
}

func (e *Engine) AddIgnorePath(pattern string)      { e.ignorePaths = append(e.ignorePaths, pattern) }
func (e *Engine) AddIgnoreMacroPath(pattern string) { e.ignoreMacroPaths = append(e.ignoreMacroPaths, pattern) }

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, path); ok {
			return true
		}
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// Issue resolves d's severity against the table, drops it if suppressed
// by an ignore path, counts it, and renders it. Returns false once the
// configured error limit (when nonzero) has been reached, signaling the
// caller to stop issuing new work for this mode.
func (e *Engine) Issue(d Diagnostic) bool {
	d.Severity = e.Table.Severity(d.Kind)
	if d.Severity == Ignored {
		return true
	}
	if matchesAny(e.ignorePaths, d.Path) {
		return true
	}

	e.issued = append(e.issued, d)
	switch d.Severity {
	case Error, Fatal:
		e.errorCount++
	case Warning:
		e.warningCount++
	}
	e.render(d)

	if e.ErrorLimit > 0 && e.errorCount >= e.ErrorLimit {
		return false
	}
	return true
}

func (e *Engine) render(d Diagnostic) {
	var sb strings.Builder
	if e.ShowLocation && d.Path != "" {
		fmt.Fprintf(&sb, "%s:", d.Path)
		if d.Line > 0 {
			fmt.Fprintf(&sb, "%d:", d.Line)
			if e.ShowColumn && d.Column > 0 {
				fmt.Fprintf(&sb, "%d:", d.Column)
			}
		}
		sb.WriteByte(' ')
	}
	fmt.Fprintf(&sb, "%s: %s", d.Severity, d.Message)
	if e.ShowOptionName {
		fmt.Fprintf(&sb, " [-W%s]", d.Kind)
	}

	if e.Color {
		fmt.Fprintf(e.Out, "%s%s%s\n", severityAnsi(d.Severity), sb.String(), base.ANSI_RESET)
	} else {
		fmt.Fprintln(e.Out, sb.String())
	}
}

func severityAnsi(s Severity) base.AnsiCode {
	switch s {
	case Error, Fatal:
		return base.ANSI_FG1_RED
	case Warning:
		return base.ANSI_FG1_YELLOW
	case Note:
		return base.ANSI_FG0_CYAN
	default:
		return base.ANSI_RESET
	}
}

func (e *Engine) ErrorCount() int   { return e.errorCount }
func (e *Engine) WarningCount() int { return e.warningCount }
func (e *Engine) Issued() []Diagnostic {
	out := make([]Diagnostic, len(e.issued))
	copy(out, e.issued)
	return out
}

// Summary renders the "Build succeeded"/"Build failed" line the
// parse-and-report driver mode prints, with correctly pluralized counts.
func (e *Engine) Summary() string {
	status := "Build succeeded"
	if e.errorCount > 0 {
		status = "Build failed"
	}
	return fmt.Sprintf("%s: %s, %s", status, plural(e.errorCount, "error"), plural(e.warningCount, "warning"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// SortedKinds is a convenience for tests/dumps that want a deterministic
// iteration over whatever kinds a Table currently has explicit entries for.
func (t *Table) SortedKinds() []Kind {
	kinds := make([]Kind, 0, len(t.severities))
	for k := range t.severities {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
