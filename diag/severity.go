// Package diag is the diagnostic engine: a severity table keyed by
// diagnostic kind, suppression-path predicates, and a text client that
// renders issued diagnostics to a colorized stream. Grounded on
// internal/base's Log.go (leveled, categorized logging) and Color.go
// (ANSI rendering), generalized from "log lines" to "diagnostic kind
// carries an overridable severity".
package diag

// Severity is the diagnostic engine's enumerated severity domain.
type Severity int

const (
	Ignored Severity = iota
	Note
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Ignored:
		return "ignored"
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Kind identifies a diagnostic by name, e.g. "DuplicateDefinition".
type Kind string

// compiledDefaults is the engine's built-in severity table before any
// setDefaultWarnings/setSeverity/compat/user-W layering runs. Every kind
// the mandatory-override and vcs-compat tables touch gets an explicit
// entry here so later layers have something to override.
var compiledDefaults = map[Kind]Severity{
	"SyntaxError":                     Warning,
	"DuplicateDefinition":             Warning,
	"BadProceduralForce":              Warning,
	"StaticInitializerMustBeExplicit": Warning,
	"ImplicitConvert":                 Warning,
	"BadFinishNum":                    Warning,
	"NonstandardSysFunc":              Warning,
	"NonstandardForeach":              Warning,
	"NonstandardDist":                 Warning,
	"IndexOOB":                        Warning,
	"RangeOOB":                        Warning,
	"RangeWidthOOB":                   Warning,
	"ImplicitNamedPortTypeMismatch":   Warning,
	"SplitDistWeightOp":               Warning,
}

// mandatoryOverrides are applied unconditionally, before any compat
// profile.
var mandatoryOverrides = map[Kind]Severity{
	"SyntaxError":         Error,
	"DuplicateDefinition": Error,
	"BadProceduralForce":  Error,
}

// vcsCompatOverrides apply only when compat=vcs.
var vcsCompatOverrides = map[Kind]Severity{
	"StaticInitializerMustBeExplicit": Ignored,
	"ImplicitConvert":                 Ignored,
	"BadFinishNum":                    Ignored,
	"NonstandardSysFunc":              Ignored,
	"NonstandardForeach":              Ignored,
	"NonstandardDist":                 Ignored,
}

// nonCompatDefaultPromotions apply only when compat is not vcs.
var nonCompatDefaultPromotions = map[Kind]Severity{
	"IndexOOB":                      Error,
	"RangeOOB":                      Error,
	"RangeWidthOOB":                 Error,
	"ImplicitNamedPortTypeMismatch": Error,
	"SplitDistWeightOp":             Error,
}
