package preprocess

import "github.com/svfront/driver/syntax"

// Macro is one `define entry: its formal parameter tokens (empty for a
// parameterless macro) and its body tokens, trivia preserved on both so a
// macro report can reconstruct the original spacing between name,
// arguments, and body.
type Macro struct {
	Name       string
	Params     []syntax.Token
	Body       []syntax.Token
	NameLine   int
	NameColumn int
}

// Signature renders the macro's name and, when present, its formal
// parameter list — the first half of a --report-macros line. Each
// parameter keeps its own captured LeadingTrivia (the whitespace that
// followed its preceding comma in the source), so "FOO(a,   b)" reports
// with the same spacing it was defined with instead of a synthesized
// ", " separator.
func (m Macro) Signature() string {
	if len(m.Params) == 0 {
		return m.Name
	}
	sig := m.Name + "("
	for i, p := range m.Params {
		if i > 0 {
			sig += ","
		}
		sig += p.LeadingTrivia + p.Text
	}
	return sig + ")"
}

// BodyText renders the macro body, synthesizing a single leading space
// before the first token when it carries no leading trivia of its own —
// the formatting rule --report-macros documents.
func (m Macro) BodyText() string {
	var out string
	for i, tok := range m.Body {
		if i == 0 && tok.LeadingTrivia == "" {
			out += " "
		} else {
			out += tok.LeadingTrivia
		}
		out += tok.Text
	}
	return out
}
