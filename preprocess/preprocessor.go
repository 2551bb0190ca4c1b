package preprocess

import (
	"fmt"
	"os"
	"strings"

	"github.com/svfront/driver/diag"
	"github.com/svfront/driver/source"
	"github.com/svfront/driver/syntax"
)

// Options controls what survives into the emitted token stream — whether
// comments/directives pass through — and whether identifier obfuscation
// runs (with a deterministic or entropy-seeded generator).
type Options struct {
	IncludeComments  bool
	IncludeDirectives bool
	Obfuscate        bool
	FixedSeed        bool
	MaxIncludeDepth  int
	IgnoreDirectives map[string]bool

	// Engine, when set, receives a DuplicateDefinition diagnostic whenever
	// a `define redefines a macro with a different parameter list or body.
	// Its severity table decides whether that's ignored, a warning, or an
	// error (mandatory override promotes it to error by default).
	Engine *diag.Engine
}

// Preprocessor drives token emission across a reverse-pushed stack of
// source buffers, expanding `define/`undef/`include/`ifdef/`ifndef/
// `else/`endif as it goes. Grounded on the arena+diagnostics-sink
// construction pattern the driver layer composes services with, adapted
// from build-facet substitution (compile/Facet.go) to macro-text
// substitution.
type Preprocessor struct {
	opts    Options
	arena   *Arena[syntax.Token]
	manager *source.Manager
	macros  map[string]*Macro
	order   []string // first-definition order, for --report-macros

	// stopped latches once Engine.Issue reports the configured error
	// limit has been reached, so Run stops doing further work instead of
	// continuing to process (and silently drop) tokens past the cutoff.
	stopped bool
}

func NewPreprocessor(opts Options, manager *source.Manager) *Preprocessor {
	if opts.IgnoreDirectives == nil {
		opts.IgnoreDirectives = map[string]bool{}
	}
	if opts.MaxIncludeDepth <= 0 {
		opts.MaxIncludeDepth = 200
	}
	return &Preprocessor{
		opts:    opts,
		arena:   NewArena[syntax.Token](256),
		manager: manager,
		macros:  map[string]*Macro{},
	}
}

// Macros returns every macro defined by the end of the last Run call, for
// the --report-macros driver mode.
func (p *Preprocessor) Macros() map[string]*Macro { return p.macros }

// MacroOrder returns macro names in first-definition order, for
// deterministic --report-macros output. A name `undef`d after definition
// stays in the list; callers check Macros() to see whether it is still
// live.
func (p *Preprocessor) MacroOrder() []string { return append([]string{}, p.order...) }

// Predefine seeds name with value as a one-token body (an empty body when
// value is empty), for command-line -D macros that must already be
// visible to the first buffer Run processes.
func (p *Preprocessor) Predefine(name, value string) {
	m := &Macro{Name: name}
	if value != "" {
		m.Body = []syntax.Token{{Kind: syntax.TokIdentifier, Text: value}}
	}
	if _, redefined := p.macros[name]; !redefined {
		p.order = append(p.order, name)
	}
	p.macros[name] = m
}

// Undefine removes name from the macro table, for command-line -U
// undefines applied before Run sees the first buffer.
func (p *Preprocessor) Undefine(name string) {
	delete(p.macros, name)
}

type frame struct {
	tokens []syntax.Token
	pos    int
	path   string
}

type condFrame struct {
	parentActive bool
	satisfied    bool
	active       bool
}

// Run pushes buffers onto a stack in reverse order (so the stack's top
// starts as the first buffer) and emits a single token stream in the
// buffers' original order, substituting directives as it goes.
func (p *Preprocessor) Run(buffers []*source.Buffer) ([]syntax.Token, error) {
	var stack []*frame
	for i := len(buffers) - 1; i >= 0; i-- {
		buf := buffers[i]
		stack = append(stack, &frame{
			tokens: syntax.NewLexer(buf.Path, string(buf.Text)).Tokenize(),
			path:   buf.Path,
		})
	}

	var out []syntax.Token
	var conds []condFrame

	currentActive := func() bool {
		if len(conds) == 0 {
			return true
		}
		return conds[len(conds)-1].active
	}

	for len(stack) > 0 {
		if len(stack) > p.opts.MaxIncludeDepth {
			return out, fmt.Errorf("preprocessor: include depth exceeds %d", p.opts.MaxIncludeDepth)
		}
		top := stack[len(stack)-1]
		if top.pos >= len(top.tokens) {
			stack = stack[:len(stack)-1]
			continue
		}
		tok := top.tokens[top.pos]
		top.pos++

		if tok.Kind != syntax.TokDirective {
			if !currentActive() {
				continue
			}
			if tok.Kind == syntax.TokEOF {
				continue
			}
			if expanded, ok := p.expandIfMacro(top, tok); ok {
				stack = append(stack, &frame{tokens: expanded, path: top.path})
				continue
			}
			out = append(out, tok)
			continue
		}

		name := strings.TrimPrefix(tok.Text, "`")
		switch name {
		case "define":
			if currentActive() {
				p.handleDefine(top)
				if p.stopped {
					return out, nil
				}
			} else {
				skipDefineBody(top)
			}
		case "undef":
			if currentActive() {
				if nameTok, ok := nextToken(top); ok {
					delete(p.macros, nameTok.Text)
				}
			}
		case "include":
			if currentActive() {
				if err := p.handleInclude(top, &stack); err != nil {
					return out, err
				}
			}
		case "ifdef":
			nameTok, _ := nextToken(top)
			parent := currentActive()
			_, defined := p.macros[nameTok.Text]
			conds = append(conds, condFrame{parentActive: parent, satisfied: defined, active: parent && defined})
		case "ifndef":
			nameTok, _ := nextToken(top)
			parent := currentActive()
			_, defined := p.macros[nameTok.Text]
			conds = append(conds, condFrame{parentActive: parent, satisfied: !defined, active: parent && !defined})
		case "else":
			if len(conds) > 0 {
				c := &conds[len(conds)-1]
				c.active = c.parentActive && !c.satisfied
				c.satisfied = true
			}
		case "endif":
			if len(conds) > 0 {
				conds = conds[:len(conds)-1]
			}
		default:
			if !currentActive() {
				continue
			}
			// A `NAME usage of a defined macro expands in place.
			call := tok
			call.Kind, call.Text = syntax.TokIdentifier, name
			if expanded, ok := p.expandIfMacro(top, call); ok {
				stack = append(stack, &frame{tokens: expanded, path: top.path})
				continue
			}
			if p.opts.IncludeDirectives && !p.opts.IgnoreDirectives[name] {
				out = append(out, tok)
				continue
			}
			// A dropped directive takes the rest of its line with it.
			for top.pos < len(top.tokens) && top.tokens[top.pos].Line == tok.Line && top.tokens[top.pos].Kind != syntax.TokEOF {
				top.pos++
			}
		}
	}

	if p.opts.Obfuscate {
		ob := NewObfuscator(p.opts.FixedSeed)
		out = ob.ObfuscateTokens(out)
	}
	p.arena.Release()
	return out, nil
}

func nextToken(f *frame) (syntax.Token, bool) {
	for f.pos < len(f.tokens) {
		tok := f.tokens[f.pos]
		f.pos++
		if tok.Kind == syntax.TokNewline {
			continue
		}
		return tok, true
	}
	return syntax.Token{}, false
}

func skipDefineBody(f *frame) {
	nextToken(f) // name
}

// handleDefine consumes the macro name, an optional parenthesized
// parameter list with no intervening whitespace, and the rest-of-line
// body tokens.
func (p *Preprocessor) handleDefine(f *frame) {
	nameTok, ok := nextToken(f)
	if !ok {
		return
	}
	m := &Macro{Name: nameTok.Text, NameLine: nameTok.Line, NameColumn: nameTok.Column}
	scratch := p.arena.Grab(8)

	if f.pos < len(f.tokens) && f.tokens[f.pos].Text == "(" && f.tokens[f.pos].LeadingTrivia == "" {
		f.pos++ // consume "("
		for f.pos < len(f.tokens) {
			tok := f.tokens[f.pos]
			f.pos++
			if tok.Text == ")" {
				break
			}
			if tok.Text == "," {
				continue
			}
			m.Params = append(m.Params, tok)
		}
	}

	startLine := nameTok.Line
	for f.pos < len(f.tokens) {
		tok := f.tokens[f.pos]
		if tok.Line != startLine || tok.Kind == syntax.TokEOF {
			break
		}
		f.pos++
		scratch = append(scratch, tok)
	}
	// Macros outlive this Run call (the --report-macros mode reads them
	// back later), but the arena's backing slices do not, so copy out of
	// the arena-owned scratch buffer before it can be recycled.
	m.Body = append([]syntax.Token{}, scratch...)
	if existing, redefined := p.macros[m.Name]; !redefined {
		p.order = append(p.order, m.Name)
	} else if p.opts.Engine != nil && !macroBodiesEqual(existing, m) {
		if !p.opts.Engine.Issue(diag.Diagnostic{
			Kind:    "DuplicateDefinition",
			Message: fmt.Sprintf("macro %q redefined with a different body", m.Name),
			Path:    f.path,
			Line:    nameTok.Line,
			Column:  nameTok.Column,
		}) {
			p.stopped = true
		}
	}
	p.macros[m.Name] = m
}

func macroBodiesEqual(a, b *Macro) bool {
	if len(a.Params) != len(b.Params) || len(a.Body) != len(b.Body) {
		return false
	}
	for i := range a.Params {
		if a.Params[i].Text != b.Params[i].Text {
			return false
		}
	}
	for i := range a.Body {
		if a.Body[i].Text != b.Body[i].Text {
			return false
		}
	}
	return true
}

// expandIfMacro substitutes tok with its macro body when tok names a
// defined macro. For a parameterized macro it also consumes the call's
// "(actual, actual, ...)" tokens from f and substitutes each formal
// parameter occurrence in the body with its corresponding actual's
// tokens; an actual may itself be more than one token (e.g. "a+1").
func (p *Preprocessor) expandIfMacro(f *frame, tok syntax.Token) ([]syntax.Token, bool) {
	if tok.Kind != syntax.TokIdentifier {
		return nil, false
	}
	m, ok := p.macros[tok.Text]
	if !ok {
		return nil, false
	}
	if len(m.Params) == 0 {
		return append([]syntax.Token{}, m.Body...), true
	}
	if f.pos >= len(f.tokens) || f.tokens[f.pos].Text != "(" {
		return append([]syntax.Token{}, m.Body...), true
	}
	f.pos++ // consume "("
	actuals := map[string][]syntax.Token{}
	argIdx := 0
	var current []syntax.Token
	depth := 0
	for f.pos < len(f.tokens) {
		at := f.tokens[f.pos]
		if depth == 0 && at.Text == ")" {
			f.pos++
			if argIdx < len(m.Params) {
				actuals[m.Params[argIdx].Text] = current
			}
			break
		}
		if depth == 0 && at.Text == "," {
			f.pos++
			if argIdx < len(m.Params) {
				actuals[m.Params[argIdx].Text] = current
			}
			argIdx++
			current = nil
			continue
		}
		if at.Text == "(" {
			depth++
		} else if at.Text == ")" {
			depth--
		}
		current = append(current, at)
		f.pos++
	}
	var out []syntax.Token
	for _, bt := range m.Body {
		if sub, isParam := actuals[bt.Text]; isParam && bt.Kind == syntax.TokIdentifier {
			out = append(out, sub...)
			continue
		}
		out = append(out, bt)
	}
	return out, true
}

func (p *Preprocessor) handleInclude(f *frame, stack *[]*frame) error {
	pathTok, ok := nextToken(f)
	if !ok {
		return fmt.Errorf("`include with no path")
	}
	name := strings.Trim(pathTok.Text, "\"")
	resolved, found := p.manager.Resolve(name)
	if !found {
		return fmt.Errorf("unable to find or open include file %q", name)
	}
	text, err := readFile(resolved)
	if err != nil {
		return err
	}
	*stack = append(*stack, &frame{
		tokens: syntax.NewLexer(resolved, text).Tokenize(),
		path:   resolved,
	})
	return nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
