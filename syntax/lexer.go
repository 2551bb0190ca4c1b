package syntax

import "strings"

// Lexer scans SystemVerilog-ish text into a flat Token slice. It is not a
// conformant lexer (no real number-literal grammar, no escaped
// identifiers) — just enough structure for the preprocessor's directive
// handling, the obfuscator's identifier/vector-digit distinction, and the
// parser's module/endmodule recognition.
type Lexer struct {
	path string
	src  []rune
	pos  int
}

func NewLexer(path, text string) *Lexer {
	return &Lexer{path: path, src: []rune(text)}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '$' || r == '`'
}
func isIdentCont(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// Tokenize scans the whole source into tokens, attaching any run of
// whitespace/comments immediately preceding a token as its LeadingTrivia
// so callers that need exact reproduction (macro-body printing) can
// reconstruct the original text.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	var trivia strings.Builder
	line, col := 1, 1

	advance := func() rune {
		r := l.src[l.pos]
		l.pos++
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		return r
	}

	for l.pos < len(l.src) {
		r := l.src[l.pos]

		switch {
		case r == ' ' || r == '\t' || r == '\r':
			trivia.WriteRune(advance())
			continue
		case r == '\n':
			trivia.WriteRune(advance())
			continue
		case r == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			start := l.pos
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				advance()
			}
			trivia.WriteString(string(l.src[start:l.pos]))
			continue
		case r == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			start := l.pos
			advance()
			advance()
			for l.pos+1 < len(l.src) && !(l.src[l.pos] == '*' && l.src[l.pos+1] == '/') {
				advance()
			}
			if l.pos+1 < len(l.src) {
				advance()
				advance()
			}
			trivia.WriteString(string(l.src[start:l.pos]))
			continue
		}

		startLine, startCol := line, col
		lead := trivia.String()
		trivia.Reset()

		switch {
		case r == '`':
			start := l.pos
			advance()
			for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
				advance()
			}
			tokens = append(tokens, Token{Kind: TokDirective, Text: string(l.src[start:l.pos]), LeadingTrivia: lead, Path: l.path, Line: startLine, Column: startCol})
		case isIdentStart(r):
			start := l.pos
			advance()
			for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
				advance()
			}
			kind := TokIdentifier
			if r == '$' {
				kind = TokSystemTask
			}
			tokens = append(tokens, Token{Kind: kind, Text: string(l.src[start:l.pos]), LeadingTrivia: lead, Path: l.path, Line: startLine, Column: startCol})
		case isDigit(r):
			start := l.pos
			for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
				advance()
			}
			// size'base digits form, e.g. 4'b1010
			if l.pos < len(l.src) && l.src[l.pos] == '\'' {
				advance()
				if l.pos < len(l.src) && (l.src[l.pos] == 's' || l.src[l.pos] == 'S') {
					advance()
				}
				if l.pos < len(l.src) {
					advance() // base letter
				}
			}
			tokens = append(tokens, Token{Kind: TokNumber, Text: string(l.src[start:l.pos]), LeadingTrivia: lead, Path: l.path, Line: startLine, Column: startCol})
		case r == '"':
			start := l.pos
			advance()
			for l.pos < len(l.src) && l.src[l.pos] != '"' {
				if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
					advance()
				}
				advance()
			}
			if l.pos < len(l.src) {
				advance()
			}
			tokens = append(tokens, Token{Kind: TokString, Text: string(l.src[start:l.pos]), LeadingTrivia: lead, Path: l.path, Line: startLine, Column: startCol})
		default:
			start := l.pos
			advance()
			tokens = append(tokens, Token{Kind: TokPunct, Text: string(l.src[start:l.pos]), LeadingTrivia: lead, Path: l.path, Line: startLine, Column: startCol})
		}
	}

	tokens = append(tokens, Token{Kind: TokEOF, LeadingTrivia: trivia.String(), Path: l.path, Line: line, Column: col})
	return tokens
}

// VectorBaseToken reports whether tok is an integer-base marker
// ("'b"/"'h"/"'o"/"'d" suffixes embedded in a number token, e.g. "4'b")
// that should suppress obfuscation of the digit run that follows.
func VectorBaseToken(tok Token) bool {
	return tok.Kind == TokNumber && strings.ContainsRune(tok.Text, '\'')
}
