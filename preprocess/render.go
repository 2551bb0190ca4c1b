package preprocess

import (
	"strings"

	"github.com/svfront/driver/syntax"
)

// Render reconstructs source text from a token stream, the counterpart
// to the lexer folding whitespace/comments into each token's
// LeadingTrivia. When includeComments is false, "//" and "/* */" runs are
// stripped out of each token's trivia but surrounding whitespace is kept,
// so --preprocess output without comments still reads like the original
// layout.
func Render(tokens []syntax.Token, includeComments bool) string {
	var sb strings.Builder
	for _, tok := range tokens {
		if tok.Kind == syntax.TokEOF {
			continue
		}
		trivia := tok.LeadingTrivia
		if !includeComments {
			trivia = stripComments(trivia)
		}
		sb.WriteString(trivia)
		sb.WriteString(tok.Text)
	}
	return sb.String()
}

// stripComments removes "// ... \n" and "/* ... */" runs from trivia,
// preserving every other rune (whitespace, newlines) so line structure
// survives comment removal.
func stripComments(trivia string) string {
	var sb strings.Builder
	for i := 0; i < len(trivia); {
		if strings.HasPrefix(trivia[i:], "//") {
			j := strings.IndexByte(trivia[i:], '\n')
			if j < 0 {
				break
			}
			i += j // keep the newline itself
			continue
		}
		if strings.HasPrefix(trivia[i:], "/*") {
			end := strings.Index(trivia[i+2:], "*/")
			if end < 0 {
				break
			}
			i += 2 + end + 2
			continue
		}
		sb.WriteByte(trivia[i])
		i++
	}
	return sb.String()
}
