package preprocess

import (
	"math/rand"
	"time"

	"github.com/svfront/driver/syntax"
)

const obfuscatedGlyphs = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
const obfuscatedLength = 16

// Obfuscator maps every observed source identifier to a freshly generated
// 16-glyph replacement, consistently (same identifier always yields the
// same replacement) and bijectively (distinct identifiers never collide).
// A fixed seed makes the mapping reproducible for tests; otherwise a
// system-entropy seed is used.
type Obfuscator struct {
	rng     *rand.Rand
	mapping map[string]string
	used    map[string]bool
}

func NewObfuscator(fixedSeed bool) *Obfuscator {
	var seed int64
	if fixedSeed {
		seed = 1
	} else {
		seed = time.Now().UnixNano()
	}
	return &Obfuscator{
		rng:     rand.New(rand.NewSource(seed)),
		mapping: map[string]string{},
		used:    map[string]bool{},
	}
}

func (o *Obfuscator) generate() string {
	for {
		buf := make([]byte, obfuscatedLength)
		for i := range buf {
			buf[i] = obfuscatedGlyphs[o.rng.Intn(len(obfuscatedGlyphs))]
		}
		candidate := string(buf)
		if !o.used[candidate] {
			o.used[candidate] = true
			return candidate
		}
	}
}

// Replace returns ident's obfuscated form, generating and caching one on
// first sight.
func (o *Obfuscator) Replace(ident string) string {
	if existing, ok := o.mapping[ident]; ok {
		return existing
	}
	replacement := o.generate()
	o.mapping[ident] = replacement
	return replacement
}

// ObfuscateTokens walks tokens in order, replacing every identifier with
// its obfuscated form except where a preceding integer-base token (e.g.
// "4'b") puts the lookahead into vector-digit mode: subsequent tokens
// that could lex as vector digits pass through verbatim until a token
// that cannot appears, since obfuscating vector literal digits would
// corrupt the literal.
func (o *Obfuscator) ObfuscateTokens(tokens []syntax.Token) []syntax.Token {
	out := make([]syntax.Token, len(tokens))
	inVectorDigits := false
	for i, tok := range tokens {
		switch {
		case syntax.VectorBaseToken(tok):
			inVectorDigits = true
			out[i] = tok
		case inVectorDigits && tok.PossibleVectorDigit():
			out[i] = tok
		case tok.Kind == syntax.TokIdentifier:
			inVectorDigits = false
			replaced := tok
			replaced.Text = o.Replace(tok.Text)
			out[i] = replaced
		default:
			inVectorDigits = false
			out[i] = tok
		}
	}
	return out
}
