package naclparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_SkipsWhitespaceAndComments(t *testing.T) {
	toks := tokenize("  // a comment\n  ident  ")
	require.Len(t, toks, 2) // ident, EOF
	assert.Equal(t, tokIdent, toks[0].kind)
	assert.Equal(t, "ident", toks[0].text)
	assert.Equal(t, tokEOF, toks[1].kind)
}

func TestTokenize_Punctuation(t *testing.T) {
	toks := tokenize("{}[](),=.*")
	kinds := make([]tokenKind, 0, len(toks))
	for _, tk := range toks {
		kinds = append(kinds, tk.kind)
	}
	assert.Equal(t, []tokenKind{
		tokLBrace, tokRBrace, tokLBrack, tokRBrack, tokLParen, tokRParen,
		tokComma, tokEquals, tokDot, tokStar, tokEOF,
	}, kinds)
}

func TestTokenize_NegativeAndFloatNumbers(t *testing.T) {
	toks := tokenize("-4 3.5 0")
	require.Len(t, toks, 4)
	assert.Equal(t, "-4", toks[0].text)
	assert.Equal(t, "3.5", toks[1].text)
	assert.Equal(t, "0", toks[2].text)
}

func TestTokenize_StringWithEscapedQuote(t *testing.T) {
	toks := tokenize(`"a \"quoted\" word"`)
	require.Len(t, toks, 2)
	assert.Equal(t, tokString, toks[0].kind)
	assert.Equal(t, `a \"quoted\" word`, toks[0].text)
}

func TestTokenize_MultilineString(t *testing.T) {
	toks := tokenize("'''\nfirst\nsecond\n'''")
	require.Len(t, toks, 2)
	assert.Equal(t, tokMLString, toks[0].kind)
	assert.Equal(t, "\nfirst\nsecond\n", toks[0].text)
}

func TestTokenize_UnterminatedStringIsIllegal(t *testing.T) {
	toks := tokenize(`"unterminated`)
	require.Len(t, toks, 2)
	assert.Equal(t, tokIllegal, toks[0].kind)
}
