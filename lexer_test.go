package sel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []token {
	t.Helper()
	lex := newLexer(src)
	var tokens []token
	for {
		tok, err := lex.next()
		require.NoError(t, err)
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			break
		}
	}
	return tokens
}

func Test_lexer_next(t *testing.T) {
	t.Run("tokenizes a simple filter", func(t *testing.T) {
		tokens := lexAll(t, "label = bag")
		require.Len(t, tokens, 4)
		assert.Equal(t, tokWord, tokens[0].kind)
		assert.Equal(t, "label", tokens[0].text)
		assert.Equal(t, tokOp, tokens[1].kind)
		assert.Equal(t, "=", tokens[1].text)
		assert.Equal(t, tokWord, tokens[2].kind)
		assert.Equal(t, "bag", tokens[2].text)
		assert.Equal(t, tokEOF, tokens[3].kind)
	})

	t.Run("tokenizes two-character operators before one-character prefixes", func(t *testing.T) {
		for _, op := range []string{"!=", "!~", ">=", "<="} {
			tokens := lexAll(t, "a "+op+" 1")
			require.GreaterOrEqual(t, len(tokens), 2)
			assert.Equal(t, op, tokens[1].text, op)
		}
	})

	t.Run("tokenizes a quoted string, stripping its quotes", func(t *testing.T) {
		tokens := lexAll(t, `"hello world"`)
		require.Len(t, tokens, 2)
		assert.Equal(t, tokString, tokens[0].kind)
		assert.Equal(t, "hello world", tokens[0].text)
	})

	t.Run("tokenizes a triple-quoted string", func(t *testing.T) {
		tokens := lexAll(t, `"""has "inner" quotes"""`)
		require.Len(t, tokens, 2)
		assert.Equal(t, `has "inner" quotes`, tokens[0].text)
	})

	t.Run("errors on an unterminated quoted string", func(t *testing.T) {
		lex := newLexer(`"unterminated`)
		_, err := lex.next()
		assert.Error(t, err)
	})

	t.Run("tokenizes brackets, commas, and colons", func(t *testing.T) {
		tokens := lexAll(t, "[a,b]:")
		kinds := make([]tokenKind, 0, len(tokens))
		for _, tok := range tokens {
			kinds = append(kinds, tok.kind)
		}
		assert.Equal(t, []tokenKind{tokLBracket, tokWord, tokComma, tokWord, tokRBracket, tokColon, tokEOF}, kinds)
	})

	t.Run("tokenizes a positive decimal as a number", func(t *testing.T) {
		tokens := lexAll(t, "3.5")
		require.Len(t, tokens, 2)
		assert.Equal(t, tokNumber, tokens[0].kind)
		assert.Equal(t, "3.5", tokens[0].text)
	})

	t.Run("tokenizes a leading-minus literal as a word, not a number", func(t *testing.T) {
		// '-' is a word-rune (field paths use it), so lexWord claims a
		// leading "-3.5" before lexNumber ever gets a chance to run -
		// parseValue doesn't care which token kind it reads, so this is
		// harmless for negative numeric literals in practice.
		tokens := lexAll(t, "-3.5")
		require.Len(t, tokens, 2)
		assert.Equal(t, tokWord, tokens[0].kind)
		assert.Equal(t, "-3.5", tokens[0].text)
	})

	t.Run("errors on an unrecognized character", func(t *testing.T) {
		lex := newLexer("$")
		_, err := lex.next()
		assert.Error(t, err)
	})
}
