package tokenizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "ngramlm/internal/model/ngram"
)

// normalizedLines groups normalized token values by source line
func normalizedLines(tok Tokenizer, tokens model.TokenSequence) map[int][]string {
	lines := make(map[int][]string)
	for _, token := range tokens {
		lines[token.Line] = append(lines[token.Line], tok.Normalize(token))
	}
	return lines
}

func TestTextTokenizer(t *testing.T) {
	tok := NewTextTokenizer(false)
	tokens, err := tok.Tokenize(context.Background(), []byte("El gato  come\n\n\tpescado .\n"))
	require.NoError(t, err)

	require.Len(t, tokens, 5)
	assert.Equal(t, model.Token{Type: "word", Value: "El", Line: 1, Column: 1}, tokens[0])
	assert.Equal(t, model.Token{Type: "word", Value: "come", Line: 1, Column: 10}, tokens[2])
	assert.Equal(t, model.Token{Type: "word", Value: "pescado", Line: 3, Column: 2}, tokens[3])
	assert.Equal(t, ".", tok.Normalize(tokens[4]))
	assert.Equal(t, "text", tok.Language())
}

func TestTextTokenizerLowercase(t *testing.T) {
	tokens, err := NewTextTokenizer(true).Tokenize(context.Background(), []byte("El GATO"))
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "el", tokens[0].Value)
	assert.Equal(t, "gato", tokens[1].Value)
}

func TestTokenizeHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTextTokenizer(false).Tokenize(ctx, []byte("a b"))
	assert.ErrorIs(t, err, context.Canceled)

	goTok, err := NewGoTokenizer()
	require.NoError(t, err)
	_, err = goTok.Tokenize(ctx, []byte("package main"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGoTokenizer(t *testing.T) {
	tok, err := NewGoTokenizer()
	require.NoError(t, err)
	defer tok.Close()

	src := []byte("package main\n\n// comment\nfunc f() {\n\tx := \"hi there\" + 42\n\t_ = x\n}\n")
	tokens, err := tok.Tokenize(context.Background(), src)
	require.NoError(t, err)

	lines := normalizedLines(tok, tokens)
	assert.Equal(t, []string{"package", "ID"}, lines[1])
	assert.Empty(t, lines[3], "comments are skipped")
	assert.Equal(t, []string{"ID", ":=", "STR", "+", "NUM"}, lines[5])
	assert.Equal(t, "go", tok.Language())
}

func TestPythonTokenizer(t *testing.T) {
	tok, err := NewPythonTokenizer()
	require.NoError(t, err)

	tokens, err := tok.Tokenize(context.Background(), []byte("x = 'a b' + 1  # note\ny = None\n"))
	require.NoError(t, err)

	lines := normalizedLines(tok, tokens)
	assert.Equal(t, []string{"ID", "=", "STR", "+", "NUM"}, lines[1])
	assert.Equal(t, []string{"ID", "=", "NONE"}, lines[2])
}

func TestJavaScriptTokenizer(t *testing.T) {
	tok, err := NewJavaScriptTokenizer()
	require.NoError(t, err)

	tokens, err := tok.Tokenize(context.Background(), []byte("const s = \"x\" + 3;\n"))
	require.NoError(t, err)

	lines := normalizedLines(tok, tokens)
	assert.Equal(t, []string{"const", "ID", "=", "STR", "+", "NUM", ";"}, lines[1])
}

func TestTypeScriptTokenizer(t *testing.T) {
	tok, err := NewTypeScriptTokenizer()
	require.NoError(t, err)

	tokens, err := tok.Tokenize(context.Background(), []byte("let n: Count = 1;\n"))
	require.NoError(t, err)

	lines := normalizedLines(tok, tokens)
	assert.Equal(t, []string{"let", "ID", ":", "ID", "=", "NUM", ";"}, lines[1])
}

func TestJavaTokenizer(t *testing.T) {
	tok, err := NewJavaTokenizer()
	require.NoError(t, err)

	src := []byte("class A {\n  String s = \"hi\";\n}\n")
	tokens, err := tok.Tokenize(context.Background(), src)
	require.NoError(t, err)

	lines := normalizedLines(tok, tokens)
	assert.Equal(t, []string{"class", "ID", "{"}, lines[1])
	assert.Equal(t, []string{"ID", "ID", "=", "STR", ";"}, lines[2])
}

func TestDefaultRegistry(t *testing.T) {
	registry, err := NewDefaultRegistry()
	require.NoError(t, err)

	assert.Equal(t, []string{"go", "java", "javascript", "python", "text", "typescript"}, registry.SupportedLanguages())

	tok, ok := registry.GetTokenizerForPath("src/Main.JAVA")
	require.True(t, ok)
	assert.Equal(t, "java", tok.Language())

	tok, ok = registry.GetTokenizerByExtension(".txt")
	require.True(t, ok)
	assert.Equal(t, "text", tok.Language())

	_, ok = registry.GetTokenizerForPath("README.md")
	assert.False(t, ok)
}
