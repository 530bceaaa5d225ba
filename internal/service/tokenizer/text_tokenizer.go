package tokenizer

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	model "ngramlm/internal/model/ngram"
)

// TextTokenizer splits plain text on whitespace. Line numbers are kept so each
// line of a corpus file becomes one sentence.
type TextTokenizer struct {
	lowercase bool
}

// NewTextTokenizer creates a whitespace tokenizer, optionally folding case
func NewTextTokenizer(lowercase bool) *TextTokenizer {
	return &TextTokenizer{lowercase: lowercase}
}

func (t *TextTokenizer) Tokenize(ctx context.Context, source []byte) (model.TokenSequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tokens model.TokenSequence
	line, column := 1, 1
	start, startColumn := -1, 0

	flush := func(end int) {
		if start < 0 {
			return
		}
		value := string(source[start:end])
		if t.lowercase {
			value = strings.ToLower(value)
		}
		tokens = append(tokens, model.Token{Type: "word", Value: value, Line: line, Column: startColumn})
		start = -1
	}

	for i := 0; i < len(source); {
		r, size := utf8.DecodeRune(source[i:])
		if unicode.IsSpace(r) {
			flush(i)
			if r == '\n' {
				line++
				column = 0
			}
		} else if start < 0 {
			start, startColumn = i, column
		}
		i += size
		column++
	}
	flush(len(source))

	return tokens, nil
}

func (t *TextTokenizer) Normalize(token model.Token) string {
	return token.Value
}

func (t *TextTokenizer) Language() string {
	return "text"
}
