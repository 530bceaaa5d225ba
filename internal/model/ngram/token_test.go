package ngram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPad(t *testing.T) {
	tests := []struct {
		name string
		sent []string
		n    int
		want Sentence
	}{
		{"bigram", []string{"a", "b"}, 2, Sentence{"<s>", "a", "b", "</s>"}},
		{"trigram", []string{"a"}, 3, Sentence{"<s>", "<s>", "a", "</s>"}},
		{"unigram", []string{"x", "x"}, 1, Sentence{"x", "x", "</s>"}},
		{"already terminated", []string{"a", "</s>"}, 2, Sentence{"<s>", "a", "</s>"}},
		{"empty", []string{}, 2, Sentence{"<s>", "</s>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Pad(tt.sent, tt.n))
		})
	}
}

func TestPadDoesNotMutateInput(t *testing.T) {
	backing := make([]string, 2, 10)
	backing[0], backing[1] = "a", "b"

	padded := Pad(backing, 3)
	padded[2] = "changed"

	assert.Equal(t, []string{"a", "b"}, backing)
	assert.Equal(t, "", backing[:3][2], "spare capacity must not be written")
}

func TestKeyRoundTrip(t *testing.T) {
	for _, ng := range []NGram{{}, {""}, {"a"}, {"a", "b"}, {"<s>", "x y"}} {
		assert.Equal(t, ng, ParseKey(ng.Key()), "key %q", ng.Key())
	}
	assert.NotEqual(t, NGram{}.Key(), NGram{""}.Key())
	assert.NotEqual(t, NGram{"a b"}.Key(), NGram{"a", "b"}.Key())
}

func TestContextAndLastToken(t *testing.T) {
	ng := NGram{"a", "b", "c"}
	assert.Equal(t, NGram{"a", "b"}, ng.Context())
	assert.Equal(t, "c", ng.LastToken())
	assert.Equal(t, "a b c", ng.String())

	assert.Equal(t, NGram{}, NGram{"a"}.Context())
	assert.Equal(t, "", NGram{}.LastToken())
}

func TestWindows(t *testing.T) {
	sent := []string{"<s>", "a", "b", "</s>"}
	assert.Equal(t, []NGram{{"<s>", "a"}, {"a", "b"}, {"b", "</s>"}}, Windows(sent, 2))
	assert.Len(t, Windows(sent, 1), 4)
	assert.Nil(t, Windows(sent, 5))
	assert.Nil(t, Windows(sent, 0))
}
