package ngram

import "strings"

const (
	StartMarker = "<s>"
	EndMarker   = "</s>"
)

// keySeparator terminates every token inside a count-table key. It is the ASCII
// unit separator, which tokenizers never emit.
const keySeparator = "\x1f"

// Token represents a single lexical token produced by a tokenizer
type Token struct {
	Type   string // Token type (e.g., "identifier", "word", "string")
	Value  string // Original token value
	Line   int    // Line number in source
	Column int    // Column number in source
}

// TokenSequence is a slice of tokens
type TokenSequence []Token

// Sentence is an ordered sequence of token strings
type Sentence []string

// NGram represents an n-gram (sequence of n tokens)
type NGram []string

// String returns the n-gram as a space-separated string
func (ng NGram) String() string {
	return strings.Join(ng, " ")
}

// Key returns the count-table key of the n-gram. Unlike String, keys of
// different tuples never collide, including the empty tuple and tuples holding
// empty tokens.
func (ng NGram) Key() string {
	var b strings.Builder
	for _, token := range ng {
		b.WriteString(token)
		b.WriteString(keySeparator)
	}
	return b.String()
}

// ParseKey is the inverse of NGram.Key
func ParseKey(key string) NGram {
	if key == "" {
		return NGram{}
	}
	return strings.Split(strings.TrimSuffix(key, keySeparator), keySeparator)
}

// Context returns the context (all tokens except the last one)
func (ng NGram) Context() NGram {
	if len(ng) <= 1 {
		return NGram{}
	}
	return ng[:len(ng)-1]
}

// LastToken returns the last token in the n-gram
func (ng NGram) LastToken() string {
	if len(ng) == 0 {
		return ""
	}
	return ng[len(ng)-1]
}

// Pad returns a new sentence with n-1 start markers prepended and a single end
// marker appended unless the sentence already ends with one. The input is not
// modified.
func Pad(sent []string, n int) Sentence {
	starts := n - 1
	if starts < 0 {
		starts = 0
	}
	needEnd := len(sent) == 0 || sent[len(sent)-1] != EndMarker

	padded := make(Sentence, 0, starts+len(sent)+1)
	for i := 0; i < starts; i++ {
		padded = append(padded, StartMarker)
	}
	padded = append(padded, sent...)
	if needEnd {
		padded = append(padded, EndMarker)
	}
	return padded
}

// Windows returns every contiguous n-token window of the sentence. The windows
// are copies and do not alias the sentence.
func Windows(sent []string, n int) []NGram {
	if n < 1 || len(sent) < n {
		return nil
	}
	result := make([]NGram, 0, len(sent)-n+1)
	for i := 0; i+n <= len(sent); i++ {
		ng := make(NGram, n)
		copy(ng, sent[i:i+n])
		result = append(result, ng)
	}
	return result
}
