package ngram

import "errors"

var (
	// ErrInvalidOrder is returned when a model is built with n <= 0
	ErrInvalidOrder = errors.New("n-gram order must be at least 1")

	// ErrContextLength is returned when the previous tokens are not exactly n-1 long
	ErrContextLength = errors.New("previous tokens must have length n-1")

	// ErrEmptySentence is returned when an empty sentence is scored
	ErrEmptySentence = errors.New("sentence must not be empty")

	// ErrUnknownContext is returned when sampling from a context that was never observed
	ErrUnknownContext = errors.New("context has no recorded distribution")

	// ErrTokenLimit is returned when generation exceeds the configured token cap
	ErrTokenLimit = errors.New("generated sentence exceeded the token limit")

	// ErrTooManySentences is returned when a generate request asks for more
	// sentences than generation.max_sentences allows
	ErrTooManySentences = errors.New("too many sentences requested")

	// ErrEmptyTestSet is returned when an evaluation has no sentences to score
	ErrEmptyTestSet = errors.New("test set has no non-empty sentences")

	// ErrModelNotFound is returned when a named model is not loaded
	ErrModelNotFound = errors.New("model not found")

	// ErrInvalidName is returned when a model name is empty or not a plain file name
	ErrInvalidName = errors.New("invalid model name")

	// ErrUnknownLanguage is returned when no tokenizer handles the requested language
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrInconsistentCounts is returned when a stored count table violates the prefix invariant
	ErrInconsistentCounts = errors.New("count table is inconsistent")
)
