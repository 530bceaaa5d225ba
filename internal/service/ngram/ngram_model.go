package ngram

import (
	"fmt"
	"sort"

	model "ngramlm/internal/model/ngram"
)

// NGramModel stores n-gram and context counts of a training corpus and
// answers probability queries against them. A model is built once and is
// read-only afterwards, so concurrent readers need no locking.
type NGramModel struct {
	n          int        // N-gram size
	counts     CountTable // n-gram and (n-1)-gram counts
	smoother   Smoother   // Smoothing algorithm
	vocabulary []string   // Sorted distinct target tokens
}

// ModelOption configures an NGramModel at construction time
type ModelOption func(*NGramModel)

// WithCountTable selects the backing count table. The table must be empty.
func WithCountTable(table CountTable) ModelOption {
	return func(m *NGramModel) {
		if table != nil {
			m.counts = table
		}
	}
}

// WithSmoother selects the probability estimator
func WithSmoother(smoother Smoother) ModelOption {
	return func(m *NGramModel) {
		if smoother != nil {
			m.smoother = smoother
		}
	}
}

func newEmptyModel(n int, opts []ModelOption) *NGramModel {
	m := &NGramModel{
		n:        n,
		counts:   NewMapCountTable(),
		smoother: NewMaximumLikelihood(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewNGramModel trains an n-gram model on the given sentences. Every sentence
// is padded with n-1 start markers and an end marker, then each window of n
// tokens is counted together with its (n-1)-token prefix. For n = 1 the prefix
// is the empty tuple, so its count is the total number of tokens.
func NewNGramModel(n int, sents [][]string, opts ...ModelOption) (*NGramModel, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, n)
	}

	m := newEmptyModel(n, opts)
	for _, sent := range sents {
		for _, ng := range model.Windows(model.Pad(sent, n), n) {
			m.counts.Increment(ng)
			m.counts.Increment(ng.Context())
		}
	}
	m.buildVocabulary()
	return m, nil
}

// NewNGramModelFromCounts rebuilds a model from a stored count table. Entries
// must hold tuples of length n or n-1 and satisfy the prefix invariant: every
// context count equals the sum of the counts of its n-grams.
func NewNGramModelFromCounts(n int, entries []NGramWithCount, opts ...ModelOption) (*NGramModel, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, n)
	}

	m := newEmptyModel(n, opts)
	continuations := make(map[string]int64)
	for _, entry := range entries {
		if len(entry.Tokens) != n && len(entry.Tokens) != n-1 {
			return nil, fmt.Errorf("%w: tuple %q has length %d", ErrInconsistentCounts, entry.Tokens.String(), len(entry.Tokens))
		}
		if entry.Count <= 0 {
			return nil, fmt.Errorf("%w: tuple %q has count %d", ErrInconsistentCounts, entry.Tokens.String(), entry.Count)
		}
		if m.counts.Count(entry.Tokens) != 0 {
			return nil, fmt.Errorf("%w: duplicate tuple %q", ErrInconsistentCounts, entry.Tokens.String())
		}
		m.counts.Add(entry.Tokens, entry.Count)
		if len(entry.Tokens) == n {
			continuations[entry.Tokens.Context().Key()] += entry.Count
		}
	}

	var err error
	m.counts.Each(func(tokens model.NGram, count int64) {
		if err != nil || len(tokens) != n-1 {
			return
		}
		if sum := continuations[tokens.Key()]; sum != count {
			err = fmt.Errorf("%w: context %q has count %d but its n-grams sum to %d", ErrInconsistentCounts, tokens.String(), count, sum)
		}
	})
	if err != nil {
		return nil, err
	}
	for key := range continuations {
		if m.counts.Count(model.ParseKey(key)) == 0 {
			return nil, fmt.Errorf("%w: context %q is missing", ErrInconsistentCounts, model.ParseKey(key).String())
		}
	}

	m.buildVocabulary()
	return m, nil
}

func (m *NGramModel) buildVocabulary() {
	seen := make(map[string]struct{})
	m.counts.Each(func(tokens model.NGram, count int64) {
		if len(tokens) == m.n {
			seen[tokens.LastToken()] = struct{}{}
		}
	})
	m.vocabulary = make([]string, 0, len(seen))
	for token := range seen {
		m.vocabulary = append(m.vocabulary, token)
	}
	sort.Strings(m.vocabulary)
}

// N returns the order of the model
func (m *NGramModel) N() int {
	return m.n
}

// Count returns the stored count of a tuple of length n or n-1, or 0 if it was
// never observed
func (m *NGramModel) Count(tokens []string) int64 {
	return m.counts.Count(tokens)
}

// ConditionalProbability returns P(token | prev). prev must hold exactly n-1
// tokens. An unobserved context yields 0.
func (m *NGramModel) ConditionalProbability(token string, prev []string) (float64, error) {
	if len(prev) != m.n-1 {
		return 0, fmt.Errorf("%w: got %d tokens, want %d", ErrContextLength, len(prev), m.n-1)
	}
	full := make([]string, 0, m.n)
	full = append(full, prev...)
	full = append(full, token)
	return m.smoother.Smooth(m.counts.Count(full), m.counts.Count(prev), len(m.vocabulary)), nil
}

// SentenceProbability returns the product of the conditional probabilities of
// every token of the padded sentence. Long sentences underflow to 0; use
// SentenceLogProbability when that matters.
func (m *NGramModel) SentenceProbability(sent []string) (float64, error) {
	prob := 1.0
	err := m.walk(sent, func(full, prev []string) {
		prob *= m.smoother.Smooth(m.counts.Count(full), m.counts.Count(prev), len(m.vocabulary))
	})
	if err != nil {
		return 0, err
	}
	return prob, nil
}

// SentenceLogProbability returns the base-2 log probability of the padded
// sentence, summed step by step from the raw counts. A step whose context was
// never observed contributes -Inf.
func (m *NGramModel) SentenceLogProbability(sent []string) (float64, error) {
	logProb := 0.0
	err := m.walk(sent, func(full, prev []string) {
		logProb += m.smoother.LogSmooth(m.counts.Count(full), m.counts.Count(prev), len(m.vocabulary))
	})
	if err != nil {
		return 0, err
	}
	return logProb, nil
}

// StepScore describes a single prediction made while scoring a sentence
type StepScore struct {
	Position       int      `json:"position"`
	Context        []string `json:"context"`
	Token          string   `json:"token"`
	NGramCount     int64    `json:"ngram_count"`
	ContextCount   int64    `json:"context_count"`
	Probability    float64  `json:"probability"`
	LogProbability float64  `json:"log_probability"`
}

// Steps returns the per-token breakdown that SentenceProbability and
// SentenceLogProbability aggregate
func (m *NGramModel) Steps(sent []string) ([]StepScore, error) {
	var steps []StepScore
	err := m.walk(sent, func(full, prev []string) {
		ngramCount, contextCount := m.counts.Count(full), m.counts.Count(prev)
		context := make([]string, len(prev))
		copy(context, prev)
		steps = append(steps, StepScore{
			Position:       len(steps),
			Context:        context,
			Token:          full[len(full)-1],
			NGramCount:     ngramCount,
			ContextCount:   contextCount,
			Probability:    m.smoother.Smooth(ngramCount, contextCount, len(m.vocabulary)),
			LogProbability: m.smoother.LogSmooth(ngramCount, contextCount, len(m.vocabulary)),
		})
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// walk pads the sentence and calls fn for every position from n-1 to the end
// with the n-gram ending there and its context. The slices alias the padded
// copy and must not be retained.
func (m *NGramModel) walk(sent []string, fn func(full, prev []string)) error {
	if len(sent) == 0 {
		return ErrEmptySentence
	}
	padded := model.Pad(sent, m.n)
	for i := m.n - 1; i < len(padded); i++ {
		start := i - m.n + 1
		fn(padded[start:i+1], padded[start:i])
	}
	return nil
}

// Each calls fn for every stored tuple of length n or n-1
func (m *NGramModel) Each(fn func(tokens model.NGram, count int64)) {
	m.counts.Each(fn)
}

// Entries returns every stored tuple sorted by length and then by key, which
// gives persisted and exported tables a stable order
func (m *NGramModel) Entries() []NGramWithCount {
	entries := make([]NGramWithCount, 0, m.counts.Len())
	m.counts.Each(func(tokens model.NGram, count int64) {
		entries = append(entries, NGramWithCount{Tokens: tokens, Count: count})
	})
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].Tokens) != len(entries[j].Tokens) {
			return len(entries[i].Tokens) < len(entries[j].Tokens)
		}
		return entries[i].Tokens.Key() < entries[j].Tokens.Key()
	})
	return entries
}

// Vocabulary returns the sorted distinct tokens that occur as the last token
// of a stored n-gram. The end marker is included; for n > 1 the start marker
// is not.
func (m *NGramModel) Vocabulary() []string {
	vocab := make([]string, len(m.vocabulary))
	copy(vocab, m.vocabulary)
	return vocab
}

// V returns the vocabulary size
func (m *NGramModel) V() int {
	return len(m.vocabulary)
}

// Stats returns statistics about the model
func (m *NGramModel) Stats() ModelStats {
	stats := ModelStats{
		N:              m.n,
		VocabularySize: len(m.vocabulary),
		CountTable:     m.counts.Name(),
		SmootherName:   m.smoother.Name(),
	}
	if trie, ok := m.counts.(*NGramTrie); ok {
		memory := trie.MemoryStats()
		stats.Memory = &memory
	}
	m.counts.Each(func(tokens model.NGram, count int64) {
		if len(tokens) == m.n {
			stats.NGramCount++
			stats.TotalNGrams += count
		} else {
			stats.ContextCount++
		}
	})
	return stats
}

// ModelStats contains statistics about an n-gram model
type ModelStats struct {
	N              int    `json:"n"`
	VocabularySize int    `json:"vocabulary_size"`
	NGramCount     int    `json:"ngram_count"`
	ContextCount   int    `json:"context_count"`
	TotalNGrams    int64  `json:"total_ngrams"`
	CountTable     string `json:"count_table"`
	SmootherName   string `json:"smoother_name"`

	Memory *TrieMemoryStats `json:"memory,omitempty"` // Trie count tables only
}
