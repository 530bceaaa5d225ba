package ngram

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	model "ngramlm/internal/model/ngram"
)

// RandomSource supplies uniform draws in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// TokenProbability is one entry of a context's next-token distribution
type TokenProbability struct {
	Token       string  `json:"token"`
	Probability float64 `json:"probability"`
}

// NGramGenerator samples sentences from the conditional distributions of a
// trained model. The distributions are computed once at construction and
// owned by the generator, so the model may be dropped afterwards.
//
// The cache is immutable but the random source is not: callers sharing one
// generator across goroutines must serialize sampling.
type NGramGenerator struct {
	n         int
	probs     map[string][]TokenProbability // context key -> sorted distribution
	random    RandomSource
	maxTokens int
}

// GeneratorOption configures an NGramGenerator
type GeneratorOption func(*NGramGenerator)

// WithRandom sets the random source used for sampling
func WithRandom(random RandomSource) GeneratorOption {
	return func(g *NGramGenerator) {
		if random != nil {
			g.random = random
		}
	}
}

// WithMaxTokens caps the number of tokens in a generated sentence. 0 means no
// cap.
func WithMaxTokens(maxTokens int) GeneratorOption {
	return func(g *NGramGenerator) {
		if maxTokens > 0 {
			g.maxTokens = maxTokens
		}
	}
}

// NewNGramGenerator precomputes the next-token distribution of every context
// observed by the model
func NewNGramGenerator(m *NGramModel, opts ...GeneratorOption) *NGramGenerator {
	dists := make(map[string][]TokenProbability)
	m.Each(func(tokens model.NGram, count int64) {
		if len(tokens) != m.N() {
			return
		}
		context := tokens.Context()
		// Context length is n-1 by construction, so the error is always nil.
		prob, _ := m.ConditionalProbability(tokens.LastToken(), context)
		key := context.Key()
		dists[key] = append(dists[key], TokenProbability{Token: tokens.LastToken(), Probability: prob})
	})
	return newGenerator(m.N(), dists, opts)
}

// NewNGramGeneratorFromDistributions rebuilds a generator from stored
// distributions keyed by context. The entries are re-sorted, so any input
// order yields the same generator.
func NewNGramGeneratorFromDistributions(n int, dists map[string][]TokenProbability, opts ...GeneratorOption) (*NGramGenerator, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, n)
	}
	owned := make(map[string][]TokenProbability, len(dists))
	for key, dist := range dists {
		if len(model.ParseKey(key)) != n-1 {
			return nil, fmt.Errorf("%w: context %q", ErrContextLength, model.ParseKey(key).String())
		}
		copied := make([]TokenProbability, len(dist))
		copy(copied, dist)
		owned[key] = copied
	}
	return newGenerator(n, owned, opts), nil
}

func newGenerator(n int, dists map[string][]TokenProbability, opts []GeneratorOption) *NGramGenerator {
	for _, dist := range dists {
		sortDistribution(dist)
	}
	g := &NGramGenerator{
		n:      n,
		probs:  dists,
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// sortDistribution orders by probability descending, then by token descending
func sortDistribution(dist []TokenProbability) {
	sort.Slice(dist, func(i, j int) bool {
		if dist[i].Probability != dist[j].Probability {
			return dist[i].Probability > dist[j].Probability
		}
		return dist[i].Token > dist[j].Token
	})
}

// N returns the order of the underlying model
func (g *NGramGenerator) N() int {
	return g.n
}

// GenerateToken samples the next token after prev, which must hold exactly
// n-1 tokens. Sampling from a context that was never observed returns
// ErrUnknownContext.
func (g *NGramGenerator) GenerateToken(prev []string) (string, error) {
	if len(prev) != g.n-1 {
		return "", fmt.Errorf("%w: got %d tokens, want %d", ErrContextLength, len(prev), g.n-1)
	}
	dist := g.probs[model.NGram(prev).Key()]
	if len(dist) == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownContext, model.NGram(prev).String())
	}

	r := g.random.Float64()
	cumulative := 0.0
	for _, tp := range dist {
		cumulative += tp.Probability
		if cumulative >= r {
			return tp.Token, nil
		}
	}
	// Rounding can leave the total mass just below r.
	return dist[len(dist)-1].Token, nil
}

// GenerateSentence samples tokens starting from n-1 start markers until the
// end marker is drawn. The returned sentence excludes the end marker. With a
// token cap configured, a sentence that would exceed it is returned truncated
// together with ErrTokenLimit.
func (g *NGramGenerator) GenerateSentence() ([]string, error) {
	context := make([]string, g.n-1)
	for i := range context {
		context[i] = model.StartMarker
	}

	sent := []string{}
	for {
		token, err := g.GenerateToken(context)
		if err != nil {
			return sent, err
		}
		if token == model.EndMarker {
			return sent, nil
		}
		if g.maxTokens > 0 && len(sent) >= g.maxTokens {
			return sent, fmt.Errorf("%w: %d tokens", ErrTokenLimit, g.maxTokens)
		}
		sent = append(sent, token)

		if g.n > 1 {
			copy(context, context[1:])
			context[g.n-2] = token
		}
	}
}

// Distribution returns a copy of the sorted distribution for prev, or nil if
// the context was never observed
func (g *NGramGenerator) Distribution(prev []string) []TokenProbability {
	dist, ok := g.probs[model.NGram(prev).Key()]
	if !ok {
		return nil
	}
	copied := make([]TokenProbability, len(dist))
	copy(copied, dist)
	return copied
}

// Contexts returns every observed context in key order
func (g *NGramGenerator) Contexts() []model.NGram {
	keys := make([]string, 0, len(g.probs))
	for key := range g.probs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	contexts := make([]model.NGram, len(keys))
	for i, key := range keys {
		contexts[i] = model.ParseKey(key)
	}
	return contexts
}
