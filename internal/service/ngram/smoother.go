package ngram

import "math"

// Smoother turns raw n-gram and context counts into probabilities. It is the
// seam where discounting strategies plug in behind ConditionalProbability.
type Smoother interface {
	// Smooth computes the probability of an n-gram given its context
	// ngramCount: count of the full n-gram
	// contextCount: count of the context (n-1 gram)
	// vocabularySize: size of the vocabulary
	Smooth(ngramCount, contextCount int64, vocabularySize int) float64

	// LogSmooth computes the base-2 log of the same probability directly from
	// the counts
	LogSmooth(ngramCount, contextCount int64, vocabularySize int) float64

	// Name returns the name of the smoothing algorithm
	Name() string
}

// MaximumLikelihood is the unsmoothed relative-frequency estimate
type MaximumLikelihood struct{}

// NewMaximumLikelihood creates the maximum-likelihood smoother
func NewMaximumLikelihood() *MaximumLikelihood {
	return &MaximumLikelihood{}
}

// Smooth returns ngramCount/contextCount, or 0 for a context that was never
// observed
func (s *MaximumLikelihood) Smooth(ngramCount, contextCount int64, vocabularySize int) float64 {
	if contextCount == 0 {
		return 0
	}
	return float64(ngramCount) / float64(contextCount)
}

// LogSmooth returns log2(ngramCount) - log2(contextCount) with log2(0) = -Inf.
// A step where both counts are 0 is -Inf rather than NaN.
func (s *MaximumLikelihood) LogSmooth(ngramCount, contextCount int64, vocabularySize int) float64 {
	if ngramCount == 0 && contextCount == 0 {
		return math.Inf(-1)
	}
	return log2(ngramCount) - log2(contextCount)
}

func (s *MaximumLikelihood) Name() string {
	return "MLE"
}

func log2(count int64) float64 {
	if count == 0 {
		return math.Inf(-1)
	}
	return math.Log2(float64(count))
}
