package ngram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	m, err := NewNGramModel(2, [][]string{{"a", "b"}, {"a", "c"}})
	require.NoError(t, err)

	eval, err := Evaluate(m, [][]string{{"a", "b"}, {"a", "c"}})
	require.NoError(t, err)

	assert.Equal(t, 2, eval.Sentences)
	assert.Equal(t, 6, eval.TokenCount)
	assert.Equal(t, -2.0, eval.LogProbability)
	assert.InDelta(t, 1.0/3.0, eval.CrossEntropy, 1e-12)
	assert.InDelta(t, math.Cbrt(2), eval.Perplexity, 1e-12)
	assert.Equal(t, 0, eval.ZeroProbability)

	assert.Equal(t, 2, eval.SentenceStats.Count)
	assert.Equal(t, -1.0, eval.SentenceStats.Mean)
	assert.Equal(t, 0.0, eval.SentenceStats.StdDev)
	assert.Equal(t, -1.0, eval.SentenceStats.Median)
}

func TestEvaluateUnseenAndEmpty(t *testing.T) {
	m, err := NewNGramModel(2, [][]string{{"a", "b"}, {"a", "c"}})
	require.NoError(t, err)

	eval, err := Evaluate(m, [][]string{{"a", "b"}, {"a", "z"}, {}})
	require.NoError(t, err)

	assert.Equal(t, 2, eval.Sentences)
	assert.Equal(t, 1, eval.Skipped)
	assert.Equal(t, 1, eval.ZeroProbability)
	assert.True(t, math.IsInf(eval.LogProbability, -1))
	assert.True(t, math.IsInf(eval.CrossEntropy, 1))
	assert.True(t, math.IsInf(eval.Perplexity, 1))
	assert.Equal(t, 1, eval.SentenceStats.Count)
	assert.Equal(t, -1.0, eval.SentenceStats.Max)
}

func TestEvaluateTerminatedSentence(t *testing.T) {
	m, err := NewNGramModel(2, [][]string{{"a", "b"}})
	require.NoError(t, err)

	eval, err := Evaluate(m, [][]string{{"a", "b", "</s>"}})
	require.NoError(t, err)
	assert.Equal(t, 3, eval.TokenCount, "an existing end marker is not predicted twice")
	assert.Equal(t, 0.0, eval.LogProbability)
	assert.Equal(t, 1.0, eval.Perplexity)
}

func TestEvaluateEmptyTestSet(t *testing.T) {
	m, err := NewNGramModel(2, testCorpus)
	require.NoError(t, err)

	_, err = Evaluate(m, nil)
	assert.ErrorIs(t, err, ErrEmptyTestSet)

	_, err = Evaluate(m, [][]string{{}, {}})
	assert.ErrorIs(t, err, ErrEmptyTestSet)
}

func TestEvaluateMatchesSentenceScores(t *testing.T) {
	m, err := NewNGramModel(3, testCorpus)
	require.NoError(t, err)

	eval, err := Evaluate(m, testCorpus)
	require.NoError(t, err)

	total, tokens := 0.0, 0
	for _, sent := range testCorpus {
		logProb, err := m.SentenceLogProbability(sent)
		require.NoError(t, err)
		total += logProb
		tokens += len(sent) + 1
	}
	assert.InDelta(t, total, eval.LogProbability, 1e-9)
	assert.Equal(t, tokens, eval.TokenCount)
	assert.InDelta(t, math.Exp2(-total/float64(tokens)), eval.Perplexity, 1e-9)
	assert.LessOrEqual(t, eval.SentenceStats.Min, eval.SentenceStats.Mean)
	assert.GreaterOrEqual(t, eval.SentenceStats.Max, eval.SentenceStats.Mean)
}

func TestZScore(t *testing.T) {
	summary := ScoreStatistics{Mean: -10, StdDev: 2}
	assert.Equal(t, 1.5, ZScore(-7, summary))
	assert.Equal(t, 0.0, ZScore(-7, ScoreStatistics{Mean: -10}))
}
