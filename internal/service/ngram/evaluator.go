package ngram

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	model "ngramlm/internal/model/ngram"
)

// Evaluation aggregates sentence log-probabilities over a test set
type Evaluation struct {
	Sentences       int             `json:"sentences"`        // Sentences scored
	Skipped         int             `json:"skipped"`          // Empty sentences ignored
	TokenCount      int             `json:"token_count"`      // Predicted tokens, end markers included
	LogProbability  float64         `json:"log_probability"`  // Sum of base-2 sentence log-probabilities
	CrossEntropy    float64         `json:"cross_entropy"`    // -LogProbability / TokenCount
	Perplexity      float64         `json:"perplexity"`       // 2^CrossEntropy
	ZeroProbability int             `json:"zero_probability"` // Sentences with -Inf log-probability
	SentenceStats   ScoreStatistics `json:"sentence_stats"`   // Over finite sentence log-probabilities
}

// ScoreStatistics summarizes a set of per-sentence scores
type ScoreStatistics struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// Evaluate scores every sentence of the test set. A single unseen step makes
// the corpus log-probability -Inf and the perplexity +Inf.
func Evaluate(m *NGramModel, sents [][]string) (*Evaluation, error) {
	eval := &Evaluation{}
	var finite stats.Float64Data

	for _, sent := range sents {
		if len(sent) == 0 {
			eval.Skipped++
			continue
		}
		logProb, err := m.SentenceLogProbability(sent)
		if err != nil {
			return nil, fmt.Errorf("failed to score sentence %d: %w", eval.Sentences+eval.Skipped, err)
		}

		eval.Sentences++
		eval.TokenCount += len(model.Pad(sent, m.N())) - (m.N() - 1)
		eval.LogProbability += logProb
		if math.IsInf(logProb, -1) {
			eval.ZeroProbability++
		} else {
			finite = append(finite, logProb)
		}
	}
	if eval.Sentences == 0 {
		return nil, ErrEmptyTestSet
	}

	eval.CrossEntropy = -eval.LogProbability / float64(eval.TokenCount)
	eval.Perplexity = math.Exp2(eval.CrossEntropy)

	summary, err := summarize(finite)
	if err != nil {
		return nil, err
	}
	eval.SentenceStats = summary
	return eval, nil
}

func summarize(data stats.Float64Data) (ScoreStatistics, error) {
	if len(data) == 0 {
		return ScoreStatistics{}, nil
	}

	var (
		summary = ScoreStatistics{Count: len(data)}
		err     error
	)
	if summary.Mean, err = stats.Mean(data); err != nil {
		return ScoreStatistics{}, fmt.Errorf("failed to compute mean: %w", err)
	}
	if summary.StdDev, err = stats.StandardDeviation(data); err != nil {
		return ScoreStatistics{}, fmt.Errorf("failed to compute standard deviation: %w", err)
	}
	if summary.Min, err = stats.Min(data); err != nil {
		return ScoreStatistics{}, fmt.Errorf("failed to compute min: %w", err)
	}
	if summary.Max, err = stats.Max(data); err != nil {
		return ScoreStatistics{}, fmt.Errorf("failed to compute max: %w", err)
	}
	if summary.Median, err = stats.Median(data); err != nil {
		return ScoreStatistics{}, fmt.Errorf("failed to compute median: %w", err)
	}
	return summary, nil
}

// ZScore returns how many standard deviations value lies from the mean
func ZScore(value float64, summary ScoreStatistics) float64 {
	if summary.StdDev == 0 {
		return 0
	}
	return (value - summary.Mean) / summary.StdDev
}
