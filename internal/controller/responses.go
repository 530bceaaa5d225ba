package controller

import (
	"encoding/json"
	"math"

	"ngramlm/internal/service/ngram"
)

// jsonFloat encodes infinities and NaN as the strings "+Inf", "-Inf" and
// "NaN", which plain JSON numbers cannot carry
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(v)
}

type NGramScoreResponse struct {
	NGram        []string  `json:"ngram"`
	NGramCount   int64     `json:"ngram_count"`
	ContextCount int64     `json:"context_count"`
	Probability  float64   `json:"probability"`
	LogProb      jsonFloat `json:"log_prob"`
}

type ScoreResponse struct {
	Tokens         []string                    `json:"tokens"`
	Probability    float64                     `json:"probability"`
	LogProbability jsonFloat                   `json:"log_probability"`
	CrossEntropy   jsonFloat                   `json:"cross_entropy"`
	ZScore         float64                     `json:"z_score"`
	Interpretation *ngram.ZScoreInterpretation `json:"interpretation,omitempty"`
	NGramScores    []NGramScoreResponse        `json:"ngram_scores"`
}

func newScoreResponse(score *ngram.SentenceScore) ScoreResponse {
	details := make([]NGramScoreResponse, len(score.NGramScores))
	for i, d := range score.NGramScores {
		details[i] = NGramScoreResponse{
			NGram:        d.NGram,
			NGramCount:   d.NGramCount,
			ContextCount: d.ContextCount,
			Probability:  d.Probability,
			LogProb:      jsonFloat(d.LogProb),
		}
	}
	return ScoreResponse{
		Tokens:         score.Tokens,
		Probability:    score.Probability,
		LogProbability: jsonFloat(score.LogProbability),
		CrossEntropy:   jsonFloat(score.CrossEntropy),
		ZScore:         score.ZScore,
		Interpretation: score.Interpretation,
		NGramScores:    details,
	}
}

type EvaluationResponse struct {
	Sentences       int                   `json:"sentences"`
	Skipped         int                   `json:"skipped"`
	TokenCount      int                   `json:"token_count"`
	LogProbability  jsonFloat             `json:"log_probability"`
	CrossEntropy    jsonFloat             `json:"cross_entropy"`
	Perplexity      jsonFloat             `json:"perplexity"`
	ZeroProbability int                   `json:"zero_probability"`
	SentenceStats   ngram.ScoreStatistics `json:"sentence_stats"`
}

func newEvaluationResponse(eval *ngram.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		Sentences:       eval.Sentences,
		Skipped:         eval.Skipped,
		TokenCount:      eval.TokenCount,
		LogProbability:  jsonFloat(eval.LogProbability),
		CrossEntropy:    jsonFloat(eval.CrossEntropy),
		Perplexity:      jsonFloat(eval.Perplexity),
		ZeroProbability: eval.ZeroProbability,
		SentenceStats:   eval.SentenceStats,
	}
}
