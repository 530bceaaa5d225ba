package main

import (
	"fmt"

	"ngramlm/internal/service/ngram"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func evalCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "eval [INPUT...]",
		Short: "compute log-probability, cross-entropy and perplexity of a test set",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, meta, err := loadModelFile(input)
			if err != nil {
				return err
			}

			sents, err := readCorpus(cmd.Context(), args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			eval, err := ngram.Evaluate(m, sents)
			if err != nil {
				return err
			}

			logger.Debug("Evaluated model",
				zap.String("name", meta.Name),
				zap.Int("sentences", eval.Sentences),
				zap.Int("skipped", eval.Skipped))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Log probability: %v\n", eval.LogProbability)
			fmt.Fprintf(out, "Cross entropy: %v\n", eval.CrossEntropy)
			fmt.Fprintf(out, "Perplexity: %v\n", eval.Perplexity)
			fmt.Fprintf(out, "Sentences: %d (%d with zero probability)\n", eval.Sentences, eval.ZeroProbability)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "model file to evaluate")
	cmd.MarkFlagRequired("input")

	return cmd
}
