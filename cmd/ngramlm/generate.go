package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"ngramlm/internal/service/ngram"

	"github.com/spf13/cobra"
)

func generateCmd() *cobra.Command {
	var (
		input         string
		count         int
		seed          int64
		fromGenerator bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "sample sentences from a trained model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed == 0 {
				seed = cfg.Generation.Seed
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			opts := []ngram.GeneratorOption{
				ngram.WithRandom(rand.New(rand.NewSource(seed))),
				ngram.WithMaxTokens(cfg.Generation.MaxTokens),
			}

			var gen *ngram.NGramGenerator
			if fromGenerator {
				file, err := os.Open(input)
				if err != nil {
					return err
				}
				gen, _, err = ngram.LoadGenerator(file, opts...)
				file.Close()
				if err != nil {
					return err
				}
			} else {
				m, _, err := loadModelFile(input)
				if err != nil {
					return err
				}
				gen = ngram.NewNGramGenerator(m, opts...)
			}

			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				sent, err := gen.GenerateSentence()
				if err != nil {
					return fmt.Errorf("sentence %d: %w", i, err)
				}
				fmt.Fprintln(out, strings.Join(sent, " "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "model file to sample from")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of sentences")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default from config, else the clock)")
	cmd.Flags().BoolVar(&fromGenerator, "from-generator", false, "input is a generator file written by train --generator")
	cmd.MarkFlagRequired("input")

	return cmd
}
