package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ngramlm/internal/service/ngram"
	"ngramlm/internal/service/tokenizer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// readCorpus loads sentences from the given files and directories, or from
// stdin as one whitespace-tokenized sentence per line when there are none
func readCorpus(ctx context.Context, paths []string, stdin io.Reader) ([][]string, error) {
	if len(paths) == 0 {
		return ngram.ReadSentences(ctx, stdin, tokenizer.NewTextTokenizer(false))
	}

	registry, err := tokenizer.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	return ngram.NewCorpus(registry, cfg.App.NumWorkers, logger).LoadPaths(ctx, paths)
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func loadModelFile(path string) (*ngram.NGramModel, ngram.ModelMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, ngram.ModelMetadata{}, err
	}
	defer file.Close()
	return ngram.LoadModel(file)
}

func trainCmd() *cobra.Command {
	var (
		order         int
		output        string
		name          string
		countTable    string
		generatorPath string
	)

	cmd := &cobra.Command{
		Use:   "train [INPUT...]",
		Short: "train an n-gram model on files, directories or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if order == 0 {
				order = cfg.Generation.DefaultOrder
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
			}

			sents, err := readCorpus(ctx, args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var opts []ngram.ModelOption
			switch countTable {
			case "map":
			case "trie":
				opts = append(opts, ngram.WithCountTable(ngram.NewTrieCountTable(uint(len(sents)*8), 0.01)))
			default:
				return fmt.Errorf("unknown count table %q, want map or trie", countTable)
			}

			m, err := ngram.NewNGramModel(order, sents, opts...)
			if err != nil {
				return err
			}

			meta := ngram.NewModelMetadata(name)
			if training, err := ngram.Evaluate(m, sents); err == nil {
				meta.Training = training.SentenceStats
			} else if !errors.Is(err, ngram.ErrEmptyTestSet) {
				return err
			}

			if err := writeFile(output, func(w io.Writer) error { return ngram.SaveModel(w, m, meta) }); err != nil {
				return fmt.Errorf("failed to write model: %w", err)
			}

			stats := m.Stats()
			logger.Info("Trained n-gram model",
				zap.String("name", name),
				zap.String("output", output),
				zap.Int("n", order),
				zap.Int("sentences", len(sents)),
				zap.Int("ngrams", stats.NGramCount),
				zap.Int("vocabulary", stats.VocabularySize))

			if generatorPath != "" {
				gen := ngram.NewNGramGenerator(m)
				if err := writeFile(generatorPath, func(w io.Writer) error { return ngram.SaveGenerator(w, gen, meta) }); err != nil {
					return fmt.Errorf("failed to write generator: %w", err)
				}
				logger.Info("Wrote generator", zap.String("output", generatorPath))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&order, "order", "n", 0, "order of the model (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "model file to write")
	cmd.Flags().StringVar(&name, "name", "", "model name (default: output file name)")
	cmd.Flags().StringVar(&countTable, "count-table", "map", "count table: map or trie")
	cmd.Flags().StringVar(&generatorPath, "generator", "", "also write a generator file")
	cmd.MarkFlagRequired("output")

	return cmd
}
