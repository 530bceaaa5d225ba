package ngram

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	model "ngramlm/internal/model/ngram"
	"ngramlm/internal/service/tokenizer"
	"ngramlm/internal/util"
)

const maxLineBytes = 1024 * 1024

// ReadSentences reads one sentence per line, tokenizing each line on its own.
// Blank lines are skipped. Use it with line-oriented tokenizers such as
// TextTokenizer.
func ReadSentences(ctx context.Context, r io.Reader, tok tokenizer.Tokenizer) ([][]string, error) {
	var sents [][]string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		tokens, err := tok.Tokenize(ctx, scanner.Bytes())
		if err != nil {
			return nil, fmt.Errorf("tokenization failed: %w", err)
		}
		if len(tokens) == 0 {
			continue
		}
		sent := make([]string, len(tokens))
		for i, token := range tokens {
			sent[i] = tok.Normalize(token)
		}
		sents = append(sents, sent)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sentences: %w", err)
	}
	return sents, nil
}

// CodeSentences groups tokens of a whole source file into sentences, one per
// source line, normalizing each token
func CodeSentences(tokens model.TokenSequence, tok tokenizer.Tokenizer) [][]string {
	var sents [][]string
	line := -1
	for _, token := range tokens {
		if token.Line != line || len(sents) == 0 {
			sents = append(sents, nil)
			line = token.Line
		}
		sents[len(sents)-1] = append(sents[len(sents)-1], tok.Normalize(token))
	}
	return sents
}

// Corpus loads training and test sentences from files and directories
type Corpus struct {
	registry   *tokenizer.TokenizerRegistry
	logger     *zap.Logger
	numWorkers int
}

// NewCorpus creates a corpus loader that picks tokenizers from the registry
// and reads files with numWorkers goroutines
func NewCorpus(registry *tokenizer.TokenizerRegistry, numWorkers int, logger *zap.Logger) *Corpus {
	if numWorkers < 1 {
		numWorkers = 2
	}
	return &Corpus{
		registry:   registry,
		logger:     logger,
		numWorkers: numWorkers,
	}
}

// LoadFile reads the sentences of a single file
func (c *Corpus) LoadFile(ctx context.Context, path string) ([][]string, error) {
	tok, ok := c.registry.GetTokenizerForPath(path)
	if !ok {
		return nil, fmt.Errorf("no tokenizer for file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if tok.Language() == "text" {
		return ReadSentences(ctx, file, tok)
	}

	source, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	tokens, err := tok.Tokenize(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}
	return CodeSentences(tokens, tok), nil
}

// LoadPath reads every supported file under path, which may also be a single
// file. Sentences are returned grouped by file in path order so that training
// on the same tree is reproducible.
func (c *Corpus) LoadPath(ctx context.Context, path string) ([][]string, error) {
	var (
		mu     sync.Mutex
		byFile = make(map[string][][]string)
		failed int
	)

	err := util.WalkDirTree(ctx, path,
		func(file string) error {
			sents, err := c.LoadFile(ctx, file)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return err
			}
			byFile[file] = sents
			return nil
		},
		func(p string, isDir bool) bool {
			if isDir {
				return util.SkipDefaultDirs(p, isDir)
			}
			_, ok := c.registry.GetTokenizerForPath(p)
			return !ok
		},
		c.logger,
		c.numWorkers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus: %w", err)
	}
	if len(byFile) == 0 {
		return nil, fmt.Errorf("no readable corpus files under %s", path)
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	var sents [][]string
	for _, file := range files {
		sents = append(sents, byFile[file]...)
	}

	c.logger.Info("Loaded corpus",
		zap.String("path", path),
		zap.Int("files", len(files)),
		zap.Int("failed", failed),
		zap.Int("sentences", len(sents)))

	return sents, nil
}

// LoadPaths loads every path in order and concatenates the sentences
func (c *Corpus) LoadPaths(ctx context.Context, paths []string) ([][]string, error) {
	var sents [][]string
	for _, path := range paths {
		loaded, err := c.LoadPath(ctx, path)
		if err != nil {
			return nil, err
		}
		sents = append(sents, loaded...)
	}
	return sents, nil
}
