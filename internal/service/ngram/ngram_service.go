package ngram

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"ngramlm/internal/config"
	"ngramlm/internal/service/tokenizer"
)

// ModelInfo describes a loaded model
type ModelInfo struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	N         int             `json:"n"`
	CreatedAt time.Time       `json:"created_at"`
	Stats     ModelStats      `json:"stats"`
	Training  ScoreStatistics `json:"training"`
}

// GraphExporter stores a model's counts in an external store
type GraphExporter interface {
	ExportModel(ctx context.Context, meta ModelMetadata, m *NGramModel) error
}

type modelEntry struct {
	model     *NGramModel
	generator *NGramGenerator
	meta      ModelMetadata
	mu        sync.Mutex // Serializes sampling; the generator's random source is stateful
}

func (e *modelEntry) info() ModelInfo {
	return ModelInfo{
		ID:        e.meta.ID,
		Name:      e.meta.Name,
		N:         e.model.N(),
		CreatedAt: e.meta.CreatedAt,
		Stats:     e.model.Stats(),
		Training:  e.meta.Training,
	}
}

// NGramService owns the named models and orchestrates training, scoring,
// generation and persistence
type NGramService struct {
	models      map[string]*modelEntry // model name -> entry
	registry    *tokenizer.TokenizerRegistry
	corpus      *Corpus
	persistence *NGramPersistence
	cfg         *config.Config
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewNGramService creates a new n-gram service storing models under
// cfg.App.ModelDir
func NewNGramService(cfg *config.Config, logger *zap.Logger) (*NGramService, error) {
	registry, err := tokenizer.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizers: %w", err)
	}

	// Initialize persistence
	persistence, err := NewNGramPersistence(cfg.App.ModelDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistence: %w", err)
	}

	return &NGramService{
		models:      make(map[string]*modelEntry),
		registry:    registry,
		corpus:      NewCorpus(registry, cfg.App.NumWorkers, logger),
		persistence: persistence,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Corpus returns the corpus loader used by the service
func (ns *NGramService) Corpus() *Corpus {
	return ns.corpus
}

func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (ns *NGramService) modelOptions(expectedEntries int) []ModelOption {
	if ns.cfg.App.CountTable == "trie" {
		return []ModelOption{WithCountTable(NewTrieCountTable(uint(expectedEntries), 0.01))}
	}
	return nil
}

func (ns *NGramService) newGenerator(m *NGramModel) *NGramGenerator {
	seed := ns.cfg.Generation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewNGramGenerator(m,
		WithRandom(rand.New(rand.NewSource(seed))),
		WithMaxTokens(ns.cfg.Generation.MaxTokens))
}

func (ns *NGramService) register(m *NGramModel, meta ModelMetadata) *modelEntry {
	entry := &modelEntry{
		model:     m,
		generator: ns.newGenerator(m),
		meta:      meta,
	}

	ns.mu.Lock()
	ns.models[meta.Name] = entry
	ns.mu.Unlock()
	return entry
}

func (ns *NGramService) entry(name string) (*modelEntry, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	entry, exists := ns.models[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return entry, nil
}

// Train builds a model from sentences and registers it under name, replacing
// any model of the same name. n = 0 selects the configured default order.
func (ns *NGramService) Train(ctx context.Context, name string, n int, sents [][]string) (*ModelInfo, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if n == 0 {
		n = ns.cfg.Generation.DefaultOrder
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := NewNGramModel(n, sents, ns.modelOptions(len(sents)*8)...)
	if err != nil {
		return nil, err
	}

	meta := NewModelMetadata(name)
	training, err := Evaluate(m, sents)
	switch {
	case err == nil:
		meta.Training = training.SentenceStats
	case errors.Is(err, ErrEmptyTestSet):
		// A corpus of empty sentences has nothing to summarize
	default:
		return nil, fmt.Errorf("failed to score training set: %w", err)
	}

	entry := ns.register(m, meta)
	info := entry.info()

	ns.logger.Info("Trained n-gram model",
		zap.String("name", name),
		zap.String("id", meta.ID),
		zap.Int("n", n),
		zap.Int("sentences", len(sents)),
		zap.Int("ngrams", info.Stats.NGramCount),
		zap.Int("vocabulary", info.Stats.VocabularySize))

	return &info, nil
}

// TrainFromPath trains a model on the corpus under path. When a saved model
// exists and override is false, the saved model is loaded instead, and the
// result is saved after training.
func (ns *NGramService) TrainFromPath(ctx context.Context, name string, n int, path string, override bool) (*ModelInfo, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	if !override && ns.persistence.ModelExists(name) {
		ns.logger.Info("Found existing n-gram model, loading from disk",
			zap.String("name", name))

		info, err := ns.Load(name)
		if err == nil {
			return info, nil
		}
		ns.logger.Warn("Failed to load existing model, will rebuild",
			zap.String("name", name),
			zap.Error(err))
	}

	sents, err := ns.corpus.LoadPath(ctx, path)
	if err != nil {
		return nil, err
	}

	info, err := ns.Train(ctx, name, n, sents)
	if err != nil {
		return nil, err
	}

	if err := ns.Save(name); err != nil {
		ns.logger.Error("Failed to save n-gram model",
			zap.String("name", name),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save model: %w", err)
	}
	return info, nil
}

// LoadConfigured trains or loads every model listed in the configuration
func (ns *NGramService) LoadConfigured(ctx context.Context) error {
	for _, mc := range ns.cfg.Models {
		if _, err := ns.TrainFromPath(ctx, mc.Name, mc.Order, mc.Path, mc.Override); err != nil {
			return fmt.Errorf("failed to prepare model %s: %w", mc.Name, err)
		}
	}
	return nil
}

// Tokenize splits text with the tokenizer of the given language into a single
// normalized token sequence. An empty language means plain text.
func (ns *NGramService) Tokenize(ctx context.Context, language, text string) ([]string, error) {
	if language == "" {
		language = "text"
	}
	tok, ok := ns.registry.GetTokenizer(language)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, language)
	}

	tokens, err := tok.Tokenize(ctx, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}
	sent := make([]string, 0, len(tokens))
	for _, token := range tokens {
		sent = append(sent, tok.Normalize(token))
	}
	return sent, nil
}

// Score computes the probability of a sentence with a per-token breakdown and
// compares it against the training set
func (ns *NGramService) Score(ctx context.Context, name string, sent []string) (*SentenceScore, error) {
	entry, err := ns.entry(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	steps, err := entry.model.Steps(sent)
	if err != nil {
		return nil, err
	}
	prob, err := entry.model.SentenceProbability(sent)
	if err != nil {
		return nil, err
	}
	logProb, err := entry.model.SentenceLogProbability(sent)
	if err != nil {
		return nil, err
	}

	details := make([]NGramScoreDetail, len(steps))
	for i, step := range steps {
		ngram := make([]string, 0, len(step.Context)+1)
		ngram = append(ngram, step.Context...)
		ngram = append(ngram, step.Token)
		details[i] = NGramScoreDetail{
			NGram:        ngram,
			NGramCount:   step.NGramCount,
			ContextCount: step.ContextCount,
			Probability:  step.Probability,
			LogProb:      step.LogProbability,
		}
	}

	score := &SentenceScore{
		Tokens:         sent,
		Probability:    prob,
		LogProbability: logProb,
		CrossEntropy:   -logProb / float64(len(steps)),
		NGramScores:    details,
	}
	if entry.meta.Training.Count > 0 && !math.IsInf(logProb, -1) {
		score.ZScore = ZScore(logProb, entry.meta.Training)
		interpretation := interpretZScore(score.ZScore)
		score.Interpretation = &interpretation
	}
	return score, nil
}

// Generate samples count sentences from the named model. count may not exceed
// generation.max_sentences.
func (ns *NGramService) Generate(ctx context.Context, name string, count int) ([][]string, error) {
	if limit := ns.cfg.Generation.MaxSentences; limit > 0 && count > limit {
		return nil, fmt.Errorf("%w: %d requested, limit is %d", ErrTooManySentences, count, limit)
	}
	entry, err := ns.entry(name)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	sents := make([][]string, 0)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sent, err := entry.generator.GenerateSentence()
		if err != nil {
			return nil, fmt.Errorf("failed to generate sentence %d: %w", i, err)
		}
		sents = append(sents, sent)
	}
	return sents, nil
}

// Distribution returns the next-token distribution after prev
func (ns *NGramService) Distribution(name string, prev []string) ([]TokenProbability, error) {
	entry, err := ns.entry(name)
	if err != nil {
		return nil, err
	}
	if len(prev) != entry.model.N()-1 {
		return nil, fmt.Errorf("%w: got %d tokens, want %d", ErrContextLength, len(prev), entry.model.N()-1)
	}
	dist := entry.generator.Distribution(prev)
	if dist == nil {
		return []TokenProbability{}, nil
	}
	return dist, nil
}

// Evaluate computes corpus metrics of the named model on a test set
func (ns *NGramService) Evaluate(ctx context.Context, name string, sents [][]string) (*Evaluation, error) {
	entry, err := ns.entry(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Evaluate(entry.model, sents)
}

// Model returns the named model and its metadata
func (ns *NGramService) Model(name string) (*NGramModel, ModelMetadata, error) {
	entry, err := ns.entry(name)
	if err != nil {
		return nil, ModelMetadata{}, err
	}
	return entry.model, entry.meta, nil
}

// Stats returns information about the named model
func (ns *NGramService) Stats(name string) (*ModelInfo, error) {
	entry, err := ns.entry(name)
	if err != nil {
		return nil, err
	}
	info := entry.info()
	return &info, nil
}

// List returns information about every loaded model, sorted by name
func (ns *NGramService) List() []ModelInfo {
	ns.mu.RLock()
	infos := make([]ModelInfo, 0, len(ns.models))
	for _, entry := range ns.models {
		infos = append(infos, entry.info())
	}
	ns.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Save writes the named model to the model directory
func (ns *NGramService) Save(name string) error {
	entry, err := ns.entry(name)
	if err != nil {
		return err
	}
	return ns.persistence.SaveModelFile(entry.model, entry.meta)
}

// Load reads a saved model from the model directory and registers it
func (ns *NGramService) Load(name string) (*ModelInfo, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !ns.persistence.ModelExists(name) {
		return nil, fmt.Errorf("%w: no saved model %s", ErrModelNotFound, name)
	}

	m, meta, err := ns.persistence.LoadModelFile(name)
	if err != nil {
		return nil, err
	}
	// The file name wins over the stored name so renamed files load under their new name
	meta.Name = name

	entry := ns.register(m, meta)
	info := entry.info()
	return &info, nil
}

// Saved lists the names of the models in the model directory
func (ns *NGramService) Saved() ([]string, error) {
	return ns.persistence.ListModels()
}

// Remove unloads the named model and, if deleteFile is set, deletes its file
func (ns *NGramService) Remove(name string, deleteFile bool) error {
	ns.mu.Lock()
	_, exists := ns.models[name]
	delete(ns.models, name)
	ns.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if deleteFile {
		return ns.persistence.DeleteModel(name)
	}
	return nil
}

// ExportGraph writes the named model's counts to a graph store
func (ns *NGramService) ExportGraph(ctx context.Context, name string, exporter GraphExporter) error {
	entry, err := ns.entry(name)
	if err != nil {
		return err
	}
	if err := exporter.ExportModel(ctx, entry.meta, entry.model); err != nil {
		return fmt.Errorf("failed to export model %s: %w", name, err)
	}
	ns.logger.Info("Exported n-gram model to graph store", zap.String("name", name))
	return nil
}

// interpretZScore provides a human-readable reading of a sentence's z-score
// against the training sentences
func interpretZScore(zScore float64) ZScoreInterpretation {
	var level, description string
	var percentile float64

	if zScore < -2.0 {
		level = "very_unlikely"
		description = "Less likely than 97.5% of training sentences"
		percentile = 2.5
	} else if zScore < -1.0 {
		level = "unlikely"
		description = "Less likely than 84% of training sentences"
		percentile = 16.0
	} else if zScore <= 1.0 {
		level = "typical"
		description = "Within 1 standard deviation of the training mean"
		percentile = 50.0
	} else if zScore <= 2.0 {
		level = "likely"
		description = "More likely than 84% of training sentences"
		percentile = 84.0
	} else {
		level = "very_likely"
		description = "More likely than 97.5% of training sentences"
		percentile = 97.5
	}

	return ZScoreInterpretation{
		Level:       level,
		Description: description,
		Percentile:  percentile,
	}
}

// SentenceScore contains the scoring results for a sentence
type SentenceScore struct {
	Tokens         []string              `json:"tokens"`
	Probability    float64               `json:"probability"`
	LogProbability float64               `json:"log_probability"`
	CrossEntropy   float64               `json:"cross_entropy"` // Bits per predicted token
	ZScore         float64               `json:"z_score"`
	Interpretation *ZScoreInterpretation `json:"interpretation,omitempty"`
	NGramScores    []NGramScoreDetail    `json:"ngram_scores"`
}

// NGramScoreDetail contains detailed information about a single n-gram
type NGramScoreDetail struct {
	NGram        []string `json:"ngram"`
	NGramCount   int64    `json:"ngram_count"`
	ContextCount int64    `json:"context_count"`
	Probability  float64  `json:"probability"`
	LogProb      float64  `json:"log_prob"`
}

// ZScoreInterpretation provides human-readable interpretation of z-score
type ZScoreInterpretation struct {
	Level       string  `json:"level"` // "very_unlikely", "unlikely", "typical", "likely", "very_likely"
	Description string  `json:"description"`
	Percentile  float64 `json:"percentile"` // Approximate percentile in the training set
}
