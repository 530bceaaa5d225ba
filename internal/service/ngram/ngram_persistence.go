package ngram

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/golang/snappy"
	"github.com/google/uuid"
	"go.uber.org/zap"

	model "ngramlm/internal/model/ngram"
)

const (
	formatVersion   = "2.0"
	modelFileSuffix = "_ngram.gob"
)

// ModelMetadata identifies a persisted model or generator
type ModelMetadata struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"created_at"`
	Training  ScoreStatistics `json:"training"` // Sentence log-probabilities of the training set
}

// NewModelMetadata assigns a fresh ID to a named model
func NewModelMetadata(name string) ModelMetadata {
	return ModelMetadata{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// SerializableNGramModel is a serializable representation of the n-gram model
type SerializableNGramModel struct {
	Version      string    // Format version
	ID           string    // Model ID
	Name         string    // Model name
	N            int       // N-gram size
	CountTable   string    // Count table implementation
	SmootherName string    // Smoother type
	CreatedAt    time.Time // When the model was created
	Training     ScoreStatistics
	Entries      []SerializableCount
	BloomBits    uint // Trie bloom filter size, 0 for map tables
	BloomHashes  uint // Trie bloom filter hash functions
}

// SerializableCount is one row of the count table
type SerializableCount struct {
	Tokens []string
	Count  int64
}

// SerializableNGramGenerator is a serializable representation of the
// generator's sorted distributions
type SerializableNGramGenerator struct {
	Version       string
	ID            string
	Name          string
	N             int
	CreatedAt     time.Time
	Contexts      [][]string
	Distributions [][]TokenProbability
}

// SaveModel writes a snappy-compressed gob blob of the model's counts
func SaveModel(w io.Writer, m *NGramModel, meta ModelMetadata) error {
	stats := m.Stats()
	blob := &SerializableNGramModel{
		Version:      formatVersion,
		ID:           meta.ID,
		Name:         meta.Name,
		N:            m.N(),
		CountTable:   stats.CountTable,
		SmootherName: stats.SmootherName,
		CreatedAt:    meta.CreatedAt,
		Training:     meta.Training,
	}
	if trie, ok := m.counts.(*NGramTrie); ok {
		blob.BloomBits, blob.BloomHashes = trie.FilterParams()
	}
	for _, entry := range m.Entries() {
		blob.Entries = append(blob.Entries, SerializableCount{Tokens: entry.Tokens, Count: entry.Count})
	}
	return encode(w, blob)
}

// LoadModel reads a blob written by SaveModel. The count table implementation
// recorded in the blob is restored.
func LoadModel(r io.Reader) (*NGramModel, ModelMetadata, error) {
	var blob SerializableNGramModel
	if err := decode(r, &blob); err != nil {
		return nil, ModelMetadata{}, err
	}
	if blob.Version != formatVersion {
		return nil, ModelMetadata{}, fmt.Errorf("unsupported model format version %q", blob.Version)
	}
	if blob.SmootherName != "" && blob.SmootherName != NewMaximumLikelihood().Name() {
		return nil, ModelMetadata{}, fmt.Errorf("unsupported smoother %q", blob.SmootherName)
	}

	entries := make([]NGramWithCount, len(blob.Entries))
	for i, entry := range blob.Entries {
		entries[i] = NGramWithCount{Tokens: model.NGram(entry.Tokens), Count: entry.Count}
	}

	var opts []ModelOption
	if blob.CountTable == "trie" {
		trie := NewTrieCountTable(uint(len(entries)), 0.01)
		if blob.BloomBits > 0 && blob.BloomHashes > 0 {
			trie = newTrieWithFilter(bloom.New(blob.BloomBits, blob.BloomHashes))
		}
		opts = append(opts, WithCountTable(trie))
	}
	m, err := NewNGramModelFromCounts(blob.N, entries, opts...)
	if err != nil {
		return nil, ModelMetadata{}, fmt.Errorf("failed to rebuild model: %w", err)
	}

	return m, ModelMetadata{ID: blob.ID, Name: blob.Name, CreatedAt: blob.CreatedAt, Training: blob.Training}, nil
}

// SaveGenerator writes a snappy-compressed gob blob of the generator's sorted
// distributions
func SaveGenerator(w io.Writer, g *NGramGenerator, meta ModelMetadata) error {
	blob := &SerializableNGramGenerator{
		Version:   formatVersion,
		ID:        meta.ID,
		Name:      meta.Name,
		N:         g.N(),
		CreatedAt: meta.CreatedAt,
	}
	for _, context := range g.Contexts() {
		blob.Contexts = append(blob.Contexts, context)
		blob.Distributions = append(blob.Distributions, g.Distribution(context))
	}
	return encode(w, blob)
}

// LoadGenerator reads a blob written by SaveGenerator
func LoadGenerator(r io.Reader, opts ...GeneratorOption) (*NGramGenerator, ModelMetadata, error) {
	var blob SerializableNGramGenerator
	if err := decode(r, &blob); err != nil {
		return nil, ModelMetadata{}, err
	}
	if blob.Version != formatVersion {
		return nil, ModelMetadata{}, fmt.Errorf("unsupported generator format version %q", blob.Version)
	}
	if len(blob.Contexts) != len(blob.Distributions) {
		return nil, ModelMetadata{}, fmt.Errorf("generator blob has %d contexts but %d distributions", len(blob.Contexts), len(blob.Distributions))
	}

	dists := make(map[string][]TokenProbability, len(blob.Contexts))
	for i, context := range blob.Contexts {
		dists[model.NGram(context).Key()] = blob.Distributions[i]
	}
	g, err := NewNGramGeneratorFromDistributions(blob.N, dists, opts...)
	if err != nil {
		return nil, ModelMetadata{}, fmt.Errorf("failed to rebuild generator: %w", err)
	}

	return g, ModelMetadata{ID: blob.ID, Name: blob.Name, CreatedAt: blob.CreatedAt}, nil
}

func encode(w io.Writer, v any) error {
	sw := snappy.NewBufferedWriter(w)
	if err := gob.NewEncoder(sw).Encode(v); err != nil {
		sw.Close()
		return fmt.Errorf("failed to encode: %w", err)
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

func decode(r io.Reader, v any) error {
	if err := gob.NewDecoder(snappy.NewReader(r)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}

// NGramPersistence handles saving and loading named models in a directory
type NGramPersistence struct {
	outputDir string
	logger    *zap.Logger
}

// NewNGramPersistence creates a new persistence manager
func NewNGramPersistence(outputDir string, logger *zap.Logger) (*NGramPersistence, error) {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &NGramPersistence{
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// GetModelPath returns the file path for a named model
func (p *NGramPersistence) GetModelPath(name string) string {
	return filepath.Join(p.outputDir, name+modelFileSuffix)
}

// SaveModelFile saves a model to its file, replacing any previous version
func (p *NGramPersistence) SaveModelFile(m *NGramModel, meta ModelMetadata) error {
	modelPath := p.GetModelPath(meta.Name)
	tmp, err := os.CreateTemp(p.outputDir, meta.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := SaveModel(tmp, m, meta); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), modelPath); err != nil {
		return fmt.Errorf("failed to move model into place: %w", err)
	}

	p.logger.Info("Saved n-gram model",
		zap.String("name", meta.Name),
		zap.String("id", meta.ID),
		zap.String("path", modelPath),
		zap.Int("n", m.N()))

	return nil
}

// LoadModelFile loads a named model from disk
func (p *NGramPersistence) LoadModelFile(name string) (*NGramModel, ModelMetadata, error) {
	modelPath := p.GetModelPath(name)

	file, err := os.Open(modelPath)
	if os.IsNotExist(err) {
		return nil, ModelMetadata{}, fmt.Errorf("no saved model found: %s", name)
	}
	if err != nil {
		return nil, ModelMetadata{}, fmt.Errorf("failed to open model: %w", err)
	}
	defer file.Close()

	m, meta, err := LoadModel(file)
	if err != nil {
		return nil, ModelMetadata{}, fmt.Errorf("failed to load %s: %w", modelPath, err)
	}

	p.logger.Info("Loaded n-gram model",
		zap.String("name", name),
		zap.String("id", meta.ID),
		zap.String("path", modelPath),
		zap.Int("n", m.N()))

	return m, meta, nil
}

// ModelExists checks if a saved model exists
func (p *NGramPersistence) ModelExists(name string) bool {
	_, err := os.Stat(p.GetModelPath(name))
	return err == nil
}

// DeleteModel deletes a saved model
func (p *NGramPersistence) DeleteModel(name string) error {
	if err := os.Remove(p.GetModelPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	p.logger.Info("Deleted n-gram model", zap.String("name", name))
	return nil
}

// ListModels returns the names of all saved models in sorted order
func (p *NGramPersistence) ListModels() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(p.outputDir, "*"+modelFileSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(match), modelFileSuffix))
	}
	sort.Strings(names)
	return names, nil
}
