package ngram

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ngramlm/internal/config"
)

func newTestService(t *testing.T, modify ...func(*config.Config)) *NGramService {
	t.Helper()
	cfg := config.Default()
	cfg.App.ModelDir = t.TempDir()
	cfg.Generation.Seed = 1
	for _, fn := range modify {
		fn(cfg)
	}
	ns, err := NewNGramService(cfg, zap.NewNop())
	require.NoError(t, err)
	return ns
}

type recordingExporter struct {
	meta    ModelMetadata
	entries []NGramWithCount
}

func (r *recordingExporter) ExportModel(ctx context.Context, meta ModelMetadata, m *NGramModel) error {
	r.meta = meta
	r.entries = m.Entries()
	return nil
}

func TestServiceTrainAndQuery(t *testing.T) {
	ns := newTestService(t)
	ctx := context.Background()

	info, err := ns.Train(ctx, "spanish", 0, testCorpus)
	require.NoError(t, err)
	assert.Equal(t, "spanish", info.Name)
	assert.Equal(t, 2, info.N, "order 0 selects the configured default")
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, len(testCorpus), info.Training.Count)

	score, err := ns.Score(ctx, "spanish", []string{"el", "gato", "come", "pescado", "."})
	require.NoError(t, err)
	assert.Len(t, score.NGramScores, 6)
	assert.Equal(t, []string{"<s>", "el"}, score.NGramScores[0].NGram)
	assert.Greater(t, score.Probability, 0.0)
	require.NotNil(t, score.Interpretation)

	unseen, err := ns.Score(ctx, "spanish", []string{"el", "unicornio"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, unseen.Probability)
	assert.Nil(t, unseen.Interpretation)

	_, err = ns.Score(ctx, "spanish", nil)
	assert.ErrorIs(t, err, ErrEmptySentence)

	sents, err := ns.Generate(ctx, "spanish", 5)
	require.NoError(t, err)
	assert.Len(t, sents, 5)

	dist, err := ns.Distribution("spanish", []string{"come"})
	require.NoError(t, err)
	assert.Len(t, dist, 3)

	_, err = ns.Distribution("spanish", []string{"a", "b"})
	assert.ErrorIs(t, err, ErrContextLength)

	eval, err := ns.Evaluate(ctx, "spanish", testCorpus[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, eval.Sentences)

	stats, err := ns.Stats("spanish")
	require.NoError(t, err)
	assert.Equal(t, info.ID, stats.ID)
}

func TestServiceUnknownModel(t *testing.T) {
	ns := newTestService(t)
	ctx := context.Background()

	_, err := ns.Score(ctx, "missing", []string{"a"})
	assert.ErrorIs(t, err, ErrModelNotFound)
	_, err = ns.Generate(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrModelNotFound)
	_, err = ns.Stats("missing")
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.ErrorIs(t, ns.Remove("missing", false), ErrModelNotFound)
	_, err = ns.Load("missing")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestServiceRejectsBadInput(t *testing.T) {
	ns := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"", "../escape", "a/b", ".."} {
		_, err := ns.Train(ctx, name, 2, testCorpus)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}

	_, err := ns.Train(ctx, "bad", -1, testCorpus)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = ns.Tokenize(ctx, "cobol", "x")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestServiceGenerateTokenLimit(t *testing.T) {
	ns := newTestService(t, func(cfg *config.Config) { cfg.Generation.MaxTokens = 1 })
	ctx := context.Background()

	_, err := ns.Train(ctx, "long", 2, [][]string{{"a", "b", "c"}})
	require.NoError(t, err)

	_, err = ns.Generate(ctx, "long", 1)
	assert.ErrorIs(t, err, ErrTokenLimit)
}

func TestServiceGenerateSentenceLimit(t *testing.T) {
	ns := newTestService(t, func(cfg *config.Config) { cfg.Generation.MaxSentences = 2 })
	ctx := context.Background()

	_, err := ns.Train(ctx, "spanish", 2, testCorpus)
	require.NoError(t, err)

	_, err = ns.Generate(ctx, "spanish", 1<<60)
	assert.ErrorIs(t, err, ErrTooManySentences)

	_, err = ns.Generate(ctx, "spanish", 3)
	assert.ErrorIs(t, err, ErrTooManySentences)

	sents, err := ns.Generate(ctx, "spanish", 2)
	require.NoError(t, err)
	assert.Len(t, sents, 2)

	sents, err = ns.Generate(ctx, "spanish", 0)
	require.NoError(t, err)
	assert.Empty(t, sents)
}

func TestServiceSaveLoadRemove(t *testing.T) {
	ns := newTestService(t, func(cfg *config.Config) { cfg.App.CountTable = "trie" })
	ctx := context.Background()

	info, err := ns.Train(ctx, "spanish", 3, testCorpus)
	require.NoError(t, err)
	assert.Equal(t, "trie", info.Stats.CountTable)
	require.NoError(t, ns.Save("spanish"))

	saved, err := ns.Saved()
	require.NoError(t, err)
	assert.Equal(t, []string{"spanish"}, saved)

	require.NoError(t, ns.Remove("spanish", false))
	assert.Empty(t, ns.List())

	loaded, err := ns.Load("spanish")
	require.NoError(t, err)
	assert.Equal(t, info.ID, loaded.ID)
	assert.Equal(t, info.Stats, loaded.Stats)
	assert.Equal(t, info.Training, loaded.Training)

	require.NoError(t, ns.Remove("spanish", true))
	saved, err = ns.Saved()
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestServiceTrainFromPath(t *testing.T) {
	ns := newTestService(t)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.txt"), []byte("a b\na c\n"), 0644))

	first, err := ns.TrainFromPath(ctx, "letters", 2, dir, false)
	require.NoError(t, err)
	assert.True(t, ns.persistence.ModelExists("letters"))

	// a saved model is reused unless override is set
	again, err := ns.TrainFromPath(ctx, "letters", 2, dir, false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	retrained, err := ns.TrainFromPath(ctx, "letters", 2, dir, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, retrained.ID)

	m, _, err := ns.Model("letters")
	require.NoError(t, err)
	p, err := m.ConditionalProbability("b", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)
}

func TestServiceLoadConfigured(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.txt"), []byte("x y\n"), 0644))

	ns := newTestService(t, func(cfg *config.Config) {
		cfg.Models = []config.ModelConfig{{Name: "xy", Order: 1, Path: dir}}
	})
	require.NoError(t, ns.LoadConfigured(context.Background()))

	list := ns.List()
	require.Len(t, list, 1)
	assert.Equal(t, "xy", list[0].Name)
	assert.Equal(t, 1, list[0].N)
}

func TestServiceTokenizeAndExport(t *testing.T) {
	ns := newTestService(t)
	ctx := context.Background()

	sent, err := ns.Tokenize(ctx, "", "el gato")
	require.NoError(t, err)
	assert.Equal(t, []string{"el", "gato"}, sent)

	code, err := ns.Tokenize(ctx, "go", "x := 1")
	require.NoError(t, err)
	assert.Contains(t, code, "NUM")

	_, err = ns.Train(ctx, "spanish", 2, testCorpus)
	require.NoError(t, err)

	exporter := &recordingExporter{}
	require.NoError(t, ns.ExportGraph(ctx, "spanish", exporter))
	assert.Equal(t, "spanish", exporter.meta.Name)
	assert.NotEmpty(t, exporter.entries)
}

func TestInterpretZScore(t *testing.T) {
	assert.Equal(t, "very_unlikely", interpretZScore(-3).Level)
	assert.Equal(t, "unlikely", interpretZScore(-1.5).Level)
	assert.Equal(t, "typical", interpretZScore(0).Level)
	assert.Equal(t, "likely", interpretZScore(1.5).Level)
	assert.Equal(t, "very_likely", interpretZScore(3).Level)
}
