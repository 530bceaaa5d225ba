package graphstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ngramlm/internal/config"
	"ngramlm/internal/service/ngram"
)

var corpus = [][]string{
	{"el", "gato", "come", "pescado", "."},
	{"la", "gata", "come", "salmón", "."},
	{"unos", "gatos", "comen", "pescado", "."},
}

func newKuzuGraph(t *testing.T) *NGramGraph {
	t.Helper()
	db, err := NewKuzuDatabase(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(context.Background()) })
	return NewNGramGraph(db, zap.NewNop())
}

func exportRoundTrip(t *testing.T, graph *NGramGraph) {
	ctx := context.Background()

	for _, n := range []int{1, 2, 3} {
		m, err := ngram.NewNGramModel(n, corpus)
		require.NoError(t, err)
		meta := ngram.NewModelMetadata("spanish")

		require.NoError(t, graph.ExportModel(ctx, meta, m))

		loaded, loadedMeta, err := graph.LoadModel(ctx, "spanish")
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, meta.ID, loadedMeta.ID)
		assert.True(t, meta.CreatedAt.Equal(loadedMeta.CreatedAt))
		assert.Equal(t, n, loaded.N())
		assert.Equal(t, m.Entries(), loaded.Entries())
		assert.Equal(t, m.Vocabulary(), loaded.Vocabulary())
	}

	names, err := graph.Models(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"spanish"}, names, "re-export replaces the stored model")
}

func TestNGramGraphKuzuRoundTrip(t *testing.T) {
	exportRoundTrip(t, newKuzuGraph(t))
}

func TestNGramGraphTopContinuations(t *testing.T) {
	graph := newKuzuGraph(t)
	ctx := context.Background()

	m, err := ngram.NewNGramModel(2, corpus)
	require.NoError(t, err)
	require.NoError(t, graph.ExportModel(ctx, ngram.NewModelMetadata("spanish"), m))

	// "come" is followed by "pescado" and "salmón" once each; ties go to the larger token
	top, err := graph.TopContinuations(ctx, "spanish", []string{"come"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []ngram.TokenProbability{
		{Token: "salmón", Probability: 0.5},
		{Token: "pescado", Probability: 0.5},
	}, top)

	gen := ngram.NewNGramGenerator(m)
	assert.Equal(t, gen.Distribution([]string{"come"}), top)

	limited, err := graph.TopContinuations(ctx, "spanish", []string{"<s>"}, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "unos", limited[0].Token)

	unknown, err := graph.TopContinuations(ctx, "spanish", []string{"perro"}, 5)
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestNGramGraphMissingModel(t *testing.T) {
	graph := newKuzuGraph(t)
	ctx := context.Background()

	_, _, err := graph.LoadModel(ctx, "missing")
	assert.ErrorIs(t, err, ngram.ErrModelNotFound)
	assert.NoError(t, graph.DeleteModel(ctx, "missing"))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.Default(), "sqlite", zap.NewNop())
	assert.Error(t, err)
}

func TestNGramGraphNeo4jRoundTrip(t *testing.T) {
	uri := os.Getenv("NGRAMLM_NEO4J_URI")
	if uri == "" {
		t.Skip("NGRAMLM_NEO4J_URI not set")
	}

	cfg := config.Default()
	cfg.Neo4j.URI = uri
	cfg.Neo4j.Username = os.Getenv("NGRAMLM_NEO4J_USERNAME")
	cfg.Neo4j.Password = os.Getenv("NGRAMLM_NEO4J_PASSWORD")

	ctx := context.Background()
	db, err := Open(ctx, cfg, BackendNeo4j, zap.NewNop())
	require.NoError(t, err)
	defer db.Close(ctx)

	graph := NewNGramGraph(db, zap.NewNop())
	t.Cleanup(func() { graph.DeleteModel(ctx, "spanish") })
	exportRoundTrip(t, graph)
}
