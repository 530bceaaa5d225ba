package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ngramlm/internal/config"
	"ngramlm/internal/service/ngram"
)

func newTestServer(t *testing.T, modify ...func(*config.Config)) *NGramMCPServer {
	t.Helper()
	cfg := config.Default()
	cfg.App.ModelDir = t.TempDir()
	cfg.Generation.Seed = 7
	for _, fn := range modify {
		fn(cfg)
	}

	ns, err := ngram.NewNGramService(cfg, zap.NewNop())
	require.NoError(t, err)
	_, err = ns.Train(context.Background(), "cats", 2, [][]string{
		{"el", "gato", "come"},
		{"el", "gato", "duerme"},
	})
	require.NoError(t, err)

	return NewNGramMCPServer(ns, zap.NewNop())
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestScoreSentenceTool(t *testing.T) {
	s := newTestServer(t)

	result, _, err := s.handleScoreSentence(context.Background(), nil, ScoreSentenceParams{ModelName: "cats", Text: "el gato come"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "Probability: 0.5")
	assert.Contains(t, text, "gato come  1/2")

	result, _, err = s.handleScoreSentence(context.Background(), nil, ScoreSentenceParams{ModelName: "dogs", Text: "el perro"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGenerateSentencesTool(t *testing.T) {
	s := newTestServer(t)

	result, _, err := s.handleGenerateSentences(context.Background(), nil, GenerateSentencesParams{ModelName: "cats", Count: 3})
	require.NoError(t, err)
	require.False(t, result.IsError)

	for _, line := range strings.Split(resultText(t, result), "\n") {
		assert.Contains(t, []string{"el gato come", "el gato duerme"}, line)
	}
}

func TestModelStatsTool(t *testing.T) {
	s := newTestServer(t)

	result, _, err := s.handleModelStats(context.Background(), nil, ModelStatsParams{})
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Model cats")
	assert.Contains(t, text, "order: 2")

	result, _, err = s.handleModelStats(context.Background(), nil, ModelStatsParams{ModelName: "dogs"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestModelStatsToolTrieMemory(t *testing.T) {
	result, _, err := newTestServer(t).handleModelStats(context.Background(), nil, ModelStatsParams{ModelName: "cats"})
	require.NoError(t, err)
	assert.NotContains(t, resultText(t, result), "trie:")

	s := newTestServer(t, func(cfg *config.Config) { cfg.App.CountTable = "trie" })
	result, _, err = s.handleModelStats(context.Background(), nil, ModelStatsParams{ModelName: "cats"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "count table: trie")
	assert.Contains(t, text, "trie: ")
	assert.Contains(t, text, "interned tokens")
}

func TestGenerateSentencesToolLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.Generation.MaxSentences = 2 })

	result, _, err := s.handleGenerateSentences(context.Background(), nil, GenerateSentencesParams{ModelName: "cats", Count: 1 << 60})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "too many sentences requested")
}
