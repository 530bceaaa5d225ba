package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ngramlm/internal/service/ngram"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// NGramMCPServer exposes the loaded language models as MCP tools
type NGramMCPServer struct {
	server       *mcp.Server
	ngramService *ngram.NGramService
	logger       *zap.Logger
	handler      *mcp.StreamableHTTPHandler
}

type ScoreSentenceParams struct {
	ModelName string `json:"model_name" jsonschema:"the name of the loaded model"`
	Text      string `json:"text" jsonschema:"the sentence to score"`
	Language  string `json:"language,omitempty" jsonschema:"tokenizer language: text (default), go, python, java, javascript or typescript"`
}

type GenerateSentencesParams struct {
	ModelName string `json:"model_name" jsonschema:"the name of the loaded model"`
	Count     int    `json:"count,omitempty" jsonschema:"number of sentences to generate, default 1"`
}

type ModelStatsParams struct {
	ModelName string `json:"model_name,omitempty" jsonschema:"the name of the model; all loaded models when empty"`
}

func NewNGramMCPServer(ngramService *ngram.NGramService, logger *zap.Logger) *NGramMCPServer {
	server := &NGramMCPServer{
		ngramService: ngramService,
		logger:       logger,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "NGramLM",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "scoreSentence",
		Description: "Score a sentence with an n-gram language model. Returns the probability, base-2 log-probability, per-token breakdown and how the sentence compares to the training set",
	}, server.handleScoreSentence)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "generateSentences",
		Description: "Sample sentences from an n-gram language model",
	}, server.handleGenerateSentences)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "modelStats",
		Description: "Describe loaded n-gram models: order, vocabulary size, n-gram counts and training statistics",
	}, server.handleModelStats)

	server.handler = mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	server.server = mcpServer
	return server
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func (s *NGramMCPServer) handleScoreSentence(ctx context.Context, req *mcp.CallToolRequest, args ScoreSentenceParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling scoreSentence request", zap.String("model_name", args.ModelName))

	sentence, err := s.ngramService.Tokenize(ctx, args.Language, args.Text)
	if err != nil {
		return errorResult("Failed to tokenize text: %v", err), nil, nil
	}

	score, err := s.ngramService.Score(ctx, args.ModelName, sentence)
	if err != nil {
		s.logger.Error("Failed to score sentence", zap.String("model_name", args.ModelName), zap.Error(err))
		return errorResult("Failed to score sentence: %v", err), nil, nil
	}

	return textResult(formatScore(score)), nil, nil
}

func (s *NGramMCPServer) handleGenerateSentences(ctx context.Context, req *mcp.CallToolRequest, args GenerateSentencesParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling generateSentences request", zap.String("model_name", args.ModelName), zap.Int("count", args.Count))

	count := args.Count
	if count <= 0 {
		count = 1
	}
	sentences, err := s.ngramService.Generate(ctx, args.ModelName, count)
	if err != nil {
		s.logger.Error("Failed to generate sentences", zap.String("model_name", args.ModelName), zap.Error(err))
		return errorResult("Failed to generate sentences: %v", err), nil, nil
	}

	lines := make([]string, len(sentences))
	for i, sent := range sentences {
		lines[i] = strings.Join(sent, " ")
	}
	return textResult(strings.Join(lines, "\n")), nil, nil
}

func (s *NGramMCPServer) handleModelStats(ctx context.Context, req *mcp.CallToolRequest, args ModelStatsParams) (*mcp.CallToolResult, any, error) {
	var infos []ngram.ModelInfo
	if args.ModelName == "" {
		infos = s.ngramService.List()
	} else {
		info, err := s.ngramService.Stats(args.ModelName)
		if err != nil {
			return errorResult("Failed to get model stats: %v", err), nil, nil
		}
		infos = []ngram.ModelInfo{*info}
	}

	if len(infos) == 0 {
		return textResult("No models loaded."), nil, nil
	}

	var result strings.Builder
	for i, info := range infos {
		if i > 0 {
			result.WriteString("\n")
		}
		result.WriteString(formatModelInfo(info))
	}
	return textResult(result.String()), nil, nil
}

func formatScore(score *ngram.SentenceScore) string {
	var result strings.Builder

	result.WriteString(fmt.Sprintf("Tokens: %s\n", strings.Join(score.Tokens, " ")))
	result.WriteString(fmt.Sprintf("Probability: %g\n", score.Probability))
	result.WriteString(fmt.Sprintf("Log2 probability: %.4f\n", score.LogProbability))
	result.WriteString(fmt.Sprintf("Cross-entropy: %.4f bits/token\n", score.CrossEntropy))
	if score.Interpretation != nil {
		result.WriteString(fmt.Sprintf("Z-score: %.2f (%s: %s)\n", score.ZScore, score.Interpretation.Level, score.Interpretation.Description))
	}

	result.WriteString("Steps:\n")
	for _, d := range score.NGramScores {
		result.WriteString(fmt.Sprintf("  %s  %d/%d  p=%.4f\n", strings.Join(d.NGram, " "), d.NGramCount, d.ContextCount, d.Probability))
	}
	return result.String()
}

func formatModelInfo(info ngram.ModelInfo) string {
	var result strings.Builder

	result.WriteString(fmt.Sprintf("Model %s (id %s)\n", info.Name, info.ID))
	result.WriteString(fmt.Sprintf("  order: %d\n", info.N))
	result.WriteString(fmt.Sprintf("  vocabulary: %d\n", info.Stats.VocabularySize))
	result.WriteString(fmt.Sprintf("  n-grams: %d distinct, %d total\n", info.Stats.NGramCount, info.Stats.TotalNGrams))
	result.WriteString(fmt.Sprintf("  contexts: %d\n", info.Stats.ContextCount))
	result.WriteString(fmt.Sprintf("  count table: %s, estimator: %s\n", info.Stats.CountTable, info.Stats.SmootherName))
	if mem := info.Stats.Memory; mem != nil {
		result.WriteString(fmt.Sprintf("  trie: %d nodes, %d interned tokens, ~%d bytes\n",
			mem.TotalNodes, mem.VocabularySize, mem.TotalMemoryBytes()))
	}
	if info.Training.Count > 0 {
		result.WriteString(fmt.Sprintf("  training log2 probability: mean %.4f, std %.4f over %d sentences\n",
			info.Training.Mean, info.Training.StdDev, info.Training.Count))
	}
	return result.String()
}

// SetupHTTPRoutes mounts the streamable HTTP transport at /mcp
func (s *NGramMCPServer) SetupHTTPRoutes(router *gin.Engine) {
	router.Any("/mcp", gin.WrapH(s.handler))
}
