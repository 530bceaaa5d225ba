package graphstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	model "ngramlm/internal/model/ngram"
	"ngramlm/internal/service/ngram"
)

// NGramGraph stores model count tables in a graph database. Every stored
// tuple becomes an NGram node, and each context node has a CONTINUES edge to
// every n-gram extending it.
type NGramGraph struct {
	db     GraphDatabase
	logger *zap.Logger
}

func NewNGramGraph(db GraphDatabase, logger *zap.Logger) *NGramGraph {
	return &NGramGraph{
		db:     db,
		logger: logger,
	}
}

func nodeID(modelName string, tokens model.NGram) string {
	return modelName + ":" + tokens.Key()
}

// ExportModel replaces the stored copy of the model with its current counts
func (g *NGramGraph) ExportModel(ctx context.Context, meta ngram.ModelMetadata, m *ngram.NGramModel) error {
	if err := g.DeleteModel(ctx, meta.Name); err != nil {
		return err
	}

	_, err := g.db.ExecuteWrite(ctx,
		"CREATE (lm:LanguageModel {name: $name, id: $id, n: $n, createdAt: $createdAt})",
		map[string]any{
			"name":      meta.Name,
			"id":        meta.ID,
			"n":         int64(m.N()),
			"createdAt": meta.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	if err != nil {
		return fmt.Errorf("failed to write model node: %w", err)
	}

	entries := m.Entries()
	for _, entry := range entries {
		_, err := g.db.ExecuteWrite(ctx,
			"CREATE (g:NGram {id: $id, model: $model, gram: $gram, text: $text, arity: $arity, frequency: $frequency})",
			map[string]any{
				"id":        nodeID(meta.Name, entry.Tokens),
				"model":     meta.Name,
				"gram":      entry.Tokens.Key(),
				"text":      entry.Tokens.String(),
				"arity":     int64(len(entry.Tokens)),
				"frequency": entry.Count,
			})
		if err != nil {
			return fmt.Errorf("failed to write n-gram %q: %w", entry.Tokens.String(), err)
		}
	}

	edges := 0
	for _, entry := range entries {
		if len(entry.Tokens) != m.N() {
			continue
		}
		_, err := g.db.ExecuteWrite(ctx,
			"MATCH (c:NGram {id: $from}), (g:NGram {id: $to}) CREATE (c)-[:CONTINUES]->(g)",
			map[string]any{
				"from": nodeID(meta.Name, entry.Tokens.Context()),
				"to":   nodeID(meta.Name, entry.Tokens),
			})
		if err != nil {
			return fmt.Errorf("failed to link n-gram %q: %w", entry.Tokens.String(), err)
		}
		edges++
	}

	g.logger.Info("Exported model to graph",
		zap.String("model", meta.Name),
		zap.Int("nodes", len(entries)),
		zap.Int("edges", edges))
	return nil
}

// DeleteModel removes the stored model and all of its n-grams. Deleting a
// model that was never exported is not an error.
func (g *NGramGraph) DeleteModel(ctx context.Context, modelName string) error {
	params := map[string]any{"model": modelName}
	if _, err := g.db.ExecuteWrite(ctx, "MATCH (g:NGram) WHERE g.model = $model DETACH DELETE g", params); err != nil {
		return fmt.Errorf("failed to delete n-grams of %s: %w", modelName, err)
	}
	if _, err := g.db.ExecuteWrite(ctx, "MATCH (lm:LanguageModel) WHERE lm.name = $model DELETE lm", params); err != nil {
		return fmt.Errorf("failed to delete model %s: %w", modelName, err)
	}
	return nil
}

// Models returns the names of the stored models
func (g *NGramGraph) Models(ctx context.Context) ([]string, error) {
	records, err := g.db.ExecuteRead(ctx, "MATCH (lm:LanguageModel) RETURN lm.name AS name ORDER BY name", nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, record := range records {
		if name, ok := record["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// LoadModel rebuilds a stored model. The counts are checked for consistency
// the same way a persisted model file is.
func (g *NGramGraph) LoadModel(ctx context.Context, modelName string, opts ...ngram.ModelOption) (*ngram.NGramModel, ngram.ModelMetadata, error) {
	record, err := singleRecord(g.db.ExecuteRead(ctx,
		"MATCH (lm:LanguageModel) WHERE lm.name = $model RETURN lm.id AS id, lm.n AS n, lm.createdAt AS createdAt",
		map[string]any{"model": modelName}))
	if err != nil {
		return nil, ngram.ModelMetadata{}, fmt.Errorf("%w: %s: %v", ngram.ErrModelNotFound, modelName, err)
	}

	n, err := toInt64(record["n"])
	if err != nil {
		return nil, ngram.ModelMetadata{}, fmt.Errorf("invalid order for model %s: %w", modelName, err)
	}
	meta := ngram.ModelMetadata{Name: modelName}
	meta.ID, _ = record["id"].(string)
	if createdAt, ok := record["createdAt"].(string); ok {
		meta.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	}

	records, err := g.db.ExecuteRead(ctx,
		"MATCH (g:NGram) WHERE g.model = $model RETURN g.gram AS gram, g.frequency AS frequency",
		map[string]any{"model": modelName})
	if err != nil {
		return nil, ngram.ModelMetadata{}, fmt.Errorf("failed to read n-grams of %s: %w", modelName, err)
	}

	entries := make([]ngram.NGramWithCount, 0, len(records))
	for _, record := range records {
		gram, ok := record["gram"].(string)
		if !ok {
			return nil, ngram.ModelMetadata{}, fmt.Errorf("n-gram of %s has no gram key", modelName)
		}
		count, err := toInt64(record["frequency"])
		if err != nil {
			return nil, ngram.ModelMetadata{}, fmt.Errorf("invalid count for n-gram of %s: %w", modelName, err)
		}
		entries = append(entries, ngram.NGramWithCount{Tokens: model.ParseKey(gram), Count: count})
	}

	m, err := ngram.NewNGramModelFromCounts(int(n), entries, opts...)
	if err != nil {
		return nil, ngram.ModelMetadata{}, err
	}
	return m, meta, nil
}

// TopContinuations returns up to limit tokens following prev in the
// stored model, most probable first. Ties go to the larger token.
func (g *NGramGraph) TopContinuations(ctx context.Context, modelName string, prev []string, limit int) ([]ngram.TokenProbability, error) {
	if limit <= 0 {
		return []ngram.TokenProbability{}, nil
	}

	query := fmt.Sprintf(`
		MATCH (c:NGram {id: $id})-[:CONTINUES]->(g:NGram)
		RETURN g.gram AS gram, g.frequency AS frequency, c.frequency AS total
		ORDER BY frequency DESC, gram DESC
		LIMIT %d
	`, limit)

	records, err := g.db.ExecuteRead(ctx, query, map[string]any{"id": nodeID(modelName, prev)})
	if err != nil {
		return nil, fmt.Errorf("failed to read continuations: %w", err)
	}

	dist := make([]ngram.TokenProbability, 0, len(records))
	for _, record := range records {
		gram, _ := record["gram"].(string)
		count, err := toInt64(record["frequency"])
		if err != nil {
			return nil, err
		}
		total, err := toInt64(record["total"])
		if err != nil {
			return nil, err
		}
		dist = append(dist, ngram.TokenProbability{
			Token:       model.ParseKey(gram).LastToken(),
			Probability: float64(count) / float64(total),
		})
	}
	return dist, nil
}
