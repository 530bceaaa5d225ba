package graphstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ngramlm/internal/config"
)

// GraphDatabase runs Cypher queries against a graph backend and returns rows
// as column name -> value maps. Node values are returned as their property
// maps.
type GraphDatabase interface {
	VerifyConnectivity(ctx context.Context) error
	ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// Backend names accepted by Open
const (
	BackendKuzu  = "kuzu"
	BackendNeo4j = "neo4j"
)

// Open connects to the configured backend and verifies the connection
func Open(ctx context.Context, cfg *config.Config, backend string, logger *zap.Logger) (GraphDatabase, error) {
	var (
		db  GraphDatabase
		err error
	)

	switch backend {
	case BackendKuzu:
		path := cfg.Kuzu.Path
		if path == "" {
			path = ":memory:"
			logger.Info("No Kuzu database path configured, using in-memory database")
		}
		db, err = NewKuzuDatabase(path, logger)
	case BackendNeo4j:
		db, err = NewNeo4jDatabase(ctx, cfg.Neo4j, logger)
	default:
		return nil, fmt.Errorf("unknown graph backend: %s", backend)
	}
	if err != nil {
		return nil, err
	}

	if err := db.VerifyConnectivity(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to verify database connectivity: %w", err)
	}
	return db, nil
}

func singleRecord(records []map[string]any, err error) (map[string]any, error) {
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records returned")
	}
	if len(records) > 1 {
		return nil, fmt.Errorf("expected single record, got %d", len(records))
	}
	return records[0], nil
}

// toInt64 normalizes the integer types the drivers return
func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", value)
	}
}
