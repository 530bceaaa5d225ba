package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"ngramlm/internal/config"
)

// Neo4jDatabase implements the GraphDatabase interface on a Neo4j server
type Neo4jDatabase struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewNeo4jDatabase creates a driver for the configured server and ensures
// the n-gram id constraint exists
func NewNeo4jDatabase(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (*Neo4jDatabase, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j.uri is required")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	db := &Neo4jDatabase{
		driver:   driver,
		database: cfg.Database,
		logger:   logger,
	}

	if _, err := db.ExecuteWrite(ctx, "CREATE CONSTRAINT ngram_id IF NOT EXISTS FOR (g:NGram) REQUIRE g.id IS UNIQUE", nil); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to initialize Neo4j schema: %w", err)
	}
	return db, nil
}

// VerifyConnectivity checks that the server is reachable
func (db *Neo4jDatabase) VerifyConnectivity(ctx context.Context) error {
	if err := db.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}
	return nil
}

// Close closes the driver
func (db *Neo4jDatabase) Close(ctx context.Context) error {
	return db.driver.Close(ctx)
}

// ExecuteRead executes a read-only Cypher query routed to readers
func (db *Neo4jDatabase) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return db.executeQuery(ctx, query, params, neo4j.ExecuteQueryWithReadersRouting())
}

// ExecuteWrite executes a Cypher query routed to writers
func (db *Neo4jDatabase) ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return db.executeQuery(ctx, query, params, neo4j.ExecuteQueryWithWritersRouting())
}

func (db *Neo4jDatabase) executeQuery(ctx context.Context, query string, params map[string]any, routing neo4j.ExecuteQueryConfigurationOption) ([]map[string]any, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{routing}
	if db.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(db.database))
	}

	result, err := neo4j.ExecuteQuery(ctx, db.driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		db.logger.Error("Failed to execute Neo4j query",
			zap.String("query", query),
			zap.Error(err))
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	records := make([]map[string]any, 0, len(result.Records))
	for _, record := range result.Records {
		row := record.AsMap()
		for key, value := range row {
			if node, ok := value.(neo4j.Node); ok {
				row[key] = node.Props
			}
		}
		records = append(records, row)
	}
	return records, nil
}
