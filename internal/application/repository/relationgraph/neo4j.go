package relationgraph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"

	"github.com/faqrag/engine/internal/types/interfaces"
)

// Neo4jGraph is the pluggable persistent-graph backend for large
// document sets (SPEC_FULL DOMAIN STACK), reachable through the same
// RelationGraph interface as InProcessGraph, which remains the default.
// Documents are modeled as (:Document {id}) nodes connected by
// :SAME_CATEGORY / :SAME_INTENT / :CLARIFYING_TOPIC relationships,
// mirroring the in-process adjacency this backend supersedes.
type Neo4jGraph struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jGraph connects to uri with basic auth.
func NewNeo4jGraph(uri, username, password string) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}
	return &Neo4jGraph{driver: driver}, nil
}

// Close releases the driver's connection pool.
func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// Neighbors traverses up to maxHops SAME_CATEGORY|SAME_INTENT|
// CLARIFYING_TOPIC relationships outward from docID.
func (g *Neo4jGraph) Neighbors(ctx context.Context, docID string, maxHops int) ([]string, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (d:Document {id: $id})-[:SAME_CATEGORY|SAME_INTENT|CLARIFYING_TOPIC*1..%d]-(n:Document)
		RETURN DISTINCT n.id AS id`, maxHops)

	result, err := neo4j.ExecuteQuery(ctx, g.driver, query,
		map[string]interface{}{"id": docID},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(""))
	if err != nil {
		return nil, fmt.Errorf("traverse relation graph from %s: %w", docID, err)
	}

	ids := make([]string, 0, len(result.Records))
	for _, rec := range result.Records {
		if v, ok := rec.Get("id"); ok {
			if s, ok := v.(string); ok {
				ids = append(ids, s)
			}
		}
	}
	return ids, nil
}

var _ interfaces.RelationGraph = (*Neo4jGraph)(nil)
