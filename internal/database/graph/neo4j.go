// Package graph mirrors the ontology DAG into Neo4j as (:Term)-[:IS_A]->(:Term)
// and records annotation runs against the category terms they hit.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"hpoextend/internal/ontology"
)

// DefaultBatchSize bounds the rows sent per UNWIND statement.
const DefaultBatchSize = 1000

// GraphClient defines the interface for graph database operations.
type GraphClient interface {
	Close(ctx context.Context) error
	PruneOntology(ctx context.Context, g *ontology.Graph) (PruneResult, error)
	IngestOntology(ctx context.Context, g *ontology.Graph) (IngestResult, error)
	IngestRun(ctx context.Context, run RunNode) error
	CountTerms(ctx context.Context) (int64, error)
	ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error)
}

// IngestResult counts what IngestOntology sent.
type IngestResult struct {
	Terms   int
	Edges   int
	Batches int
}

// PruneResult counts what PruneOntology removed.
type PruneResult struct {
	Terms int
	Edges int
}

// RunNode is an annotation run and the categories it wrote rows for.
type RunNode struct {
	RunID        string
	StartedAt    time.Time
	CategoryRoot string
	Written      int
	Dropped      int
	PerCategory  map[string]int
}

// Neo4jClient implements GraphClient for Neo4j.
type Neo4jClient struct {
	driver    neo4j.DriverWithContext
	dbName    string
	batchSize int
}

// NewNeo4jClient creates a new Neo4j client.
func NewNeo4jClient(uri, username, password, dbName string, timeout time.Duration) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return &Neo4jClient{
		driver:    driver,
		dbName:    dbName,
		batchSize: DefaultBatchSize,
	}, nil
}

func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Neo4jClient) session(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
}

// PruneOntology deletes the :Term nodes and IS_A edges that g no longer
// has. Run nodes survive; their links to deleted terms go with the terms.
func (c *Neo4jClient) PruneOntology(ctx context.Context, g *ontology.Graph) (PruneResult, error) {
	session := c.session(ctx)
	defer session.Close(ctx)

	params := pruneParams(g)
	var res PruneResult

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res = PruneResult{}

		edges, err := tx.Run(ctx, pruneEdgesCypher, params)
		if err != nil {
			return nil, err
		}
		summary, err := edges.Consume(ctx)
		if err != nil {
			return nil, err
		}
		res.Edges = summary.Counters().RelationshipsDeleted()

		terms, err := tx.Run(ctx, pruneTermsCypher, params)
		if err != nil {
			return nil, err
		}
		summary, err = terms.Consume(ctx)
		if err != nil {
			return nil, err
		}
		res.Terms = summary.Counters().NodesDeleted()
		return nil, nil
	})
	if err != nil {
		return res, fmt.Errorf("prune ontology: %w", err)
	}
	return res, nil
}

// IngestOntology merges every term and is_a edge of g. Terms go first so
// every edge statement finds both endpoints.
func (c *Neo4jClient) IngestOntology(ctx context.Context, g *ontology.Graph) (IngestResult, error) {
	session := c.session(ctx)
	defer session.Close(ctx)

	var res IngestResult

	if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, "CREATE CONSTRAINT term_id IF NOT EXISTS FOR (t:Term) REQUIRE t.id IS UNIQUE", nil)
	}); err != nil {
		return res, fmt.Errorf("create term constraint: %w", err)
	}

	terms, edges := ontologyRows(g)
	res.Terms, res.Edges = len(terms), len(edges)

	for _, batch := range batches(terms, c.batchSize) {
		if err := c.writeBatch(ctx, session, mergeTermsCypher, batch); err != nil {
			return res, fmt.Errorf("merge terms: %w", err)
		}
		res.Batches++
	}
	for _, batch := range batches(edges, c.batchSize) {
		if err := c.writeBatch(ctx, session, mergeEdgesCypher, batch); err != nil {
			return res, fmt.Errorf("merge is_a edges: %w", err)
		}
		res.Batches++
	}
	return res, nil
}

// IngestRun creates a :Run node linked to each category term it hit.
func (c *Neo4jClient) IngestRun(ctx context.Context, run RunNode) error {
	session := c.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, createRunCypher, runParams(run))
		return nil, err
	})
	return err
}

func (c *Neo4jClient) writeBatch(ctx context.Context, session neo4j.SessionWithContext, query string, rows []map[string]any) error {
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, map[string]any{"rows": rows})
	})
	return err
}

const mergeTermsCypher = `
	UNWIND $rows AS row
	MERGE (t:Term {id: row.id})
	SET t.name = row.name,
		t.alt_ids = row.alt_ids,
		t.depth = row.depth,
		t.is_root = row.is_root
`

const mergeEdgesCypher = `
	UNWIND $rows AS row
	MATCH (c:Term {id: row.child})
	MATCH (p:Term {id: row.parent})
	MERGE (c)-[:IS_A]->(p)
`

const pruneEdgesCypher = `
	MATCH (c:Term)-[r:IS_A]->(p:Term)
	WHERE NOT (c.id + '>' + p.id) IN $edges
	DELETE r
`

const pruneTermsCypher = `
	MATCH (t:Term)
	WHERE NOT t.id IN $ids
	DETACH DELETE t
`

const createRunCypher = `
	CREATE (r:Run {
		run_id: $run_id,
		started_at: $started_at,
		category_root: $category_root,
		written: $written,
		dropped: $dropped
	})
	WITH r
	UNWIND $categories AS cat
	MATCH (t:Term {id: cat.id})
	CREATE (r)-[:CLASSIFIED {rows: cat.rows}]->(t)
`

// ontologyRows builds the UNWIND parameter rows, ordered by term id.
func ontologyRows(g *ontology.Graph) (terms, edges []map[string]any) {
	depths := g.Depths()
	for _, t := range g.Terms() {
		alt := t.AltIDs
		if alt == nil {
			alt = []string{}
		}
		terms = append(terms, map[string]any{
			"id":      t.ID,
			"name":    t.Name,
			"alt_ids": alt,
			"depth":   int64(depths[t.ID]),
			"is_root": t.IsRoot(),
		})
		for _, pid := range t.ParentIDs() {
			edges = append(edges, map[string]any{"child": t.ID, "parent": pid})
		}
	}
	return terms, edges
}

// pruneParams lists the term ids and "child>parent" edge keys to keep.
func pruneParams(g *ontology.Graph) map[string]any {
	terms := g.Terms()
	ids := make([]string, 0, len(terms))
	edges := []string{}
	for _, t := range terms {
		ids = append(ids, t.ID)
		for _, pid := range t.ParentIDs() {
			edges = append(edges, t.ID+">"+pid)
		}
	}
	return map[string]any{"ids": ids, "edges": edges}
}

func runParams(run RunNode) map[string]any {
	cats := make([]map[string]any, 0, len(run.PerCategory))
	for _, id := range sortedCategoryIDs(run.PerCategory) {
		if n := run.PerCategory[id]; n > 0 {
			cats = append(cats, map[string]any{"id": id, "rows": int64(n)})
		}
	}
	return map[string]any{
		"run_id":        run.RunID,
		"started_at":    run.StartedAt.Format(time.RFC3339),
		"category_root": run.CategoryRoot,
		"written":       int64(run.Written),
		"dropped":       int64(run.Dropped),
		"categories":    cats,
	}
}

func batches(rows []map[string]any, size int) [][]map[string]any {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]map[string]any
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}

// CountTerms returns the number of :Term nodes in the database.
func (c *Neo4jClient) CountTerms(ctx context.Context) (int64, error) {
	rows, err := c.ExecuteCypher(ctx, "MATCH (t:Term) RETURN count(t) AS n")
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := rows[0]["n"].(int64)
	return n, nil
}
