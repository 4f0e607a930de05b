package relational

import (
	"context"

	"hpoextend/internal/ontology"
)

// RunRepository persists ontology snapshots and annotation runs.
type RunRepository interface {
	// Migrate creates or updates the database schema.
	Migrate(ctx context.Context) error
	// InsertOntology replaces the stored ontology snapshot.
	InsertOntology(ctx context.Context, g *ontology.Graph) (OntologyRows, error)
	// InsertRun persists one run and the rows it wrote.
	InsertRun(ctx context.Context, run Run, rows []ExtendedRow) error
	// Close releases database resources.
	Close() error
}

// RunReader answers questions about stored runs.
type RunReader interface {
	QueryRuns(ctx context.Context, limit int) ([]RunSummary, error)
	QueryCategoryCounts(ctx context.Context, runID string) ([]CategoryCount, error)
	QueryAncestors(ctx context.Context, termID string) ([]string, error)
}

var (
	_ RunRepository = (*Repo)(nil)
	_ RunReader     = (*Repo)(nil)
)
