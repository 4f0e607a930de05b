package database

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"hpoextend/internal/database/graph"
	"hpoextend/internal/database/relational"
	"hpoextend/internal/output"
)

// Exporter persists a finished run: Payload -> DuckDB -> Neo4j. Either store
// may be nil; a nil store is skipped.
type Exporter struct {
	repo        relational.RunRepository
	graphClient graph.GraphClient
	logger      *zap.Logger
}

// NewExporter creates a new exporter instance.
func NewExporter(r relational.RunRepository, g graph.GraphClient, logger *zap.Logger) (*Exporter, error) {
	if r == nil && g == nil {
		return nil, errors.New("at least one of repo and graph client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		repo:        r,
		graphClient: g,
		logger:      logger,
	}, nil
}

// Export writes the payload's ontology and run to every configured store.
// Stores are written one after the other; the first failure stops the export.
func (e *Exporter) Export(ctx context.Context, p *output.PipelinePayload) error {
	if p == nil || p.Graph == nil {
		return errors.New("export: payload has no ontology")
	}

	if e.repo != nil {
		if err := e.exportRelational(ctx, p); err != nil {
			return fmt.Errorf("export duckdb: %w", err)
		}
	}
	if e.graphClient != nil {
		if err := e.exportGraph(ctx, p); err != nil {
			return fmt.Errorf("export neo4j: %w", err)
		}
	}
	return nil
}

func (e *Exporter) exportRelational(ctx context.Context, p *output.PipelinePayload) error {
	rows, err := e.repo.InsertOntology(ctx, p.Graph)
	if err != nil {
		return err
	}
	e.logger.Debug("ontology stored",
		zap.Int("terms", len(rows.Terms)),
		zap.Int("closure_rows", len(rows.Ancestors)))

	if err := e.repo.InsertRun(ctx, toRun(p), relational.ToExtendedRows(p.RunID, p.Rows)); err != nil {
		return err
	}
	e.logger.Info("run stored in duckdb",
		zap.String("run_id", p.RunID),
		zap.Int("rows", len(p.Rows)))
	return nil
}

// exportGraph prunes what the previous snapshot had before merging, so the
// graph matches the DuckDB snapshot term for term.
func (e *Exporter) exportGraph(ctx context.Context, p *output.PipelinePayload) error {
	pruned, err := e.graphClient.PruneOntology(ctx, p.Graph)
	if err != nil {
		return err
	}
	res, err := e.graphClient.IngestOntology(ctx, p.Graph)
	if err != nil {
		return err
	}
	stored, err := e.graphClient.CountTerms(ctx)
	if err != nil {
		return fmt.Errorf("count terms: %w", err)
	}
	e.logger.Info("ontology pushed to neo4j",
		zap.Int("terms", res.Terms),
		zap.Int("edges", res.Edges),
		zap.Int("batches", res.Batches),
		zap.Int("pruned_terms", pruned.Terms),
		zap.Int("pruned_edges", pruned.Edges),
		zap.Int64("terms_in_graph", stored))
	if stored != int64(res.Terms) {
		e.logger.Warn("neo4j term count differs from the ontology",
			zap.Int64("stored", stored),
			zap.Int("expected", res.Terms))
	}

	return e.graphClient.IngestRun(ctx, graph.RunNode{
		RunID:        p.RunID,
		StartedAt:    p.StartedAt,
		CategoryRoot: p.Summary.CategoryRoot,
		Written:      p.Stats.Written,
		Dropped:      p.Stats.Dropped,
		PerCategory:  p.Stats.PerCategory,
	})
}

// Close releases both stores.
func (e *Exporter) Close(ctx context.Context) error {
	var errs []error
	if e.repo != nil {
		errs = append(errs, e.repo.Close())
	}
	if e.graphClient != nil {
		errs = append(errs, e.graphClient.Close(ctx))
	}
	return errors.Join(errs...)
}

func toRun(p *output.PipelinePayload) relational.Run {
	return relational.Run{
		RunID:           p.RunID,
		StartedAt:       p.StartedAt,
		FinishedAt:      p.FinishedAt,
		OntologyPath:    p.Request.OntologyPath,
		AnnotationsPath: p.Request.AnnotationsPath,
		OutputPath:      p.Request.OutputPath,
		DataVersion:     p.Graph.DataVersion,
		CategoryRoot:    p.Summary.CategoryRoot,
		Lines:           p.Stats.Lines,
		Written:         p.Stats.Written,
		Dropped:         p.Stats.Dropped,
		SeverityLevel:   p.Verdict.SeverityLevel,
		RiskScore:       p.Verdict.RiskScore,
		Explanation:     p.Verdict.Explanation,
	}
}
