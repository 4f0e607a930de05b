package database_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpoextend/internal/database"
	"hpoextend/internal/database/graph"
	"hpoextend/internal/database/relational"
	"hpoextend/internal/engine"
	"hpoextend/internal/ontology"
	"hpoextend/internal/output"
)

// MockGraphClient records what the exporter sends.
type MockGraphClient struct {
	ingested  *ontology.Graph
	pruned    *ontology.Graph
	runs      []graph.RunNode
	calls     []string
	closed    bool
	pruneErr  error
	ingestErr error
}

func (m *MockGraphClient) Close(ctx context.Context) error { m.closed = true; return nil }
func (m *MockGraphClient) PruneOntology(ctx context.Context, g *ontology.Graph) (graph.PruneResult, error) {
	m.calls = append(m.calls, "prune")
	if m.pruneErr != nil {
		return graph.PruneResult{}, m.pruneErr
	}
	m.pruned = g
	return graph.PruneResult{Terms: 1, Edges: 2}, nil
}
func (m *MockGraphClient) IngestOntology(ctx context.Context, g *ontology.Graph) (graph.IngestResult, error) {
	m.calls = append(m.calls, "ingest")
	if m.ingestErr != nil {
		return graph.IngestResult{}, m.ingestErr
	}
	m.ingested = g
	return graph.IngestResult{Terms: g.Len(), Batches: 1}, nil
}
func (m *MockGraphClient) IngestRun(ctx context.Context, run graph.RunNode) error {
	m.calls = append(m.calls, "run")
	m.runs = append(m.runs, run)
	return nil
}
func (m *MockGraphClient) CountTerms(ctx context.Context) (int64, error) {
	m.calls = append(m.calls, "count")
	if m.ingested == nil {
		return 0, nil
	}
	return int64(m.ingested.Len()), nil
}
func (m *MockGraphClient) ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error) {
	return nil, nil
}

func runFixture(t *testing.T) *output.PipelinePayload {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "annotations.tab")
	require.NoError(t, os.WriteFile(in, []byte(
		"P1\tS1\t.\t.\tHP:0001000\n"+
			"P2\tS2\t.\t.\tHP:0000500\n"), 0o644))

	p, err := output.RunPipeline(context.Background(), output.PipelineRequest{
		OntologyPath:    "../ontology/testdata/mini.obo",
		AnnotationsPath: in,
		OutputPath:      filepath.Join(dir, "out.csv"),
		KeepRows:        true,
		Checks:          engine.DefaultConfig(),
	}, nil)
	require.NoError(t, err)
	return p
}

// TestExportPersistsRun tests end-to-end: pipeline -> Exporter -> DuckDB + graph
func TestExportPersistsRun(t *testing.T) {
	ctx := context.Background()

	client, err := relational.NewDuckDBClient("")
	require.NoError(t, err)
	repo := relational.NewRepo(client.DB())
	require.NoError(t, repo.Migrate(ctx))

	mockGraph := &MockGraphClient{}
	exp, err := database.NewExporter(repo, mockGraph, nil)
	require.NoError(t, err)

	p := runFixture(t)
	require.NoError(t, exp.Export(ctx, p))

	// DuckDB side
	var rows int
	require.NoError(t, client.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM extended_rows WHERE run_id = ?", p.RunID).Scan(&rows))
	assert.Equal(t, 2, rows)

	latest, err := repo.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.RunID, latest.RunID)
	assert.Equal(t, 1, latest.Dropped)
	assert.Equal(t, p.Verdict.SeverityLevel, latest.SeverityLevel)

	counts, err := repo.QueryCategoryCounts(ctx, p.RunID)
	require.NoError(t, err)
	assert.Len(t, counts, 2)

	// Graph side
	assert.Same(t, p.Graph, mockGraph.ingested)
	require.Len(t, mockGraph.runs, 1)
	assert.Equal(t, p.RunID, mockGraph.runs[0].RunID)
	assert.Equal(t, map[string]int{"HP:0000001": 1, "HP:0000002": 1}, mockGraph.runs[0].PerCategory)

	require.NoError(t, exp.Close(ctx))
	assert.True(t, mockGraph.closed)
}

func TestExport_GraphOnly(t *testing.T) {
	mockGraph := &MockGraphClient{}
	exp, err := database.NewExporter(nil, mockGraph, nil)
	require.NoError(t, err)

	require.NoError(t, exp.Export(context.Background(), runFixture(t)))
	assert.NotNil(t, mockGraph.ingested)
}

func TestExport_PrunesStaleGraphFirst(t *testing.T) {
	mockGraph := &MockGraphClient{}
	exp, err := database.NewExporter(nil, mockGraph, nil)
	require.NoError(t, err)

	p := runFixture(t)
	require.NoError(t, exp.Export(context.Background(), p))

	// Terms and edges the new ontology dropped go before anything is merged.
	assert.Equal(t, []string{"prune", "ingest", "count", "run"}, mockGraph.calls)
	assert.Same(t, p.Graph, mockGraph.pruned)

	boom := errors.New("prune failed")
	mockGraph = &MockGraphClient{pruneErr: boom}
	exp, err = database.NewExporter(nil, mockGraph, nil)
	require.NoError(t, err)

	err = exp.Export(context.Background(), p)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"prune"}, mockGraph.calls)
	assert.Nil(t, mockGraph.ingested)
}

func TestExport_Errors(t *testing.T) {
	_, err := database.NewExporter(nil, nil, nil)
	assert.Error(t, err)

	boom := errors.New("neo4j down")
	exp, err := database.NewExporter(nil, &MockGraphClient{ingestErr: boom}, nil)
	require.NoError(t, err)

	err = exp.Export(context.Background(), runFixture(t))
	assert.ErrorIs(t, err, boom)

	assert.Error(t, exp.Export(context.Background(), &output.PipelinePayload{}))
}
