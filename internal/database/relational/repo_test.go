package relational

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpoextend/internal/annotation"
	"hpoextend/internal/ontology"
)

func newTestRepo(t *testing.T) (*DuckDBClient, *Repo) {
	t.Helper()
	client, err := NewInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRepo(client.DB())
	require.NoError(t, repo.Migrate(context.Background()))
	return client, repo
}

func loadFixture(t *testing.T) *ontology.Graph {
	t.Helper()
	g, err := ontology.Load("../../ontology/testdata/mini.obo")
	require.NoError(t, err)
	return g
}

func TestInsertOntology_ClosureMatchesGraph(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)
	g := loadFixture(t)

	rows, err := repo.InsertOntology(ctx, g)
	require.NoError(t, err)
	assert.Len(t, rows.Terms, g.Len())
	assert.Equal(t, []AltIDRow{{AltID: "HP:0000003", TermID: "HP:0000002"}}, rows.AltIDs)

	n, err := repo.CountTerms(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Len(), n)

	for _, term := range g.Terms() {
		want, err := term.Ancestors()
		require.NoError(t, err)

		got, err := repo.QueryAncestors(ctx, term.ID)
		require.NoError(t, err)
		assert.Equal(t, want.IDs(), got, term.ID)
	}

	// Alt ids resolve through term_alt_ids.
	got, err := repo.QueryAncestors(ctx, "HP:0000003")
	require.NoError(t, err)
	assert.Equal(t, []string{"HP:0000000", "HP:0000118"}, got)
}

func TestInsertOntology_ReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)
	g := loadFixture(t)

	_, err := repo.InsertOntology(ctx, g)
	require.NoError(t, err)
	_, err = repo.InsertOntology(ctx, g)
	require.NoError(t, err)

	n, err := repo.CountTerms(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Len(), n)
}

func TestInsertRun_CategoryCounts(t *testing.T) {
	ctx := context.Background()
	client, repo := newTestRepo(t)
	g := loadFixture(t)
	_, err := repo.InsertOntology(ctx, g)
	require.NoError(t, err)

	var rows []annotation.Row
	ext, err := annotation.NewExtender(g, "", annotation.WithRowHook(func(r annotation.Row) error {
		rows = append(rows, r)
		return nil
	}))
	require.NoError(t, err)

	rec1, err := annotation.ParseRecord("a\tb\tc\td\tHP:0001000\tx")
	require.NoError(t, err)
	rec2, err := annotation.ParseRecord("a\tb\tc\td\tHP:0000999")
	require.NoError(t, err)
	for i, rec := range []annotation.Record{rec1, rec2} {
		out, err := ext.Extend(rec)
		require.NoError(t, err)
		for _, r := range out {
			r.Line = i + 1
			rows = append(rows, r)
		}
	}
	require.Len(t, rows, 3)

	older := Run{
		RunID:        "run-old",
		StartedAt:    time.Now().Add(-time.Hour),
		CategoryRoot: "HP:0000118",
	}
	require.NoError(t, repo.InsertRun(ctx, older, nil))

	run := Run{
		RunID:         "run-new",
		StartedAt:     time.Now(),
		FinishedAt:    time.Now(),
		DataVersion:   g.DataVersion,
		CategoryRoot:  "HP:0000118",
		Lines:         2,
		Written:       3,
		SeverityLevel: 1,
	}
	require.NoError(t, repo.InsertRun(ctx, run, ToExtendedRows(run.RunID, rows)))

	var stored int
	require.NoError(t, client.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM extended_rows WHERE run_id = ?", run.RunID).Scan(&stored))
	assert.Equal(t, 3, stored)

	var fields string
	require.NoError(t, client.DB().QueryRowContext(ctx,
		"SELECT fields FROM extended_rows WHERE run_id = ? AND seq = 1", run.RunID).Scan(&fields))
	assert.JSONEq(t, `["a","b","c","d","HP:0001000","x"]`, fields)

	// Empty run id selects the latest run.
	counts, err := repo.QueryCategoryCounts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{
		{CategoryID: "HP:0000001", CategoryName: "Category A", Rows: 2},
		{CategoryID: "HP:0000002", CategoryName: "Category B", Rows: 1},
	}, counts)

	runs, err := repo.QueryRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].RunID)
	assert.Equal(t, 3, runs[0].Written)
	assert.Equal(t, "hp/releases/2024-01-01", runs[0].DataVersion)
}

func TestInsertRun_RequiresID(t *testing.T) {
	_, repo := newTestRepo(t)
	err := repo.InsertRun(context.Background(), Run{CategoryRoot: "HP:0000118"}, nil)
	assert.Error(t, err)
}

func TestGetLatestRun_Empty(t *testing.T) {
	_, repo := newTestRepo(t)
	_, err := repo.GetLatestRun(context.Background())
	assert.Error(t, err)

	_, err = repo.QueryCategoryCounts(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_FileDB(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.duckdb")

	repo, err := Open(ctx, path, WithThreads(1), WithTimeout(5*time.Second))
	require.NoError(t, err)
	_, err = repo.InsertOntology(ctx, loadFixture(t))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Reopen: data persisted, migration is idempotent.
	repo, err = Open(ctx, path)
	require.NoError(t, err)
	defer repo.Close()
	n, err := repo.CountTerms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	_, err = NewFileDB("")
	assert.Error(t, err)
}

func TestEncodeFields(t *testing.T) {
	got, err := encodeFields([]ExtendedRow{
		{Seq: 1, Fields: []string{"P1", "Smith, \"J\"", "HP:0000999"}},
		{Seq: 2},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `["P1","Smith, \"J\"","HP:0000999"]`, got[0])
	assert.Equal(t, "[]", got[1])

	got, err = encodeFields(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
