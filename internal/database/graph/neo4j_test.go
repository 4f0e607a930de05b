package graph

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpoextend/internal/ontology"
)

func TestOntologyRows(t *testing.T) {
	g, err := ontology.Load("../../ontology/testdata/mini.obo")
	require.NoError(t, err)

	terms, edges := ontologyRows(g)
	require.Len(t, terms, g.Len())

	// Sorted by id, root first in this fixture.
	assert.Equal(t, "HP:0000000", terms[0]["id"])
	assert.Equal(t, true, terms[0]["is_root"])
	assert.Equal(t, []string{}, terms[0]["alt_ids"])

	var catB map[string]any
	for _, row := range terms {
		if row["id"] == "HP:0000002" {
			catB = row
		}
	}
	require.NotNil(t, catB)
	assert.Equal(t, []string{"HP:0000003"}, catB["alt_ids"])
	assert.Equal(t, int64(2), catB["depth"])

	// One edge per parent link.
	want := 0
	for _, term := range g.Terms() {
		want += len(term.ParentIDs())
	}
	assert.Len(t, edges, want)
	assert.Contains(t, edges, map[string]any{"child": "HP:0001000", "parent": "HP:0000002"})
}

func TestPruneParams(t *testing.T) {
	g, err := ontology.Load("../../ontology/testdata/mini.obo")
	require.NoError(t, err)

	p := pruneParams(g)
	ids := p["ids"].([]string)
	edges := p["edges"].([]string)

	assert.Len(t, ids, g.Len())
	assert.Contains(t, ids, "HP:0000002")
	// Alt ids are not nodes, so they never survive a prune.
	assert.NotContains(t, ids, "HP:0000003")

	_, want := ontologyRows(g)
	assert.Len(t, edges, len(want))
	assert.Contains(t, edges, "HP:0001000>HP:0000002")
	assert.Contains(t, edges, "HP:0001000>HP:0000999")
}

func TestBatches(t *testing.T) {
	rows := make([]map[string]any, 5)
	for i := range rows {
		rows[i] = map[string]any{"i": i}
	}

	got := batches(rows, 2)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 2)
	assert.Len(t, got[2], 1)
	assert.Equal(t, 4, got[2][0]["i"])

	assert.Len(t, batches(rows, 0), 1)
	assert.Empty(t, batches(nil, 10))
}

func TestRunParams(t *testing.T) {
	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := runParams(RunNode{
		RunID:        "r1",
		StartedAt:    started,
		CategoryRoot: "HP:0000118",
		Written:      3,
		Dropped:      1,
		PerCategory:  map[string]int{"HP:0000002": 1, "HP:0000001": 2, "HP:0000009": 0},
	})

	assert.Equal(t, "r1", p["run_id"])
	assert.Equal(t, "2024-01-02T03:04:05Z", p["started_at"])
	assert.Equal(t, int64(3), p["written"])
	// Categories without rows are not linked.
	assert.Equal(t, []map[string]any{
		{"id": "HP:0000001", "rows": int64(2)},
		{"id": "HP:0000002", "rows": int64(1)},
	}, p["categories"])
}

func TestConvertNeo4jValue(t *testing.T) {
	node := neo4j.Node{ElementId: "4:a:1", Labels: []string{"Term"}, Props: map[string]any{"id": "HP:1"}}
	rel := neo4j.Relationship{ElementId: "5:a:1", Type: "IS_A", StartElementId: "4:a:1", EndElementId: "4:a:2"}

	got := convertNeo4jValue(node).(map[string]any)
	assert.Equal(t, "4:a:1", got["id"])
	assert.Equal(t, []string{"Term"}, got["labels"])

	gotRel := convertNeo4jValue(rel).(map[string]any)
	assert.Equal(t, "IS_A", gotRel["type"])
	assert.Equal(t, "4:a:2", gotRel["endNode"])

	list := convertNeo4jValue([]any{node, int64(7)}).([]any)
	assert.Equal(t, int64(7), list[1])
	assert.IsType(t, map[string]any{}, list[0])

	path := convertNeo4jValue(neo4j.Path{Nodes: []neo4j.Node{node}, Relationships: []neo4j.Relationship{rel}}).(map[string]any)
	assert.Len(t, path["nodes"], 1)
	assert.Len(t, path["relationships"], 1)

	assert.Equal(t, "plain", convertNeo4jValue("plain"))
}
