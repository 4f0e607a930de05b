package ontology

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "testdata/mini.obo"

func loadFixture(t *testing.T) *Graph {
	t.Helper()
	g, err := Load(fixture)
	require.NoError(t, err)
	return g
}

func TestLoad_Fixture(t *testing.T) {
	g := loadFixture(t)

	assert.Equal(t, 8, g.Len())
	assert.Equal(t, "1.2", g.FormatVersion)
	assert.Equal(t, "hp/releases/2024-01-01", g.DataVersion)
	assert.Equal(t, 1, g.SkippedObsolete)

	root, err := g.Root()
	require.NoError(t, err)
	assert.Equal(t, "HP:0000000", root.ID)
	assert.True(t, root.IsRoot())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.obo"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLookup(t *testing.T) {
	g := loadFixture(t)

	tests := []struct {
		name   string
		id     string
		wantID string
		want   string
	}{
		{name: "primary id", id: "HP:0000001", wantID: "HP:0000001", want: "Category A"},
		{name: "alt id resolves to primary", id: "HP:0000003", wantID: "HP:0000002", want: "Category B"},
		{name: "name qualifier stripped", id: "HP:0001000", wantID: "HP:0001000", want: "Shared"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, err := g.Lookup(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, term.ID)
			assert.Equal(t, tt.want, term.Name)
		})
	}
}

func TestLookup_NotFound(t *testing.T) {
	g := loadFixture(t)

	for _, id := range []string{"HP:1234567", "HP:0009999", ""} {
		_, err := g.Lookup(id)
		require.Error(t, err, id)
		assert.True(t, errors.Is(err, ErrNotFound), id)
	}

	_, err := g.Ancestors("HP:1234567")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = g.Children("HP:1234567")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAncestors(t *testing.T) {
	g := loadFixture(t)

	tests := []struct {
		id   string
		want []string
	}{
		{"HP:0000000", []string{}},
		{"HP:0000118", []string{"HP:0000000"}},
		{"HP:0000999", []string{"HP:0000000", "HP:0000001", "HP:0000118"}},
		{"HP:0001000", []string{"HP:0000000", "HP:0000001", "HP:0000002", "HP:0000118", "HP:0000999"}},
		{"HP:0001001", []string{"HP:0000000", "HP:0000001", "HP:0000002", "HP:0000118", "HP:0000999", "HP:0001000"}},
		{"HP:0000500", []string{"HP:0000000"}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := g.Ancestors(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.IDs())
			assert.False(t, got.Has(tt.id), "ancestors must not contain the term itself")
		})
	}
}

func TestAncestors_ClosureProperty(t *testing.T) {
	g := loadFixture(t)

	for _, term := range g.Terms() {
		want := make(TermSet)
		parents, err := term.Parents()
		require.NoError(t, err)
		for _, p := range parents {
			want.Add(p)
			up, err := p.Ancestors()
			require.NoError(t, err)
			for _, a := range up {
				want.Add(a)
			}
		}

		got, err := term.Ancestors()
		require.NoError(t, err)
		assert.Equal(t, want.IDs(), got.IDs(), term.ID)
	}
}

func TestLineage_IncludesSelf(t *testing.T) {
	g := loadFixture(t)
	term, err := g.Lookup("HP:0000001")
	require.NoError(t, err)

	got, err := term.Lineage()
	require.NoError(t, err)
	assert.Equal(t, []string{"HP:0000000", "HP:0000001", "HP:0000118"}, got.IDs())
}

func TestChildren_DirectOnly(t *testing.T) {
	g := loadFixture(t)

	got, err := g.Children("HP:0000118")
	require.NoError(t, err)
	assert.Equal(t, []string{"HP:0000001", "HP:0000002"}, got.IDs())

	got, err = g.Children("HP:0001001")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParentChildConsistency(t *testing.T) {
	g := loadFixture(t)

	for _, term := range g.Terms() {
		for _, pid := range term.ParentIDs() {
			p, err := g.Lookup(pid)
			require.NoError(t, err)
			assert.Contains(t, p.ChildIDs(), term.ID)
		}
		for _, c := range term.Children() {
			assert.Contains(t, c.ParentIDs(), term.ID)
		}
	}
}

func TestDescendants(t *testing.T) {
	g := loadFixture(t)

	got, err := g.Descendants("HP:0000002")
	require.NoError(t, err)
	assert.Equal(t, []string{"HP:0001000", "HP:0001001"}, got.IDs())
}

func TestDescendantIDs_IncludesAltIDs(t *testing.T) {
	g := loadFixture(t)

	got, err := g.DescendantIDs("HP:0000002")
	require.NoError(t, err)
	assert.Equal(t, []string{"HP:0000002", "HP:0000003", "HP:0001000", "HP:0001001"}, got)
}

func TestLoad_RoundTrip(t *testing.T) {
	a := loadFixture(t)
	b := loadFixture(t)

	require.Equal(t, a.Len(), b.Len())
	for _, ta := range a.Terms() {
		tb, err := b.Lookup(ta.ID)
		require.NoError(t, err)
		assert.Equal(t, ta.Name, tb.Name)

		aa, err := ta.Ancestors()
		require.NoError(t, err)
		ab, err := tb.Ancestors()
		require.NoError(t, err)
		assert.Equal(t, aa.IDs(), ab.IDs(), ta.ID)
	}
}

func TestFilterToDescendants(t *testing.T) {
	g := loadFixture(t)

	sub, err := g.FilterToDescendants("HP:0000118")
	require.NoError(t, err)
	assert.Equal(t, 6, sub.Len())

	root, err := sub.Root()
	require.NoError(t, err)
	assert.Equal(t, "HP:0000118", root.ID)

	_, err = sub.Lookup("HP:0000500")
	assert.True(t, errors.Is(err, ErrNotFound))

	anc, err := sub.Ancestors("HP:0000999")
	require.NoError(t, err)
	assert.Equal(t, []string{"HP:0000001", "HP:0000118"}, anc.IDs())

	alt, err := sub.Lookup("HP:0000003")
	require.NoError(t, err)
	assert.Equal(t, "HP:0000002", alt.ID)

	// The source graph is untouched.
	full, err := g.Ancestors("HP:0000999")
	require.NoError(t, err)
	assert.Len(t, full, 3)
}

func TestDepths(t *testing.T) {
	g := loadFixture(t)

	want := map[string]int{
		"HP:0000000": 0,
		"HP:0000118": 1,
		"HP:0000500": 1,
		"HP:0000001": 2,
		"HP:0000002": 2,
		"HP:0000999": 3,
		"HP:0001000": 3,
		"HP:0001001": 4,
	}
	assert.Equal(t, want, g.Depths())
}

func TestRoot_MultipleRoots(t *testing.T) {
	g, err := Parse(strings.NewReader(`
[Term]
id: X:1
name: one

[Term]
id: X:2
name: two
`))
	require.NoError(t, err)
	assert.Len(t, g.Roots(), 2)

	_, err = g.Root()
	assert.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind error
	}{
		{
			name: "missing id",
			doc:  "[Term]\nname: nameless\n",
			kind: ErrMalformedTerm,
		},
		{
			name: "missing name",
			doc:  "[Term]\nid: X:1\n",
			kind: ErrMalformedTerm,
		},
		{
			name: "duplicate id",
			doc:  "[Term]\nid: X:1\nname: a\n\n[Term]\nid: X:1\nname: b\n",
			kind: ErrMalformedTerm,
		},
		{
			name: "alt id collides with primary",
			doc:  "[Term]\nid: X:1\nname: a\n\n[Term]\nid: X:2\nname: b\nalt_id: X:1\n",
			kind: ErrMalformedTerm,
		},
		{
			name: "dangling parent",
			doc:  "[Term]\nid: X:1\nname: a\nis_a: X:404\n",
			kind: ErrNotFound,
		},
		{
			name: "self loop",
			doc:  "[Term]\nid: X:1\nname: a\nis_a: X:1\n",
			kind: ErrCycle,
		},
		{
			name: "two term cycle",
			doc:  "[Term]\nid: X:0\nname: root\n\n[Term]\nid: X:1\nname: a\nis_a: X:2\n\n[Term]\nid: X:2\nname: b\nis_a: X:1\n",
			kind: ErrCycle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var oerr *Error
			assert.True(t, errors.As(err, &oerr))
		})
	}
}

func TestParse_IgnoresUnknownTagsAndStanzas(t *testing.T) {
	g, err := Parse(strings.NewReader(`format-version: 1.4
remark: header remark

[Term]
id: X:1
name: a
xref: UMLS:C0000001
property_value: foo "bar" xsd:string
not a tag line

[Typedef]
id: X:2
name: typedef is not a term
`))
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, "1.4", g.FormatVersion)

	_, err = g.Lookup("X:2")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestParse_IDTrailingComment(t *testing.T) {
	g, err := Parse(strings.NewReader(`[Term]
id: X:1 ! the root
name: root

[Term]
id: X:2   {source="x"}
name: child
is_a: X:1 ! the root
`))
	require.NoError(t, err)

	root, err := g.Lookup("X:1")
	require.NoError(t, err)
	assert.Equal(t, "X:1", root.ID)

	child, err := g.Lookup("X:2")
	require.NoError(t, err)
	assert.Equal(t, []string{"X:1"}, child.ParentIDs())
}

// A ladder of diamonds has 2^levels distinct paths to the root. Traversal
// must stay linear in the number of terms.
func TestAncestors_DiamondLadderTerminates(t *testing.T) {
	const levels = 40

	var b strings.Builder
	b.WriteString("[Term]\nid: D:root\nname: root\n\n")
	prev := []string{"D:root"}
	for i := 0; i < levels; i++ {
		cur := []string{fmt.Sprintf("D:%d:a", i), fmt.Sprintf("D:%d:b", i)}
		for _, id := range cur {
			fmt.Fprintf(&b, "[Term]\nid: %s\nname: %s\n", id, id)
			for _, p := range prev {
				fmt.Fprintf(&b, "is_a: %s\n", p)
			}
			b.WriteString("\n")
		}
		prev = cur
	}
	fmt.Fprintf(&b, "[Term]\nid: D:leaf\nname: leaf\nis_a: %s\nis_a: %s\n", prev[0], prev[1])

	g, err := Parse(strings.NewReader(b.String()))
	require.NoError(t, err)

	start := time.Now()
	anc, err := g.Ancestors("D:leaf")
	require.NoError(t, err)
	assert.Len(t, anc, 2*levels+1)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTermSet_Intersect(t *testing.T) {
	g := loadFixture(t)
	cats, err := g.Children("HP:0000118")
	require.NoError(t, err)

	lineage, err := g.terms["HP:0001001"].Lineage()
	require.NoError(t, err)

	got := cats.Intersect(lineage)
	assert.Equal(t, []string{"HP:0000001", "HP:0000002"}, got.IDs())
	assert.Equal(t, got.IDs(), lineage.Intersect(cats).IDs())
}
