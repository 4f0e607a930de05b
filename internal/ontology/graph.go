// Package ontology loads an OBO ontology into an immutable DAG of terms.
//
// A Graph is built once, fully linked, and never mutated afterwards, so it
// is safe for concurrent readers.
package ontology

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
)

// Graph indexes every term of an ontology by primary and alternate id.
type Graph struct {
	FormatVersion   string
	DataVersion     string
	SkippedObsolete int

	terms map[string]*Term // primary and alt ids
	order []*Term          // unique terms sorted by id
	roots []*Term
}

// Load parses the OBO file at path.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := Parse(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return g, nil
}

// Parse builds a Graph from an OBO document.
//
// Linking happens only after the whole document is read, so is_a
// references to terms defined later in the file resolve normally.
func Parse(r io.Reader) (*Graph, error) {
	hdr, records, err := parseOBO(r)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		FormatVersion: hdr.formatVersion,
		DataVersion:   hdr.dataVersion,
		terms:         make(map[string]*Term, len(records)),
	}

	// Pass 1: stubs.
	live := make([]termRecord, 0, len(records))
	for _, rec := range records {
		if rec.obsolete {
			g.SkippedObsolete++
			continue
		}
		if rec.id == "" {
			return nil, malformedf("", "stanza at line %d has no id", rec.line)
		}
		if rec.name == "" {
			return nil, malformedf(rec.id, "no name")
		}
		if _, dup := g.terms[rec.id]; dup {
			return nil, malformedf(rec.id, "duplicate id")
		}

		t := newTerm(rec.id, rec.name)
		t.graph = g
		g.terms[rec.id] = t
		g.order = append(g.order, t)
		live = append(live, rec)
	}
	for _, rec := range live {
		t := g.terms[rec.id]
		for _, alt := range rec.altIDs {
			if alt == "" {
				continue
			}
			if _, dup := g.terms[alt]; dup {
				return nil, malformedf(alt, "alt_id of %s already defined", rec.id)
			}
			g.terms[alt] = t
			t.AltIDs = append(t.AltIDs, alt)
		}
	}

	// Pass 2: links.
	for _, rec := range live {
		t := g.terms[rec.id]
		for _, pid := range rec.parents {
			p, ok := g.terms[pid]
			if !ok {
				return nil, &Error{Kind: ErrNotFound, ID: pid, Msg: "is_a of " + t.ID}
			}
			if p == t {
				return nil, &Error{Kind: ErrCycle, ID: t.ID, Msg: "is_a refers to itself"}
			}
			t.parents[p.ID] = struct{}{}
			p.children[t.ID] = struct{}{}
		}
	}

	sort.Slice(g.order, func(i, j int) bool { return g.order[i].ID < g.order[j].ID })
	for _, t := range g.order {
		if t.IsRoot() {
			g.roots = append(g.roots, t)
		}
	}

	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// validateAcyclic peels terms whose parents are all resolved (Kahn). Any
// term left over sits on or below a cycle.
func (g *Graph) validateAcyclic() error {
	pending := make(map[string]int, len(g.order))
	queue := make([]*Term, 0, len(g.roots))
	for _, t := range g.order {
		pending[t.ID] = len(t.parents)
		if len(t.parents) == 0 {
			queue = append(queue, t)
		}
	}

	done := 0
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		done++
		for _, cid := range t.ChildIDs() {
			pending[cid]--
			if pending[cid] == 0 {
				queue = append(queue, g.terms[cid])
			}
		}
	}
	if done == len(g.order) {
		return nil
	}

	for _, t := range g.order {
		if pending[t.ID] > 0 {
			return &Error{Kind: ErrCycle, ID: t.ID, Msg: "term is its own ancestor"}
		}
	}
	return &Error{Kind: ErrCycle}
}

// Len returns the number of distinct terms. Alt ids are not counted.
func (g *Graph) Len() int {
	return len(g.order)
}

// Terms returns all distinct terms sorted by id.
func (g *Graph) Terms() []*Term {
	out := make([]*Term, len(g.order))
	copy(out, g.order)
	return out
}

// Lookup resolves a primary or alternate id.
func (g *Graph) Lookup(id string) (*Term, error) {
	t, ok := g.terms[id]
	if !ok {
		return nil, notFound(id)
	}
	return t, nil
}

// Ancestors is Lookup followed by Term.Ancestors.
func (g *Graph) Ancestors(id string) (TermSet, error) {
	t, err := g.Lookup(id)
	if err != nil {
		return nil, err
	}
	return t.Ancestors()
}

// Children is Lookup followed by Term.Children.
func (g *Graph) Children(id string) (TermSet, error) {
	t, err := g.Lookup(id)
	if err != nil {
		return nil, err
	}
	return t.Children(), nil
}

// Descendants is Lookup followed by Term.Descendants.
func (g *Graph) Descendants(id string) (TermSet, error) {
	t, err := g.Lookup(id)
	if err != nil {
		return nil, err
	}
	return t.Descendants(), nil
}

// Roots returns the terms without parents, sorted by id.
func (g *Graph) Roots() []*Term {
	out := make([]*Term, len(g.roots))
	copy(out, g.roots)
	return out
}

// Root returns the single root term. It fails when the ontology has zero
// or several roots.
func (g *Graph) Root() (*Term, error) {
	if len(g.roots) != 1 {
		return nil, fmt.Errorf("found %d root terms, want 1", len(g.roots))
	}
	return g.roots[0], nil
}

// DescendantIDs returns the ids and alt ids of id and all its descendants.
func (g *Graph) DescendantIDs(id string) ([]string, error) {
	t, err := g.Lookup(id)
	if err != nil {
		return nil, err
	}
	sub := t.Descendants()
	sub.Add(t)

	var ids []string
	for _, n := range sub {
		ids = append(ids, n.ID)
		ids = append(ids, n.AltIDs...)
	}
	sort.Strings(ids)
	return ids, nil
}

// FilterToDescendants returns a new graph holding only rootID and its
// descendants. Links to terms outside the subtree are dropped, so rootID
// is the only root of the result.
func (g *Graph) FilterToDescendants(rootID string) (*Graph, error) {
	root, err := g.Lookup(rootID)
	if err != nil {
		return nil, err
	}
	keep := root.Descendants()
	keep.Add(root)

	sub := &Graph{
		FormatVersion: g.FormatVersion,
		DataVersion:   g.DataVersion,
		terms:         make(map[string]*Term, len(keep)),
	}
	for _, old := range keep.Sorted() {
		t := newTerm(old.ID, old.Name)
		t.AltIDs = append([]string(nil), old.AltIDs...)
		t.graph = sub
		for pid := range old.parents {
			if keep.Has(pid) {
				t.parents[pid] = struct{}{}
			}
		}
		for cid := range old.children {
			if keep.Has(cid) {
				t.children[cid] = struct{}{}
			}
		}
		sub.terms[t.ID] = t
		for _, alt := range t.AltIDs {
			sub.terms[alt] = t
		}
		sub.order = append(sub.order, t)
		if t.IsRoot() {
			sub.roots = append(sub.roots, t)
		}
	}
	return sub, nil
}

// Depths returns the length of the shortest parent chain from each term to
// a root. Roots have depth 0.
func (g *Graph) Depths() map[string]int {
	depth := make(map[string]int, len(g.order))
	queue := make([]*Term, 0, len(g.roots))
	for _, r := range g.roots {
		depth[r.ID] = 0
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, cid := range t.ChildIDs() {
			if _, seen := depth[cid]; seen {
				continue
			}
			depth[cid] = depth[t.ID] + 1
			queue = append(queue, g.terms[cid])
		}
	}
	return depth
}
