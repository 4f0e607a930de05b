package ontology

import "sort"

// Term is one node of the ontology DAG.
//
// Parent and child links are stored as identifier sets and resolved through
// the owning Graph, so a Term never holds pointers to other terms.
type Term struct {
	ID     string
	Name   string
	AltIDs []string

	parents  map[string]struct{}
	children map[string]struct{}
	graph    *Graph
}

func newTerm(id, name string) *Term {
	return &Term{
		ID:       id,
		Name:     name,
		parents:  make(map[string]struct{}),
		children: make(map[string]struct{}),
	}
}

// IsRoot reports whether the term has no parents.
func (t *Term) IsRoot() bool {
	return len(t.parents) == 0
}

// ParentIDs returns the direct parent identifiers in sorted order.
func (t *Term) ParentIDs() []string {
	return sortedKeys(t.parents)
}

// ChildIDs returns the direct child identifiers in sorted order.
func (t *Term) ChildIDs() []string {
	return sortedKeys(t.children)
}

// Parents returns the set of direct parents.
func (t *Term) Parents() (TermSet, error) {
	return t.resolve(t.parents)
}

// Children returns the set of direct children. No transitive closure.
func (t *Term) Children() TermSet {
	// Child links are only ever created from a resolved parent link.
	set, _ := t.resolve(t.children)
	return set
}

// Ancestors returns every term reachable by following parent links, not
// including the term itself.
func (t *Term) Ancestors() (TermSet, error) {
	return t.walk(func(n *Term) map[string]struct{} { return n.parents })
}

// Lineage returns the ancestors plus the term itself.
func (t *Term) Lineage() (TermSet, error) {
	set, err := t.Ancestors()
	if err != nil {
		return nil, err
	}
	set.Add(t)
	return set, nil
}

// Descendants returns every term reachable by following child links, not
// including the term itself.
func (t *Term) Descendants() TermSet {
	set, _ := t.walk(func(n *Term) map[string]struct{} { return n.children })
	return set
}

// walk does an iterative depth-first traversal over the edges returned by
// next. Each id is expanded at most once, so shared ancestors reached over
// several paths are visited a single time.
func (t *Term) walk(next func(*Term) map[string]struct{}) (TermSet, error) {
	out := make(TermSet)
	stack := sortedKeys(next(t))
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := out[id]; seen {
			continue
		}
		n, ok := t.graph.terms[id]
		if !ok {
			return nil, notFound(id)
		}
		out[n.ID] = n
		for nid := range next(n) {
			if _, seen := out[nid]; !seen {
				stack = append(stack, nid)
			}
		}
	}
	return out, nil
}

func (t *Term) resolve(ids map[string]struct{}) (TermSet, error) {
	out := make(TermSet, len(ids))
	for id := range ids {
		n, ok := t.graph.terms[id]
		if !ok {
			return nil, notFound(id)
		}
		out[n.ID] = n
	}
	return out, nil
}

func (t *Term) String() string {
	return t.ID
}

// TermSet is a set of terms keyed by primary id.
type TermSet map[string]*Term

// Add inserts t into the set.
func (s TermSet) Add(t *Term) {
	s[t.ID] = t
}

// Has reports whether id is in the set.
func (s TermSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Intersect returns the terms present in both sets.
func (s TermSet) Intersect(other TermSet) TermSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(TermSet)
	for id, t := range small {
		if _, ok := large[id]; ok {
			out[id] = t
		}
	}
	return out
}

// IDs returns the member ids in sorted order.
func (s TermSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sorted returns the members ordered by id.
func (s TermSet) Sorted() []*Term {
	out := make([]*Term, 0, len(s))
	for _, id := range s.IDs() {
		out = append(out, s[id])
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
