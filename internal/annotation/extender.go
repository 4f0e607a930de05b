package annotation

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"go.uber.org/zap"

	"hpoextend/internal/ontology"
)

// DefaultCategoryRoot is "Phenotypic abnormality". Its direct children are
// the categories rows are classified under.
const DefaultCategoryRoot = "HP:0000118"

const maxLineBytes = 1024 * 1024

// Row is one output row: an input record paired with one matching category.
type Row struct {
	Line     int
	Record   Record
	Term     *ontology.Term
	Category *ontology.Term
}

// Values lays the row out as leading fields, term name, category id,
// category name, trailing fields.
func (r Row) Values() []string {
	out := make([]string, 0, len(r.Record.Fields)+3)
	out = append(out, r.Record.Leading()...)
	out = append(out, r.Term.Name, r.Category.ID, r.Category.Name)
	out = append(out, r.Record.Trailing()...)
	return out
}

// Stats summarises one Run.
type Stats struct {
	Lines       int
	Written     int
	Dropped     int            // lines that matched no category
	PerCategory map[string]int // category id -> rows written
}

// Extender classifies annotation records against the children of a fixed
// root term.
type Extender struct {
	graph      *ontology.Graph
	root       *ontology.Term
	categories ontology.TermSet
	logger     *zap.Logger
	lf         bool
	onRow      func(Row) error
}

// Option configures an Extender.
type Option func(*Extender)

// WithLogger sets the logger used for per-run diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extender) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLF terminates output rows with \n instead of the default \r\n.
func WithLF(enabled bool) Option {
	return func(e *Extender) {
		e.lf = enabled
	}
}

// WithRowHook registers fn to be called for every written row. An error
// from fn aborts the run.
func WithRowHook(fn func(Row) error) Option {
	return func(e *Extender) {
		e.onRow = fn
	}
}

// NewExtender resolves rootID in g and takes its direct children as the
// category set.
func NewExtender(g *ontology.Graph, rootID string, opts ...Option) (*Extender, error) {
	if rootID == "" {
		rootID = DefaultCategoryRoot
	}
	root, err := g.Lookup(rootID)
	if err != nil {
		return nil, fmt.Errorf("category root: %w", err)
	}

	e := &Extender{
		graph:      g,
		root:       root,
		categories: root.Children(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Root returns the category root term.
func (e *Extender) Root() *ontology.Term {
	return e.root
}

// Categories returns the category terms ordered by id.
func (e *Extender) Categories() []*ontology.Term {
	return e.categories.Sorted()
}

// Classify returns the categories the term falls under, ordered by id. A
// category term annotated directly counts as its own category.
func (e *Extender) Classify(termID string) (*ontology.Term, []*ontology.Term, error) {
	term, err := e.graph.Lookup(termID)
	if err != nil {
		return nil, nil, err
	}
	lineage, err := term.Lineage()
	if err != nil {
		return nil, nil, err
	}
	return term, e.categories.Intersect(lineage).Sorted(), nil
}

// Extend returns one row per category matching the record's term. A term
// under no category yields no rows.
func (e *Extender) Extend(rec Record) ([]Row, error) {
	term, cats, err := e.Classify(rec.TermID())
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, Row{Record: rec, Term: term, Category: c})
	}
	return rows, nil
}

// Run reads tab-separated annotation lines from r and writes extended CSV
// rows to w. The first malformed line or unknown term aborts the run; rows
// written before the failure are flushed.
func (e *Extender) Run(r io.Reader, w io.Writer) (stats Stats, err error) {
	stats.PerCategory = make(map[string]int, len(e.categories))

	out := csv.NewWriter(w)
	out.UseCRLF = !e.lf
	defer func() {
		out.Flush()
		if ferr := out.Error(); ferr != nil && err == nil {
			err = fmt.Errorf("write csv: %w", ferr)
		}
	}()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		stats.Lines++
		lineNo := stats.Lines

		rec, err := ParseRecord(sc.Text())
		if err != nil {
			return stats, &RecordError{Line: lineNo, Err: err}
		}
		rows, err := e.Extend(rec)
		if err != nil {
			return stats, &RecordError{Line: lineNo, Err: err}
		}

		if len(rows) == 0 {
			stats.Dropped++
			e.logger.Debug("no category for term",
				zap.Int("line", lineNo),
				zap.String("term", rec.TermID()))
			continue
		}

		for _, row := range rows {
			row.Line = lineNo
			if err := out.Write(row.Values()); err != nil {
				return stats, fmt.Errorf("write csv: %w", err)
			}
			if e.onRow != nil {
				if err := e.onRow(row); err != nil {
					return stats, &RecordError{Line: lineNo, Err: err}
				}
			}
			stats.Written++
			stats.PerCategory[row.Category.ID]++
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read annotations: %w", err)
	}

	e.logger.Debug("annotation run finished",
		zap.Int("lines", stats.Lines),
		zap.Int("written", stats.Written),
		zap.Int("dropped", stats.Dropped))
	return stats, nil
}
