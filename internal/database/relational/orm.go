package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"hpoextend/internal/ontology"
)

// =============================================================================
// SCHEMA SQL
// =============================================================================

// The ontology tables hold one snapshot at a time and carry no key
// constraints: InsertOntology replaces their content wholesale inside one
// transaction.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS terms (
  term_id       VARCHAR NOT NULL,
  name          VARCHAR NOT NULL,
  data_version  VARCHAR,
  is_root       BOOLEAN NOT NULL,
  depth         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS term_alt_ids (
  alt_id        VARCHAR NOT NULL,
  term_id       VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS term_parents (
  term_id       VARCHAR NOT NULL,
  parent_id     VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS term_ancestors (
  term_id       VARCHAR NOT NULL,
  ancestor_id   VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS annotation_runs (
  run_id           VARCHAR PRIMARY KEY,
  started_at       TIMESTAMP NOT NULL,
  finished_at      TIMESTAMP,
  ontology_path    VARCHAR,
  annotations_path VARCHAR,
  output_path      VARCHAR,
  data_version     VARCHAR,
  category_root    VARCHAR NOT NULL,
  lines            INTEGER NOT NULL,
  written          INTEGER NOT NULL,
  dropped          INTEGER NOT NULL,
  severity_level   INTEGER,
  risk_score       INTEGER,
  explanation      VARCHAR
);

CREATE TABLE IF NOT EXISTS extended_rows (
  run_id        VARCHAR NOT NULL,
  seq           INTEGER NOT NULL,
  line          INTEGER NOT NULL,
  term_id       VARCHAR NOT NULL,
  category_id   VARCHAR NOT NULL,
  fields        VARCHAR NOT NULL
);
`

// =============================================================================
// REPO IMPLEMENTATION
// =============================================================================

type Repo struct {
	db *sql.DB
	mu sync.Mutex // serialises writers
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, SchemaSQL)
	return err
}

// InsertOntology replaces the stored ontology snapshot with g.
func (r *Repo) InsertOntology(ctx context.Context, g *ontology.Graph) (OntologyRows, error) {
	rows, err := ToOntologyRows(g)
	if err != nil {
		return OntologyRows{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return OntologyRows{}, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"term_ancestors", "term_parents", "term_alt_ids", "terms"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return OntologyRows{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	err = insertEach(ctx, tx, `INSERT INTO terms(term_id, name, data_version, is_root, depth) VALUES (?,?,?,?,?)`,
		len(rows.Terms), func(i int) []any {
			t := rows.Terms[i]
			return []any{t.TermID, t.Name, nullEmpty(t.DataVersion), t.IsRoot, t.Depth}
		})
	if err != nil {
		return OntologyRows{}, fmt.Errorf("insert terms: %w", err)
	}

	err = insertEach(ctx, tx, `INSERT INTO term_alt_ids(alt_id, term_id) VALUES (?,?)`,
		len(rows.AltIDs), func(i int) []any {
			return []any{rows.AltIDs[i].AltID, rows.AltIDs[i].TermID}
		})
	if err != nil {
		return OntologyRows{}, fmt.Errorf("insert alt ids: %w", err)
	}

	err = insertEach(ctx, tx, `INSERT INTO term_parents(term_id, parent_id) VALUES (?,?)`,
		len(rows.Parents), func(i int) []any {
			return []any{rows.Parents[i].TermID, rows.Parents[i].ParentID}
		})
	if err != nil {
		return OntologyRows{}, fmt.Errorf("insert parents: %w", err)
	}

	err = insertEach(ctx, tx, `INSERT INTO term_ancestors(term_id, ancestor_id) VALUES (?,?)`,
		len(rows.Ancestors), func(i int) []any {
			return []any{rows.Ancestors[i].TermID, rows.Ancestors[i].AncestorID}
		})
	if err != nil {
		return OntologyRows{}, fmt.Errorf("insert ancestors: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return OntologyRows{}, err
	}
	return rows, nil
}

// InsertRun records one annotation run together with the rows it wrote.
func (r *Repo) InsertRun(ctx context.Context, run Run, rows []ExtendedRow) error {
	if run.RunID == "" {
		return errors.New("run id required")
	}
	fields, err := encodeFields(rows)
	if err != nil {
		return fmt.Errorf("encode row fields: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO annotation_runs(
		  run_id, started_at, finished_at,
		  ontology_path, annotations_path, output_path,
		  data_version, category_root,
		  lines, written, dropped,
		  severity_level, risk_score, explanation
		) VALUES (?,?,?, ?,?,?, ?,?, ?,?,?, ?,?,?)`,
		run.RunID, run.StartedAt, nullTime(run.FinishedAt),
		nullEmpty(run.OntologyPath), nullEmpty(run.AnnotationsPath), nullEmpty(run.OutputPath),
		nullEmpty(run.DataVersion), run.CategoryRoot,
		run.Lines, run.Written, run.Dropped,
		run.SeverityLevel, run.RiskScore, nullEmpty(run.Explanation),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	err = insertEach(ctx, tx, `INSERT INTO extended_rows(run_id, seq, line, term_id, category_id, fields) VALUES (?,?,?,?,?,?)`,
		len(rows), func(i int) []any {
			row := rows[i]
			return []any{run.RunID, row.Seq, row.Line, row.TermID, row.CategoryID, fields[i]}
		})
	if err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}

	return tx.Commit()
}

// encodeFields renders each row's fields as a JSON array. Rows without
// fields get "[]".
func encodeFields(rows []ExtendedRow) ([]string, error) {
	out := make([]string, len(rows))
	for i, row := range rows {
		f := row.Fields
		if f == nil {
			f = []string{}
		}
		b, err := json.Marshal(f)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Seq, err)
		}
		out[i] = string(b)
	}
	return out, nil
}

// insertEach runs one prepared statement n times.
func insertEach(ctx context.Context, tx *sql.Tx, query string, n int, args func(int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return nil
}
