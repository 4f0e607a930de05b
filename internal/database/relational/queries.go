package relational

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// QueryRuns retrieves the most recent runs, newest first.
func (r *Repo) QueryRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100 // Safety limit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			run_id,
			started_at,
			COALESCE(data_version, '') AS data_version,
			category_root,
			lines,
			written,
			dropped,
			COALESCE(severity_level, 0) AS severity_level,
			COALESCE(explanation, '') AS explanation
		FROM annotation_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs failed: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{} // Initialize as empty slice, not nil
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(
			&s.RunID,
			&s.StartedAt,
			&s.DataVersion,
			&s.CategoryRoot,
			&s.Lines,
			&s.Written,
			&s.Dropped,
			&s.SeverityLevel,
			&s.Explanation,
		); err != nil {
			return nil, fmt.Errorf("scan run failed: %w", err)
		}
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return runs, nil
}

// GetLatestRun retrieves the most recent run.
func (r *Repo) GetLatestRun(ctx context.Context) (*RunSummary, error) {
	runs, err := r.QueryRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found")
	}
	return &runs[0], nil
}

// QueryCategoryCounts counts the rows a run wrote per category, busiest
// first. An empty runID selects the latest run.
func (r *Repo) QueryCategoryCounts(ctx context.Context, runID string) ([]CategoryCount, error) {
	if runID == "" {
		latest, err := r.GetLatestRun(ctx)
		if err != nil {
			return nil, err
		}
		runID = latest.RunID
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			e.category_id,
			COALESCE(t.name, '') AS category_name,
			COUNT(*) AS n
		FROM extended_rows e
		LEFT JOIN terms t ON t.term_id = e.category_id
		WHERE e.run_id = ?
		GROUP BY e.category_id, t.name
		ORDER BY n DESC, e.category_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query category counts failed: %w", err)
	}
	defer rows.Close()

	counts := []CategoryCount{}
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.CategoryID, &c.CategoryName, &c.Rows); err != nil {
			return nil, fmt.Errorf("scan category count failed: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return counts, nil
}

// QueryAncestors reads a term's ancestors from the stored closure. Alt ids
// resolve to their primary term.
func (r *Repo) QueryAncestors(ctx context.Context, termID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ancestor_id
		FROM term_ancestors
		WHERE term_id = COALESCE((SELECT term_id FROM term_alt_ids WHERE alt_id = ? LIMIT 1), ?)
		ORDER BY ancestor_id
	`, termID, termID)
	if err != nil {
		return nil, fmt.Errorf("query ancestors failed: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ancestor failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountTerms returns the number of stored terms.
func (r *Repo) CountTerms(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM terms`).Scan(&n)
	return n, err
}

// Null helpers
func nullEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
