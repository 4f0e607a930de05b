package relational

import "time"

// ==========================
// 1) ONTOLOGY TABLES
// ==========================

type TermRow struct {
	TermID      string
	Name        string
	DataVersion string
	IsRoot      bool
	Depth       int
}

type AltIDRow struct {
	AltID  string
	TermID string
	// UNIQUE(alt_id)
}

type ParentLink struct {
	TermID   string
	ParentID string
	// PRIMARY KEY(term_id, parent_id)
}

// AncestorLink is one row of the transitive closure. Self pairs are not
// stored.
type AncestorLink struct {
	TermID     string
	AncestorID string
}

// ==========================
// 2) RUN TABLES
// ==========================

type Run struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	OntologyPath    string
	AnnotationsPath string
	OutputPath      string
	DataVersion     string
	CategoryRoot    string
	Lines           int
	Written         int
	Dropped         int
	SeverityLevel   int
	RiskScore       int
	Explanation     string
}

type ExtendedRow struct {
	RunID      string
	Seq        int // position in the output file
	Line       int // 1-based input line
	TermID     string
	CategoryID string
	Fields     []string // original tab-separated fields
}

// ==========================
// 3) QUERY RESULTS
// ==========================

type CategoryCount struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	Rows         int    `json:"rows"`
}

type RunSummary struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	DataVersion   string    `json:"data_version"`
	CategoryRoot  string    `json:"category_root"`
	Lines         int       `json:"lines"`
	Written       int       `json:"written"`
	Dropped       int       `json:"dropped"`
	SeverityLevel int       `json:"severity_level"`
	Explanation   string    `json:"explanation"`
}
