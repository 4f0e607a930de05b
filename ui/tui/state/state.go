package state

import (
	"time"

	"hpoextend/internal/annotation"
	"hpoextend/internal/engine"
	"hpoextend/internal/ontology"
)

type Page int

const (
	PageMenu      Page = iota
	PageBrowser        // "Term Browser"
	PageDashboard      // "Ontology Dashboard"
	PageDepth          // "Depth Distribution"
	PageConsole        // "Session Log"
)

// CategorySize is a category term and how many terms sit beneath it.
type CategorySize struct {
	Term        *ontology.Term
	Descendants int
}

// AppState holds the loaded ontology and where the user is in it.
type AppState struct {
	Graph      *ontology.Graph
	Extender   *annotation.Extender
	Summary    engine.Summary
	Results    []engine.CheckResult
	Verdict    engine.Verdict
	Categories []CategorySize
	LoadedAt   time.Time
	Err        error

	// Browser
	Current   *ontology.Term
	Trail     []string // previously visited term ids, most recent last
	Children  []*ontology.Term
	Parents   []*ontology.Term
	ChildIdx  int
	JumpError string

	DepthCounts []float64 // index is depth, value is number of terms
	ConsoleLogs []string
	CurrentPage Page
}

// Loaded reports whether the ontology is ready to browse.
func (s AppState) Loaded() bool {
	return s.Graph != nil
}
