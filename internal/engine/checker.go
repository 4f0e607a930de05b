package engine

import (
	"fmt"

	"hpoextend/internal/annotation"
	"hpoextend/internal/ontology"
)

const (
	StatusHealthy  = "OK"
	StatusWarning  = "WARN"
	StatusCritical = "CRIT"
)

// Thresholds defines warning and critical levels for a check.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// Config holds the thresholds Evaluate compares a run against.
type Config struct {
	DroppedPct  Thresholds // % of input lines with no category
	ObsoletePct Thresholds // % of stanzas skipped as obsolete
	MaxDepth    Thresholds // longest shortest-path from a root
}

func DefaultConfig() Config {
	return Config{
		DroppedPct:  Thresholds{Warning: 10.0, Critical: 50.0},
		ObsoletePct: Thresholds{Warning: 20.0, Critical: 50.0},
		MaxDepth:    Thresholds{Warning: 30.0, Critical: 60.0},
	}
}

// Summary is the flat set of numbers one run produces.
type Summary struct {
	DataVersion     string
	Terms           int
	Roots           int
	ObsoleteSkipped int
	MaxDepth        int
	CategoryRoot    string
	Categories      int
	CategoriesHit   int
	Lines           int
	Written         int
	Dropped         int
}

// DroppedPct is the share of input lines that produced no output row.
func (s Summary) DroppedPct() float64 {
	if s.Lines == 0 {
		return 0
	}
	return float64(s.Dropped) / float64(s.Lines) * 100
}

// ObsoletePct is the share of term stanzas skipped as obsolete.
func (s Summary) ObsoletePct() float64 {
	total := s.Terms + s.ObsoleteSkipped
	if total == 0 {
		return 0
	}
	return float64(s.ObsoleteSkipped) / float64(total) * 100
}

// Summarize collects the numbers Evaluate works on. ext may be nil when only
// the ontology was loaded.
func Summarize(g *ontology.Graph, ext *annotation.Extender, stats annotation.Stats) Summary {
	s := Summary{
		DataVersion:     g.DataVersion,
		Terms:           g.Len(),
		Roots:           len(g.Roots()),
		ObsoleteSkipped: g.SkippedObsolete,
		Lines:           stats.Lines,
		Written:         stats.Written,
		Dropped:         stats.Dropped,
	}
	for _, d := range g.Depths() {
		if d > s.MaxDepth {
			s.MaxDepth = d
		}
	}
	if ext != nil {
		s.CategoryRoot = ext.Root().ID
		s.Categories = len(ext.Categories())
	}
	for _, n := range stats.PerCategory {
		if n > 0 {
			s.CategoriesHit++
		}
	}
	return s
}

type CheckResult struct {
	Name   string
	Value  float64
	Status string
}

func getStatus(value, warning, critical float64) string {
	if value > critical {
		return StatusCritical
	}
	if value > warning {
		return StatusWarning
	}
	return StatusHealthy
}

func Evaluate(s Summary, cfg Config) []CheckResult {
	var result []CheckResult

	// Roots
	rootStatus := StatusHealthy
	switch {
	case s.Roots == 0:
		rootStatus = StatusCritical
	case s.Roots > 1:
		rootStatus = StatusWarning
	}
	result = append(result, CheckResult{
		Name:   "Root Terms",
		Value:  float64(s.Roots),
		Status: rootStatus,
	})

	result = append(result, CheckResult{
		Name:   "Obsolete Skipped",
		Value:  s.ObsoletePct(),
		Status: getStatus(s.ObsoletePct(), cfg.ObsoletePct.Warning, cfg.ObsoletePct.Critical),
	})

	result = append(result, CheckResult{
		Name:   "Max Depth",
		Value:  float64(s.MaxDepth),
		Status: getStatus(float64(s.MaxDepth), cfg.MaxDepth.Warning, cfg.MaxDepth.Critical),
	})

	// Annotation checks only make sense once a file was processed.
	if s.Lines == 0 {
		return result
	}

	result = append(result, CheckResult{
		Name:   "Dropped Rows",
		Value:  s.DroppedPct(),
		Status: getStatus(s.DroppedPct(), cfg.DroppedPct.Warning, cfg.DroppedPct.Critical),
	})

	// Nothing written at all means the category root is probably wrong.
	hitStatus := StatusHealthy
	if s.CategoriesHit == 0 {
		hitStatus = StatusCritical
	} else if s.Categories > 0 && s.CategoriesHit < s.Categories/2 {
		hitStatus = StatusWarning
	}
	result = append(result, CheckResult{
		Name:   fmt.Sprintf("Categories Hit (of %d)", s.Categories),
		Value:  float64(s.CategoriesHit),
		Status: hitStatus,
	})

	return result
}

// Verdict condenses a set of check results into one severity.
type Verdict struct {
	SeverityLevel int // 1 ok, 2 warning, 3 critical
	RiskScore     int
	Explanation   string
}

// Assess picks the worst status and explains the first problem found.
func Assess(results []CheckResult) Verdict {
	v := Verdict{SeverityLevel: 1}
	var explanations []string

	for _, r := range results {
		switch r.Status {
		case StatusCritical:
			v.SeverityLevel = 3
			explanations = append(explanations, fmt.Sprintf("%s critical: %.1f", r.Name, r.Value))
		case StatusWarning:
			v.SeverityLevel = max(v.SeverityLevel, 2)
			explanations = append(explanations, fmt.Sprintf("%s warning: %.1f", r.Name, r.Value))
		}
	}

	if len(explanations) > 0 {
		v.Explanation = explanations[0]
		if len(explanations) > 1 {
			v.Explanation += fmt.Sprintf(" (+%d more)", len(explanations)-1)
		}
	}
	v.RiskScore = v.SeverityLevel * 10
	return v
}
