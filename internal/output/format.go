package output

import (
	"fmt"
	"sort"
	"strings"

	"hpoextend/internal/engine"
)

// Section constants to avoid hardcoded strings
const (
	SectionOntology   = "ontology"
	SectionRun        = "run"
	SectionCategories = "categories"
	SectionChecks     = "checks"
)

// UI/view-model types (no printing here)
type Item struct {
	Key    string
	Label  string
	Value  float64
	Unit   string
	Status string
	Note   string
}

type Section struct {
	ID    string // ontology/run/categories/checks
	Title string
	Items []Item
}

type ReportView struct {
	RunID    string
	Sections []Section
	Verdict  engine.Verdict
}

// BuildReport converts a finished pipeline payload into UI-ready sections.
func BuildReport(p *PipelinePayload) ReportView {
	s := p.Summary

	onto := Section{ID: SectionOntology, Title: "Ontology"}
	onto.Items = append(onto.Items,
		Item{Key: "data_version", Label: "Data Version", Note: s.DataVersion},
		Item{Key: "terms", Label: "Terms", Value: float64(s.Terms)},
		Item{Key: "roots", Label: "Roots", Value: float64(s.Roots)},
		Item{Key: "obsolete", Label: "Obsolete Skipped", Value: float64(s.ObsoleteSkipped)},
		Item{Key: "max_depth", Label: "Max Depth", Value: float64(s.MaxDepth)},
	)

	run := Section{ID: SectionRun, Title: "Run"}
	run.Items = append(run.Items,
		Item{Key: "lines", Label: "Lines Read", Value: float64(s.Lines)},
		Item{Key: "written", Label: "Rows Written", Value: float64(s.Written)},
		Item{Key: "dropped", Label: "Lines Dropped", Value: float64(s.Dropped)},
		Item{Key: "dropped_pct", Label: "Dropped", Value: s.DroppedPct(), Unit: "%"},
	)
	if !p.FinishedAt.IsZero() {
		run.Items = append(run.Items, Item{
			Key:   "took",
			Label: "Took",
			Value: float64(p.FinishedAt.Sub(p.StartedAt).Milliseconds()),
			Unit:  "ms",
		})
	}

	cats := Section{ID: SectionCategories, Title: "Categories"}
	if p.Extender != nil {
		for _, c := range p.Extender.Categories() {
			cats.Items = append(cats.Items, Item{
				Key:   c.ID,
				Label: c.Name,
				Value: float64(p.Stats.PerCategory[c.ID]),
				Note:  c.ID,
			})
		}
		// Busiest categories first, id order on ties.
		sort.SliceStable(cats.Items, func(i, j int) bool {
			return cats.Items[i].Value > cats.Items[j].Value
		})
	}

	checks := Section{ID: SectionChecks, Title: "Checks"}
	for _, r := range p.Results {
		unit := ""
		if strings.Contains(r.Name, "Dropped") || strings.Contains(r.Name, "Obsolete") {
			unit = "%"
		}
		checks.Items = append(checks.Items, Item{
			Key:    checkKey(r.Name),
			Label:  r.Name,
			Value:  r.Value,
			Unit:   unit,
			Status: r.Status,
		})
	}

	return ReportView{
		RunID:    p.RunID,
		Sections: []Section{onto, run, cats, checks},
		Verdict:  p.Verdict,
	}
}

func checkKey(name string) string {
	if i := strings.Index(name, " ("); i >= 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// Headline is a one-line summary of the verdict.
func (v ReportView) Headline() string {
	switch v.Verdict.SeverityLevel {
	case 3:
		return fmt.Sprintf("%s: %s", engine.StatusCritical, v.Verdict.Explanation)
	case 2:
		return fmt.Sprintf("%s: %s", engine.StatusWarning, v.Verdict.Explanation)
	default:
		return engine.StatusHealthy
	}
}

func (v ReportView) SectionByID(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

func (s Section) ItemByKey(key string) *Item {
	for i := range s.Items {
		if s.Items[i].Key == key {
			return &s.Items[i]
		}
	}
	return nil
}
