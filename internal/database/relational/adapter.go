package relational

import (
	"hpoextend/internal/annotation"
	"hpoextend/internal/ontology"
)

// =============================================================================
// ADAPTER FUNCTIONS
// =============================================================================

// OntologyRows flattens a graph into the rows of the ontology tables.
type OntologyRows struct {
	Terms     []TermRow
	AltIDs    []AltIDRow
	Parents   []ParentLink
	Ancestors []AncestorLink
}

// ToOntologyRows converts an ontology graph to table rows, ordered by term id.
func ToOntologyRows(g *ontology.Graph) (OntologyRows, error) {
	depths := g.Depths()
	var out OntologyRows

	for _, t := range g.Terms() {
		out.Terms = append(out.Terms, TermRow{
			TermID:      t.ID,
			Name:        t.Name,
			DataVersion: g.DataVersion,
			IsRoot:      t.IsRoot(),
			Depth:       depths[t.ID],
		})
		for _, alt := range t.AltIDs {
			out.AltIDs = append(out.AltIDs, AltIDRow{AltID: alt, TermID: t.ID})
		}
		for _, pid := range t.ParentIDs() {
			out.Parents = append(out.Parents, ParentLink{TermID: t.ID, ParentID: pid})
		}

		anc, err := t.Ancestors()
		if err != nil {
			return OntologyRows{}, err
		}
		for _, aid := range anc.IDs() {
			out.Ancestors = append(out.Ancestors, AncestorLink{TermID: t.ID, AncestorID: aid})
		}
	}
	return out, nil
}

// ToExtendedRows converts written output rows, keeping their output order.
func ToExtendedRows(runID string, rows []annotation.Row) []ExtendedRow {
	out := make([]ExtendedRow, 0, len(rows))
	for i, r := range rows {
		out = append(out, ExtendedRow{
			RunID:      runID,
			Seq:        i + 1,
			Line:       r.Line,
			TermID:     r.Term.ID,
			CategoryID: r.Category.ID,
			Fields:     r.Record.Fields,
		})
	}
	return out
}
