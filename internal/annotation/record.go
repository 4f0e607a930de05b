// Package annotation extends phenotype annotation rows with the top-level
// ontology categories their term falls under.
package annotation

import (
	"errors"
	"fmt"
	"strings"
)

// MinFields is the number of tab-separated fields every annotation line
// must carry. The ontology term id sits at TermField.
const (
	MinFields = 5
	TermField = 4
)

var ErrMalformedRecord = errors.New("malformed annotation record")

// RecordError ties a failure to the 1-based input line it came from.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Record is one annotation line split on tabs.
type Record struct {
	Fields []string
}

// ParseRecord splits a raw line. The trailing newline, if any, is dropped;
// every other byte is kept as-is.
func ParseRecord(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, "\t")
	if len(fields) < MinFields {
		return Record{}, fmt.Errorf("%w: %d fields, want at least %d", ErrMalformedRecord, len(fields), MinFields)
	}
	return Record{Fields: fields}, nil
}

// TermID returns the ontology identifier the row is annotated with.
func (r Record) TermID() string {
	return r.Fields[TermField]
}

// Leading returns the fields before the inserted columns.
func (r Record) Leading() []string {
	return r.Fields[:MinFields]
}

// Trailing returns the fields after the inserted columns.
func (r Record) Trailing() []string {
	return r.Fields[MinFields:]
}
