package ontology

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("term not found")
	ErrMalformedTerm = errors.New("malformed term")
	ErrCycle         = errors.New("cycle detected")
)

// Error carries the failing term id alongside the error kind.
type Error struct {
	Kind error
	ID   string
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.ID == "" && e.Msg == "":
		return e.Kind.Error()
	case e.Msg == "":
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.ID)
	case e.ID == "":
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind.Error(), e.ID, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func notFound(id string) error {
	return &Error{Kind: ErrNotFound, ID: id}
}

func malformedf(id, format string, args ...any) error {
	return &Error{Kind: ErrMalformedTerm, ID: id, Msg: fmt.Sprintf(format, args...)}
}
