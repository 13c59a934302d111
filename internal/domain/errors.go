package domain

import "strings"

// ValidationErrors aggregates every field-level problem found while validating
// an aggregate or an inbound event payload. Callers get the full list in one
// pass instead of fixing one field per round trip.
type ValidationErrors struct {
	Problems []string
}

func (e *ValidationErrors) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationErrors) add(problem string) {
	e.Problems = append(e.Problems, problem)
}

func (e *ValidationErrors) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// NewValidationError wraps a single problem in a ValidationErrors value.
func NewValidationError(problem string) *ValidationErrors {
	return &ValidationErrors{Problems: []string{problem}}
}
