package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Error definitions for the schema package.
var (
	ErrUnknownType        = errors.New("unknown parameter type")
	ErrDuplicateParameter = errors.New("duplicate parameter name")
	ErrEmptyName          = errors.New("empty parameter name")
	ErrRequiredDefault    = errors.New("required parameter cannot carry a default")
	ErrInvalidDefault     = errors.New("default does not match parameter type")
)

// Violation is a single field that failed validation.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// ValidationError carries every violation found in one payload.
type ValidationError struct {
	Schema     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Schema, e.detail())
}

func (e *ValidationError) detail() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}
