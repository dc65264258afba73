package predictor

import (
	"errors"
	"fmt"

	"github.com/ekisa-team/infero/schema"
)

// Error definitions for the predictor package.
var (
	ErrInvalidLocator    = errors.New("invalid locator, expected module:Symbol")
	ErrModuleNotFound    = errors.New("module not found")
	ErrSymbolNotFound    = errors.New("symbol not found")
	ErrNotInstantiable   = errors.New("symbol is not a no-argument factory")
	ErrAlreadyRegistered = errors.New("locator is already registered")
	ErrNoEntryOperation  = errors.New("entry operation not found")
	ErrBadSignature      = errors.New("unsupported entry operation signature")
	ErrNotReady          = errors.New("predictor is not ready")
)

// Kind classifies binding failures.
type Kind string

const (
	KindLoad          Kind = "Load"
	KindValidation    Kind = "Validation"
	KindSetup         Kind = "Setup"
	KindExecution     Kind = "Execution"
	KindSerialization Kind = "Serialization"
)

// Error is the typed failure surfaced by the binding subsystem.
type Error struct {
	Kind       Kind               `json:"-"`
	Message    string             `json:"message"`
	Violations []schema.Violation `json:"-"`
	Err        error              `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func loadError(locator string, err error) *Error {
	return newError(KindLoad, err, "failed to load predictor %q: %v", locator, err)
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
