package ssbjstruct

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification.
var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidQuery      = errors.New("invalid surface query")
	ErrInvalidConfig     = errors.New("invalid config")
	ErrNotFound          = errors.New("not found")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindDimensionMismatch ErrorKind = "dimension_mismatch"
	KindInvalidQuery      ErrorKind = "invalid_query"
	KindInvalidConfig     ErrorKind = "invalid_config"
	KindNotFound          ErrorKind = "not_found"
)

var kindSentinels = map[ErrorKind]error{
	KindDimensionMismatch: ErrDimensionMismatch,
	KindInvalidQuery:      ErrInvalidQuery,
	KindInvalidConfig:     ErrInvalidConfig,
	KindNotFound:          ErrNotFound,
}

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op      string
	Kind    ErrorKind
	Surface string // Optional: surface identifier
	Path    string // Optional: relevant file path
	Err     error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Surface != "" {
		base += fmt.Sprintf(" (surface=%s)", e.Surface)
	}
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match an OpError against the sentinel of its kind.
func (e *OpError) Is(target error) bool {
	if e == nil {
		return false
	}
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// IsKind reports whether err carries an OpError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}
