package contact

import (
	"errors"
	"strings"
)

// ErrInvalid is matched by every *ValidationError.
var ErrInvalid = errors.New("invalid contact message")

// FieldError describes why a single field was rejected.
type FieldError struct {
	Field  Field
	Reason string // "required" or "invalid"
}

func (e FieldError) String() string {
	if e.Reason == ReasonRequired {
		return string(e.Field) + " is required"
	}
	return string(e.Field) + " is invalid"
}

const (
	ReasonRequired = "required"
	ReasonInvalid  = "invalid"
)

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Has reports whether f is among the rejected fields.
func (e *ValidationError) Has(f Field) bool {
	for _, fe := range e.Fields {
		if fe.Field == f {
			return true
		}
	}
	return false
}

// Invalid returns the rejected field names in order.
func (e *ValidationError) Invalid() []Field {
	out := make([]Field, len(e.Fields))
	for i, fe := range e.Fields {
		out[i] = fe.Field
	}
	return out
}
