package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCreditNotFound   = errors.New("carbon credit not found")
	ErrInverterNotFound = errors.New("inverter not found")
)

// ReferenceError: an operation referenced an entity id that does not exist.
// Fatal to the enclosing batch or operation.
type ReferenceError struct {
	EntityType string
	EntityID   uint
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %d not found", e.EntityType, e.EntityID)
}

// ValidationError: a malformed input value. Fatal to the row's batch.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ExternalUnavailable: the environmental data provider was unreachable or
// returned unusable content. Absorbed into the PENDING fail-safe by the
// verification engine, never escalated past it.
type ExternalUnavailable struct {
	Provider string
	Err      error
}

func (e *ExternalUnavailable) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *ExternalUnavailable) Unwrap() error {
	return e.Err
}
