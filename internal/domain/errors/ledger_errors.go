package errors

import (
	"fmt"
)

// NotFoundError is returned for an unknown reference or id.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// ConflictingOutcomeError is returned when a transaction already in a
// terminal state receives a request for a different terminal state. It is
// never auto-resolved; the existing state is retained and the conflict
// persisted for manual review.
type ConflictingOutcomeError struct {
	Reference string
	Existing  string
	Requested string
}

func (e *ConflictingOutcomeError) Error() string {
	return fmt.Sprintf("transaction %s already settled as %q, refusing conflicting outcome %q",
		e.Reference, e.Existing, e.Requested)
}

// NewConflictingOutcomeError creates a new ConflictingOutcomeError
func NewConflictingOutcomeError(reference, existing, requested string) *ConflictingOutcomeError {
	return &ConflictingOutcomeError{Reference: reference, Existing: existing, Requested: requested}
}

// LinkNotPayableError is returned when a transaction is opened against a link
// that is disabled, expired or archived.
type LinkNotPayableError struct {
	LinkID int64
	Status string
}

func (e *LinkNotPayableError) Error() string {
	return fmt.Sprintf("payment link %d is not payable (status %q)", e.LinkID, e.Status)
}

// NewLinkNotPayableError creates a new LinkNotPayableError
func NewLinkNotPayableError(linkID int64, status string) *LinkNotPayableError {
	return &LinkNotPayableError{LinkID: linkID, Status: status}
}
