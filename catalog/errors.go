package catalog

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/store"
)

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("catalog: not found")
	// ErrUniquenessConflict matches every *ConflictError.
	ErrUniquenessConflict = errors.New("catalog: uniqueness conflict")
	// ErrInvalidCredential is returned by the login operations for unknown users, wrong
	// passwords and expired or wrong reset tokens alike.
	ErrInvalidCredential = errors.New("catalog: invalid credential")
	// ErrInvalidInput wraps input validation failures.
	ErrInvalidInput = errors.New("catalog: invalid input")
)

// NotFoundError reports that no entity holds Value in Index.
type NotFoundError struct {
	Index string
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog: no %s %q", e.Index, e.Value)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError reports that Value in Index already belongs to Owner.
type ConflictError struct {
	Index string
	Value string
	Owner uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("catalog: %s %q already belongs to %s", e.Index, e.Value, e.Owner)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrUniquenessConflict
}

func conflict(index string) func(string, uuid.UUID) error {
	return func(value string, owner uuid.UUID) error {
		return &ConflictError{Index: index, Value: value, Owner: owner}
	}
}

// notFound converts store.ErrNotFound into a *NotFoundError and passes other errors through.
func notFound(err error, index, value string) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Index: index, Value: value}
	}
	return err
}

func invalidInput(err error, message string) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, goerrors.Wrap(err, goerrors.CategoryValidation, message))
}
