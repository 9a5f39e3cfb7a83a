package repositorycache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/store"
)

// ErrConflict is returned by UniqueField when Conflict is not set and the value is taken.
var ErrConflict = errors.New("repositorycache: value already owned")

// WriteFn persists an entity and returns the stored version.
type WriteFn[T store.Entity] func(ctx context.Context, entity T) (T, error)

// UniqueField changes an indexed field while keeping its IndexCache consistent with the store.
type UniqueField[T store.Entity] struct {
	Index *IndexCache
	// Value reads the field from an entity.
	Value func(T) string
	// Set writes the field on an entity.
	Set func(T, string)
	// Find is the authoritative owner lookup.
	Find FindFn
	// Conflict builds the error returned when value belongs to owner.
	Conflict func(value string, owner uuid.UUID) error
}

// Claim checks that self may hold value. The store is always consulted: a cached owner that
// disagrees with it is purged. Empty values are never owned.
func (f *UniqueField[T]) Claim(ctx context.Context, self uuid.UUID, value string) error {
	if value == "" {
		return nil
	}

	cached, hit := f.Index.Lookup(ctx, value)

	owner, err := f.Find(ctx, value)
	if errors.Is(err, store.ErrNotFound) {
		owner = uuid.Nil
	} else if err != nil {
		return err
	}

	if hit && cached != owner {
		f.Index.Purge(ctx, value)
	}

	if owner != uuid.Nil && owner != self {
		if f.Conflict != nil {
			return f.Conflict(value, owner)
		}
		return fmt.Errorf("%w: %s %q", ErrConflict, f.Index.Kind(), value)
	}
	return nil
}

// Change moves entity to value: claim, purge the old index entry, set and write. The entry for
// the new value is not added here; the next lookup indexes it from the store.
func (f *UniqueField[T]) Change(ctx context.Context, entity T, value string, write WriteFn[T]) (T, error) {
	if err := f.Claim(ctx, entity.PrimaryKey(), value); err != nil {
		var zero T
		return zero, err
	}

	old := f.Value(entity)
	if old == value {
		return entity, nil
	}

	f.Index.Purge(ctx, old)
	f.Set(entity, value)
	return write(ctx, entity)
}
