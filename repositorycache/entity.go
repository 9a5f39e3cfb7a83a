package repositorycache

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/store"
)

const entryTemplate = "entry"

// EntityCache is the primary-key read-through cache for one entity kind. It holds at most one
// snapshot per key and is the base every other cache of the kind builds on.
type EntityCache[T store.Entity] struct {
	store store.Store[T]
	scope *cache.Scope
}

// NewEntityCache creates the cache for entities of st, keyed under scope.
func NewEntityCache[T store.Entity](st store.Store[T], scope *cache.Scope) *EntityCache[T] {
	return &EntityCache[T]{store: st, scope: scope}
}

// Store returns the authoritative store behind the cache.
func (c *EntityCache[T]) Store() store.Store[T] {
	return c.store
}

// Scope returns the cache scope of the entity kind.
func (c *EntityCache[T]) Scope() *cache.Scope {
	return c.scope
}

func (c *EntityCache[T]) key(id uuid.UUID) string {
	return c.scope.Key(entryTemplate, id)
}

// Lookup returns the cached snapshot for id without touching the store.
func (c *EntityCache[T]) Lookup(ctx context.Context, id uuid.UUID) (T, bool) {
	return cache.Load[T](ctx, c.scope, c.key(id))
}

// Get returns the entity for id, reading through to the store on a miss.
// Absent entities return store.ErrNotFound and are not cached.
func (c *EntityCache[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	return cache.GetOrFetch(ctx, c.scope, c.key(id), func(ctx context.Context) (T, error) {
		return c.store.Get(ctx, id)
	})
}

// GetMany resolves ids in order. Keys whose entity no longer exists are skipped.
func (c *EntityCache[T]) GetMany(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		entity, err := c.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// Put writes entity to the store, then caches the stored version.
func (c *EntityCache[T]) Put(ctx context.Context, entity T) (T, error) {
	stored, err := c.store.Put(ctx, entity)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.Add(ctx, stored), nil
}

// Add caches entity. It must only be called after the entity was written to the store.
func (c *EntityCache[T]) Add(ctx context.Context, entity T) T {
	c.scope.Store(ctx, c.key(entity.PrimaryKey()), entity)
	return entity
}

// Fill caches entity read from the store at generation gen (see cache.Scope.Fill).
func (c *EntityCache[T]) Fill(ctx context.Context, entity T, gen uint64) {
	c.scope.Fill(ctx, c.key(entity.PrimaryKey()), entity, gen)
}

// Purge drops the snapshot for id. A Lookup right after Purge misses.
func (c *EntityCache[T]) Purge(ctx context.Context, id uuid.UUID) {
	c.scope.Purge(ctx, c.key(id))
}

// Delete removes the entity from the store, then from the cache.
func (c *EntityCache[T]) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.Purge(ctx, id)
	return nil
}
