package repositorycache

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/store"
)

// FindFn resolves an indexed value against the store. It returns store.ErrNotFound when no
// entity holds the value.
type FindFn func(ctx context.Context, value string) (uuid.UUID, error)

// IndexCache maps the values of one unique field to the primary key that owns them.
// Entries are hints: they are added lazily after store reads and purged on change.
type IndexCache struct {
	scope *cache.Scope
	index string
}

// NewIndexCache creates the index named index under the entity kind's scope.
func NewIndexCache(scope *cache.Scope, index string) *IndexCache {
	return &IndexCache{scope: scope, index: index}
}

// Kind returns the index name, e.g. "username".
func (c *IndexCache) Kind() string {
	return c.index
}

func (c *IndexCache) key(value string) string {
	return c.scope.Key(c.index, value)
}

// Add records that id owns value. Empty values and nil keys are never indexed.
func (c *IndexCache) Add(ctx context.Context, value string, id uuid.UUID) {
	if value == "" || id == uuid.Nil {
		return
	}
	c.scope.Store(ctx, c.key(value), id)
}

// Purge forgets value.
func (c *IndexCache) Purge(ctx context.Context, value string) {
	if value == "" {
		return
	}
	c.scope.Purge(ctx, c.key(value))
}

// Lookup returns the cached owner of value.
func (c *IndexCache) Lookup(ctx context.Context, value string) (uuid.UUID, bool) {
	if value == "" {
		return uuid.Nil, false
	}
	id, ok := cache.Load[uuid.UUID](ctx, c.scope, c.key(value))
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Resolve returns the owner of value from the cache, or asks find and indexes the answer.
func (c *IndexCache) Resolve(ctx context.Context, value string, find FindFn) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, store.ErrNotFound
	}
	if id, ok := c.Lookup(ctx, value); ok {
		return id, nil
	}
	gen := c.scope.Generation()
	id, err := find(ctx, value)
	if err != nil {
		return uuid.Nil, err
	}
	if id != uuid.Nil {
		c.scope.Fill(ctx, c.key(value), id, gen)
	}
	return id, nil
}

// GetByIndex resolves value through idx and loads the owning entity. current reads the indexed
// field back from the entity; when it no longer matches, the index entry and the snapshot are
// purged and the lookup is retried once against the store.
func GetByIndex[T store.Entity](ctx context.Context, idx *IndexCache, ec *EntityCache[T], value string, find FindFn, current func(T) string) (T, error) {
	var zero T
	for attempt := 0; attempt < 2; attempt++ {
		id, err := idx.Resolve(ctx, value, find)
		if err != nil {
			return zero, err
		}

		entity, err := ec.Get(ctx, id)
		if err == nil && current(entity) == value {
			return entity, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return zero, err
		}

		idx.Purge(ctx, value)
		ec.Purge(ctx, id)
	}
	return zero, store.ErrNotFound
}
