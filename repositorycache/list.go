package repositorycache

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-catalog-cache/store"
)

// Toggle is the staged change of a list predicate for one mutation: the value the entity had
// before and the value it has after the store write.
type Toggle struct {
	Was bool
	Now bool
}

// Changed reports whether the mutation moves the entity into or out of the list.
func (t Toggle) Changed() bool {
	return t.Was != t.Now
}

// ListItem is one cached list member. Items are kept in ascending Rank, ties by key.
type ListItem struct {
	ID   uuid.UUID `msgpack:"id"`
	Rank int64     `msgpack:"rank"`
}

// ListEntry is the cached list. Complete means the store holds no further members.
type ListEntry struct {
	Items    []ListItem `msgpack:"items"`
	Complete bool       `msgpack:"complete"`
}

// Keys returns the member keys in list order.
func (e ListEntry) Keys() []uuid.UUID {
	keys := make([]uuid.UUID, len(e.Items))
	for i, item := range e.Items {
		keys[i] = item.ID
	}
	return keys
}

// ListConfig describes a list view over the store.
type ListConfig[T store.Entity] struct {
	// Template names the cache entry, e.g. "new".
	Template string
	// Capacity is the number of members kept when the list is grown by toggles.
	Capacity int
	// Filters select the members. Order must sort them the same way Rank does.
	Filters []store.Filter
	Order   store.Order
	// Rank orders members ascending.
	Rank func(T) int64
}

// ListCache keeps the ordered keys of the entities matching a predicate, updated incrementally
// from the toggles each mutation reports.
type ListCache[T store.Entity] struct {
	entities *EntityCache[T]
	cfg      ListConfig[T]
	logger   *zap.Logger
	locks    *KeyedMutex[string]
	flights  singleflight.Group
}

// NewListCache creates a list over the entities of ec.
func NewListCache[T store.Entity](ec *EntityCache[T], cfg ListConfig[T], logger *zap.Logger) *ListCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListCache[T]{
		entities: ec,
		cfg:      cfg,
		logger:   logger,
		locks:    NewKeyedMutex[string](),
	}
}

func (l *ListCache[T]) key() string {
	return l.entities.Scope().Key(l.cfg.Template)
}

func (l *ListCache[T]) query(limit int) store.Query {
	order := l.cfg.Order
	return store.Query{Filters: l.cfg.Filters, Order: &order, Limit: limit}
}

// Entry returns the cached list.
func (l *ListCache[T]) Entry(ctx context.Context) (ListEntry, bool) {
	var entry ListEntry
	ok := l.entities.Scope().Load(ctx, l.key(), &entry)
	return entry, ok
}

func (l *ListCache[T]) build(entities []T, complete bool) ListEntry {
	entry := ListEntry{Items: make([]ListItem, 0, len(entities)), Complete: complete}
	for _, e := range entities {
		entry.Items = append(entry.Items, ListItem{ID: e.PrimaryKey(), Rank: l.cfg.Rank(e)})
	}
	return entry
}

// Commit applies the toggle of entity to the cached list. It must run after the store write.
// A missing list is initialised from the store; if that fails the list is dropped and rebuilt
// on the next read.
func (l *ListCache[T]) Commit(ctx context.Context, entity T, t Toggle) error {
	if !t.Changed() {
		return nil
	}

	key := l.key()
	unlock := l.locks.Lock(key)
	defer unlock()

	entry, ok := l.Entry(ctx)
	if !ok {
		results, err := l.entities.Store().Query(ctx, l.query(l.cfg.Capacity))
		if err != nil {
			l.entities.Scope().Purge(ctx, key)
			l.logger.Warn("list init failed, dropping",
				zap.String("key", key),
				zap.Error(err),
			)
			return nil
		}
		entry = l.build(results, len(results) < l.cfg.Capacity)
	}

	if t.Now {
		entry = l.insert(entry, ListItem{ID: entity.PrimaryKey(), Rank: l.cfg.Rank(entity)})
	} else {
		entry = remove(entry, entity.PrimaryKey())
	}

	l.entities.Scope().Store(ctx, key, entry)
	return nil
}

func less(a, b ListItem) bool {
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	return a.ID.String() < b.ID.String()
}

func (l *ListCache[T]) insert(entry ListEntry, item ListItem) ListEntry {
	bound := l.cfg.Capacity
	if len(entry.Items) > bound {
		bound = len(entry.Items)
	}

	entry = remove(entry, item.ID)
	pos := sort.Search(len(entry.Items), func(i int) bool {
		return less(item, entry.Items[i])
	})
	if pos == len(entry.Items) && !entry.Complete {
		// beyond the known window
		return entry
	}

	items := make([]ListItem, 0, len(entry.Items)+1)
	items = append(items, entry.Items[:pos]...)
	items = append(items, item)
	items = append(items, entry.Items[pos:]...)
	entry.Items = items

	if len(entry.Items) > bound {
		entry.Items = entry.Items[:bound]
		entry.Complete = false
	}
	return entry
}

func remove(entry ListEntry, id uuid.UUID) ListEntry {
	items := make([]ListItem, 0, len(entry.Items))
	for _, item := range entry.Items {
		if item.ID != id {
			items = append(items, item)
		}
	}
	entry.Items = items
	return entry
}

// Keys returns up to limit member keys. The cached list serves the read when it holds at least
// limit members or is complete; otherwise a bounded store query replaces it.
func (l *ListCache[T]) Keys(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		return []uuid.UUID{}, nil
	}

	if entry, ok := l.Entry(ctx); ok && (len(entry.Items) >= limit || entry.Complete) {
		keys := entry.Keys()
		if len(keys) > limit {
			keys = keys[:limit]
		}
		return keys, nil
	}

	key := l.key()
	v, err, _ := l.flights.Do(fmt.Sprintf("%s#%d", key, limit), func() (any, error) {
		// held across the query so a commit cannot land between it and the write back
		unlock := l.locks.Lock(key)
		defer unlock()

		gen := l.entities.Scope().Generation()
		results, err := l.entities.Store().Query(ctx, l.query(limit))
		if err != nil {
			return nil, err
		}
		for _, e := range results {
			l.entities.Fill(ctx, e, gen)
		}
		l.entities.Scope().Fill(ctx, key, l.build(results, len(results) < limit), gen)

		return store.Keys(results), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]uuid.UUID), nil
}

// View returns up to limit members. When sortFn is set the page is re-sorted after it is read.
func (l *ListCache[T]) View(ctx context.Context, limit int, sortFn func(a, b T) bool) ([]T, error) {
	keys, err := l.Keys(ctx, limit)
	if err != nil {
		return nil, err
	}
	out, err := l.entities.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	if sortFn != nil {
		sort.SliceStable(out, func(i, j int) bool { return sortFn(out[i], out[j]) })
	}
	return out, nil
}

// Reset drops the cached list.
func (l *ListCache[T]) Reset(ctx context.Context) {
	l.entities.Scope().Purge(ctx, l.key())
}
