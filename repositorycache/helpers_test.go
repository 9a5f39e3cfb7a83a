package repositorycache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/store"
	"github.com/goliatone/go-catalog-cache/store/memstore"
)

// band is the entity used across the component tests.
type band struct {
	ID      uuid.UUID `msgpack:"id"`
	Name    string    `msgpack:"name"`
	Handle  string    `msgpack:"handle"`
	Lower   string    `msgpack:"lower"`
	Search  string    `msgpack:"search"`
	New     bool      `msgpack:"new"`
	AddedAt int64     `msgpack:"added_at"`
}

func (b *band) PrimaryKey() uuid.UUID { return b.ID }

func (b *band) Field(name string) any {
	switch name {
	case "name":
		return b.Name
	case "handle":
		return b.Handle
	case "lowercase_name":
		return b.Lower
	case "search_name":
		return b.Search
	case "is_new":
		return b.New
	case "added_at":
		return b.AddedAt
	}
	return nil
}

func newBand(name string) *band {
	lower := strings.ToLower(name)
	search := lower
	for _, article := range []string{"the ", "a ", "an "} {
		search = strings.TrimPrefix(search, article)
	}
	return &band{ID: uuid.New(), Name: name, Lower: lower, Search: search}
}

type fixture struct {
	store    *memstore.Store[*band]
	client   *cache.Client
	scope    *cache.Scope
	entities *EntityCache[*band]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := cache.NewBackend(cache.DefaultConfig())
	require.NoError(t, err)
	return newFixtureWithBackend(t, backend)
}

func newFixtureWithBackend(t *testing.T, backend cache.Backend) *fixture {
	t.Helper()
	client := cache.NewClient(backend, cache.WithKeySerializer(cache.NewKeySerializer("test")))
	st := memstore.New[*band]()
	scope := client.Scope(KindOf[*band]())
	return &fixture{
		store:    st,
		client:   client,
		scope:    scope,
		entities: NewEntityCache[*band](st, scope),
	}
}

func (f *fixture) seed(t *testing.T, bands ...*band) {
	t.Helper()
	for _, b := range bands {
		_, err := f.store.Put(context.Background(), b)
		require.NoError(t, err)
	}
	f.store.ResetCalls()
}

func names(bands []*band) []string {
	out := make([]string, len(bands))
	for i, b := range bands {
		out[i] = b.Name
	}
	return out
}

// downBackend fails every call.
type downBackend struct{}

var errBackendDown = errors.New("backend down")

func (downBackend) Set(context.Context, string, []byte) error { return errBackendDown }
func (downBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errBackendDown
}
func (downBackend) Delete(context.Context, string) error         { return errBackendDown }
func (downBackend) DeleteByPrefix(context.Context, string) error { return errBackendDown }

func findBy(st store.Store[*band], field string) FindFn {
	return func(ctx context.Context, value string) (uuid.UUID, error) {
		found, err := store.First(ctx, st, store.Query{Filters: []store.Filter{store.Where(field, store.OpEqual, value)}})
		if err != nil {
			return uuid.Nil, err
		}
		return found.ID, nil
	}
}

// pausedStore reads from the wrapped store, then holds the first Get or Query until release
// is closed.
type pausedStore struct {
	*memstore.Store[*band]
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newPausedStore(st *memstore.Store[*band]) *pausedStore {
	return &pausedStore{Store: st, started: make(chan struct{}), release: make(chan struct{})}
}

func (s *pausedStore) pause() {
	first := false
	s.once.Do(func() {
		first = true
		close(s.started)
	})
	if first {
		<-s.release
	}
}

func (s *pausedStore) Get(ctx context.Context, id uuid.UUID) (*band, error) {
	b, err := s.Store.Get(ctx, id)
	s.pause()
	return b, err
}

func (s *pausedStore) Query(ctx context.Context, q store.Query) ([]*band, error) {
	out, err := s.Store.Query(ctx, q)
	s.pause()
	return out, err
}
