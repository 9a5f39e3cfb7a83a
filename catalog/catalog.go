package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/repositorycache"
	"github.com/goliatone/go-catalog-cache/store"
)

// Stores are the authoritative stores the catalog caches front.
type Stores struct {
	Djs         store.Store[*Dj]
	Permissions store.Store[*Permission]
	Albums      store.Store[*Album]
	Songs       store.Store[*Song]
	Artists     store.Store[*ArtistName]
}

// Catalog groups the entity services sharing one cache client.
type Catalog struct {
	Djs         *Djs
	Permissions *Permissions
	Albums      *Albums
	Artists     *Artists
}

// Option configures the catalog services.
type Option func(*options)

type options struct {
	logger *zap.Logger
	hasher PasswordHasher
	now    func() time.Time
}

// WithLogger sets the logger shared by the services.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPasswordHasher replaces the bcrypt hasher.
func WithPasswordHasher(h PasswordHasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		hasher: BcryptHasher{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New validates settings and wires every service over client.
func New(client *cache.Client, stores Stores, settings Settings, opts ...Option) (*Catalog, error) {
	if err := settings.Validate(); err != nil {
		return nil, invalidInput(err, "catalog settings")
	}

	artists := NewArtists(client, stores.Artists, settings, opts...)
	return &Catalog{
		Djs:         NewDjs(client, stores.Djs, settings, opts...),
		Permissions: NewPermissions(client, stores.Permissions, settings, opts...),
		Albums:      NewAlbums(client, stores.Albums, stores.Songs, artists, settings, opts...),
		Artists:     artists,
	}, nil
}

func entityCache[T store.Entity](client *cache.Client, st store.Store[T]) *repositorycache.EntityCache[T] {
	return repositorycache.NewEntityCache(st, client.Scope(repositorycache.KindOf[T]()))
}

// findEqual returns the FindFn resolving field = value with a single bounded query.
func findEqual[T store.Entity](st store.Store[T], field string) repositorycache.FindFn {
	return func(ctx context.Context, value string) (uuid.UUID, error) {
		found, err := store.First(ctx, st, store.Query{
			Filters: []store.Filter{store.Where(field, store.OpEqual, value)},
		})
		if err != nil {
			return uuid.Nil, err
		}
		return found.PrimaryKey(), nil
	}
}
