package catalog

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-catalog-cache/cache"
	rc "github.com/goliatone/go-catalog-cache/repositorycache"
	"github.com/goliatone/go-catalog-cache/store"
)

const indexLowercaseName = "lowercase_name"

// Artists manages artist names and their autocompletion.
type Artists struct {
	entities *rc.EntityCache[*ArtistName]
	names    *rc.IndexCache
	find     rc.FindFn
	prefixes *rc.PrefixCache[*ArtistName]
	locks    *rc.KeyedMutex[string]
	opts     options
}

// NewArtists creates the artist service over st.
func NewArtists(client *cache.Client, st store.Store[*ArtistName], settings Settings, opts ...Option) *Artists {
	o := buildOptions(opts)
	ec := entityCache(client, st)
	return &Artists{
		entities: ec,
		names:    rc.NewIndexCache(ec.Scope(), indexLowercaseName),
		find:     findEqual(st, "lowercase_name"),
		prefixes: rc.NewPrefixCache(ec, rc.PrefixConfig{
			PageSize:   settings.AutocompletePageSize,
			MinCache:   settings.AutocompleteMinCache,
			MinResults: settings.AutocompleteMinResults,
		}, rc.PrefixSource[*ArtistName]{
			Fields:  []string{"lowercase_name", "search_name"},
			Tokens:  func(a *ArtistName) []string { return strings.Fields(a.LowercaseName) },
			SortKey: func(a *ArtistName) string { return a.SearchName },
		}, o.logger),
		locks: rc.NewKeyedMutex[string](),
		opts:  o,
	}
}

// Get returns the artist with id.
func (a *Artists) Get(ctx context.Context, id uuid.UUID) (*ArtistName, error) {
	artist, err := a.entities.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "artist", id.String())
	}
	return artist, nil
}

// GetByName returns the artist whose name matches case-insensitively.
func (a *Artists) GetByName(ctx context.Context, name string) (*ArtistName, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	artist, err := rc.GetByIndex(ctx, a.names, a.entities, lower, a.find, func(v *ArtistName) string {
		return v.LowercaseName
	})
	if err != nil {
		return nil, notFound(err, "artist", name)
	}
	return artist, nil
}

// TryPut returns the artist named name, creating it when it does not exist yet.
// Creation drops every cached autocomplete entry so no exhaustive entry misses the new name.
func (a *Artists) TryPut(ctx context.Context, name string) (*ArtistName, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required); err != nil {
		return nil, invalidInput(err, "artist name")
	}
	lower := strings.ToLower(name)

	unlock := a.locks.Lock(lower)
	defer unlock()

	existing, err := a.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	id, err := a.entities.Store().AllocateKey(ctx)
	if err != nil {
		return nil, err
	}
	artist, err := a.entities.Put(ctx, &ArtistName{
		ID:            id,
		Name:          name,
		LowercaseName: lower,
		SearchName:    SearchName(name),
	})
	if err != nil {
		return nil, err
	}
	a.prefixes.Invalidate(ctx)

	a.opts.logger.Debug("artist created", zap.String("id", id.String()), zap.String("name", name))
	return artist, nil
}

// Autocomplete returns the artists matching prefix, sorted by search name.
func (a *Artists) Autocomplete(ctx context.Context, prefix string) ([]*ArtistName, error) {
	return a.prefixes.Complete(ctx, prefix)
}
