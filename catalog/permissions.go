package catalog

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/cache"
	rc "github.com/goliatone/go-catalog-cache/repositorycache"
	"github.com/goliatone/go-catalog-cache/store"
)

const (
	indexTitle  = "title"
	allTemplate = "all"
)

// Permissions manages permission records, a title index and the cached set of all keys.
type Permissions struct {
	entities *rc.EntityCache[*Permission]
	titles   *rc.UniqueField[*Permission]
	locks    *rc.KeyedMutex[string]
	settings Settings
	opts     options
}

// NewPermissions creates the permission service over st.
func NewPermissions(client *cache.Client, st store.Store[*Permission], settings Settings, opts ...Option) *Permissions {
	ec := entityCache(client, st)
	return &Permissions{
		entities: ec,
		titles: &rc.UniqueField[*Permission]{
			Index:    rc.NewIndexCache(ec.Scope(), indexTitle),
			Value:    func(p *Permission) string { return p.Title },
			Set:      func(p *Permission, v string) { p.Title = v },
			Find:     findEqual(st, "title"),
			Conflict: conflict(indexTitle),
		},
		locks:    rc.NewKeyedMutex[string](),
		settings: settings,
		opts:     buildOptions(opts),
	}
}

// Get returns the permission with id.
func (p *Permissions) Get(ctx context.Context, id uuid.UUID) (*Permission, error) {
	perm, err := p.entities.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "permission", id.String())
	}
	return perm, nil
}

// GetByTitle returns the permission named title.
func (p *Permissions) GetByTitle(ctx context.Context, title string) (*Permission, error) {
	perm, err := rc.GetByIndex(ctx, p.titles.Index, p.entities, title, p.titles.Find, p.titles.Value)
	if err != nil {
		return nil, notFound(err, indexTitle, title)
	}
	return perm, nil
}

// KeyByTitle returns the key of the permission named title.
func (p *Permissions) KeyByTitle(ctx context.Context, title string) (uuid.UUID, error) {
	id, err := p.titles.Index.Resolve(ctx, title, p.titles.Find)
	if err != nil {
		return uuid.Nil, notFound(err, indexTitle, title)
	}
	return id, nil
}

func (p *Permissions) allKey() string {
	return p.entities.Scope().Key(allTemplate)
}

// AllKeys returns the keys of every permission ordered by title. The set is cached until a
// permission is created.
func (p *Permissions) AllKeys(ctx context.Context) ([]uuid.UUID, error) {
	return cache.GetOrFetch(ctx, p.entities.Scope(), p.allKey(), func(ctx context.Context) ([]uuid.UUID, error) {
		gen := p.entities.Scope().Generation()
		perms, err := p.entities.Store().Query(ctx, store.Query{
			Order: &store.Order{Field: "title"},
			Limit: p.settings.ListAllLimit,
		})
		if err != nil {
			return nil, err
		}
		for _, perm := range perms {
			p.entities.Fill(ctx, perm, gen)
		}
		return store.Keys(perms), nil
	})
}

// All returns every permission ordered by title.
func (p *Permissions) All(ctx context.Context) ([]*Permission, error) {
	keys, err := p.AllKeys(ctx)
	if err != nil {
		return nil, err
	}
	return p.entities.GetMany(ctx, keys)
}

// Create adds a permission. Titles are unique.
func (p *Permissions) Create(ctx context.Context, title string, djs ...uuid.UUID) (*Permission, error) {
	title = strings.TrimSpace(title)
	if err := validation.Validate(title, validation.Required); err != nil {
		return nil, invalidInput(err, "permission title")
	}

	unlock := p.locks.Lock(indexTitle + ":" + title)
	defer unlock()

	id, err := p.entities.Store().AllocateKey(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.titles.Claim(ctx, id, title); err != nil {
		return nil, err
	}

	perm, err := p.entities.Put(ctx, &Permission{ID: id, Title: title, DjIDs: unique(djs)})
	if err != nil {
		return nil, err
	}
	p.entities.Scope().Purge(ctx, p.allKey())
	return perm, nil
}

// SetTitle renames the permission. It fails with a *ConflictError when the title is taken.
func (p *Permissions) SetTitle(ctx context.Context, id uuid.UUID, title string) (*Permission, error) {
	title = strings.TrimSpace(title)
	if err := validation.Validate(title, validation.Required); err != nil {
		return nil, invalidInput(err, "permission title")
	}

	unlockPerm := p.locks.Lock("permission:" + id.String())
	defer unlockPerm()
	unlockTitle := p.locks.Lock(indexTitle + ":" + title)
	defer unlockTitle()

	perm, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	perm, err = p.titles.Change(ctx, perm, title, p.entities.Put)
	if err != nil {
		return nil, err
	}
	p.entities.Scope().Purge(ctx, p.allKey())
	return perm, nil
}

// EnsureDefaults creates every missing default permission and returns all of them.
func (p *Permissions) EnsureDefaults(ctx context.Context) ([]*Permission, error) {
	out := make([]*Permission, 0, len(DefaultPermissions))
	for _, title := range DefaultPermissions {
		perm, err := p.GetByTitle(ctx, title)
		if errors.Is(err, ErrNotFound) {
			perm, err = p.Create(ctx, title)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, perm)
	}
	return out, nil
}

func (p *Permissions) updateDjs(ctx context.Context, id uuid.UUID, fn func([]uuid.UUID) []uuid.UUID) (*Permission, error) {
	unlock := p.locks.Lock("permission:" + id.String())
	defer unlock()

	perm, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	perm.DjIDs = fn(perm.DjIDs)
	return p.entities.Put(ctx, perm)
}

// AddDj grants the permission to djs.
func (p *Permissions) AddDj(ctx context.Context, id uuid.UUID, djs ...uuid.UUID) (*Permission, error) {
	return p.updateDjs(ctx, id, func(current []uuid.UUID) []uuid.UUID {
		return unique(append(current, djs...))
	})
}

// RemoveDj revokes the permission from djs.
func (p *Permissions) RemoveDj(ctx context.Context, id uuid.UUID, djs ...uuid.UUID) (*Permission, error) {
	drop := make(map[uuid.UUID]struct{}, len(djs))
	for _, dj := range djs {
		drop[dj] = struct{}{}
	}
	return p.updateDjs(ctx, id, func(current []uuid.UUID) []uuid.UUID {
		kept := make([]uuid.UUID, 0, len(current))
		for _, dj := range current {
			if _, ok := drop[dj]; !ok {
				kept = append(kept, dj)
			}
		}
		return kept
	})
}

// HasDj reports whether dj holds the permission with id.
func (p *Permissions) HasDj(ctx context.Context, id, dj uuid.UUID) (bool, error) {
	perm, err := p.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return perm.HasDj(dj), nil
}

// unique drops nil and repeated keys, keeping first occurrences.
func unique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
