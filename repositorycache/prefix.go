package repositorycache

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-catalog-cache/store"
)

const completeTemplate = "complete"

// prefixUpperBound closes the range of strings starting with a prefix.
const prefixUpperBound = "\ufffd"

// PrefixEntry is the cached candidate set for one prefix.
type PrefixEntry struct {
	Keys []uuid.UUID `msgpack:"keys"`
	// MaxResults means Keys holds every entity matching the prefix.
	MaxResults bool `msgpack:"max_results"`
	// RecacheCount counts local derivations since the last store query. Negative marks the
	// empty-prefix sentinel, which is never usable.
	RecacheCount int `msgpack:"recache_count"`
}

// PrefixConfig tunes when cached candidates may stand in for a store query.
type PrefixConfig struct {
	// PageSize caps each store query.
	PageSize int
	// MinCache is the smallest non-exhaustive entry that is searched locally.
	MinCache int
	// MinResults is the size a locally filtered set must exceed to be cached.
	MinResults int
}

// PrefixSource tells the cache how to search entities.
type PrefixSource[T store.Entity] struct {
	// Fields are the lowercase store columns a prefix is ranged over.
	Fields []string
	// Tokens returns the lowercase words a query token may prefix.
	Tokens func(T) []string
	// SortKey orders results.
	SortKey func(T) string
}

// PrefixCache serves prefix autocompletion from cached candidate sets, narrowing the longest
// cached ancestor locally and falling back to range queries on the store.
type PrefixCache[T store.Entity] struct {
	entities *EntityCache[T]
	cfg      PrefixConfig
	source   PrefixSource[T]
	logger   *zap.Logger
	flights  singleflight.Group
}

// NewPrefixCache creates the autocomplete cache for the entities of ec.
func NewPrefixCache[T store.Entity](ec *EntityCache[T], cfg PrefixConfig, source PrefixSource[T], logger *zap.Logger) *PrefixCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrefixCache[T]{entities: ec, cfg: cfg, source: source, logger: logger}
}

// NormalizePrefix lowercases and trims a user supplied prefix.
func NormalizePrefix(prefix string) string {
	return strings.ToLower(strings.TrimSpace(prefix))
}

func (c *PrefixCache[T]) key(prefix string) string {
	return c.entities.Scope().Key(completeTemplate, prefix)
}

// Entry returns the cached entry for an already normalised prefix.
func (c *PrefixCache[T]) Entry(ctx context.Context, prefix string) (PrefixEntry, bool) {
	if prefix == "" {
		return PrefixEntry{RecacheCount: -1}, false
	}
	var entry PrefixEntry
	ok := c.entities.Scope().Load(ctx, c.key(prefix), &entry)
	return entry, ok
}

func (c *PrefixCache[T]) usable(e PrefixEntry) bool {
	return e.RecacheCount >= 0 && (e.MaxResults || len(e.Keys) >= c.cfg.MinCache)
}

// longest walks from the full prefix down one rune at a time and returns the first cached entry.
func (c *PrefixCache[T]) longest(ctx context.Context, prefix string) (string, PrefixEntry) {
	runes := []rune(prefix)
	for n := len(runes); n > 0; n-- {
		candidate := string(runes[:n])
		if entry, ok := c.Entry(ctx, candidate); ok {
			return candidate, entry
		}
	}
	return "", PrefixEntry{RecacheCount: -1}
}

// Complete returns the entities whose name starts with prefix, sorted by SortKey.
func (c *PrefixCache[T]) Complete(ctx context.Context, prefix string) ([]T, error) {
	prefix = NormalizePrefix(prefix)

	gen := c.entities.Scope().Generation()
	cachedPrefix, entry := c.longest(ctx, prefix)
	perfect := cachedPrefix == prefix

	if c.usable(entry) {
		candidates, err := c.entities.GetMany(ctx, entry.Keys)
		if err != nil {
			return nil, err
		}
		c.sort(candidates)

		if perfect {
			c.logger.Debug("autocomplete",
				zap.String("prefix", prefix),
				zap.Bool("perfect_hit", true),
				zap.Int("matched", len(candidates)),
				zap.String("source", "cache"),
			)
			return candidates, nil
		}

		results := c.filter(candidates, strings.Fields(prefix))
		if entry.MaxResults || len(results) > c.cfg.MinResults {
			c.entities.Scope().Fill(ctx, c.key(prefix), PrefixEntry{
				Keys:         store.Keys(results),
				MaxResults:   entry.MaxResults,
				RecacheCount: entry.RecacheCount + 1,
			}, gen)
			c.logger.Debug("autocomplete",
				zap.String("prefix", prefix),
				zap.String("cached_prefix", cachedPrefix),
				zap.Bool("perfect_hit", false),
				zap.Int("matched", len(results)),
				zap.String("source", "cache"),
			)
			return results, nil
		}
	}

	return c.fromStore(ctx, prefix)
}

func (c *PrefixCache[T]) fromStore(ctx context.Context, prefix string) ([]T, error) {
	v, err, _ := c.flights.Do(prefix, func() (any, error) {
		gen := c.entities.Scope().Generation()
		seen := make(map[uuid.UUID]struct{})
		var results []T
		maxResults := true

		for _, field := range c.source.Fields {
			page, err := c.entities.Store().Query(ctx, store.Query{
				Filters: store.Range(field, prefix, prefix+prefixUpperBound),
				Order:   &store.Order{Field: field},
				Limit:   c.cfg.PageSize,
			})
			if err != nil {
				return nil, err
			}
			if len(page) >= c.cfg.PageSize {
				maxResults = false
			}
			for _, e := range page {
				if _, dup := seen[e.PrimaryKey()]; dup {
					continue
				}
				seen[e.PrimaryKey()] = struct{}{}
				c.entities.Fill(ctx, e, gen)
				results = append(results, e)
			}
		}
		c.sort(results)

		if prefix != "" {
			c.entities.Scope().Fill(ctx, c.key(prefix), PrefixEntry{
				Keys:         store.Keys(results),
				MaxResults:   maxResults,
				RecacheCount: 0,
			}, gen)
		}
		c.logger.Debug("autocomplete",
			zap.String("prefix", prefix),
			zap.Bool("perfect_hit", false),
			zap.Int("matched", len(results)),
			zap.Bool("max_results", maxResults),
			zap.String("source", "store"),
		)
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	results, _ := v.([]T)
	return results, nil
}

func (c *PrefixCache[T]) sort(entities []T) {
	sort.SliceStable(entities, func(i, j int) bool {
		a, b := c.source.SortKey(entities[i]), c.source.SortKey(entities[j])
		if a != b {
			return a < b
		}
		return entities[i].PrimaryKey().String() < entities[j].PrimaryKey().String()
	})
}

func (c *PrefixCache[T]) filter(candidates []T, query []string) []T {
	out := make([]T, 0, len(candidates))
	for _, e := range candidates {
		if MatchTokens(c.source.Tokens(e), query) {
			out = append(out, e)
		}
	}
	return out
}

// MatchTokens reports whether every query token prefixes a distinct name token. Name tokens are
// visited in order and each consumes the first remaining query token it starts with.
func MatchTokens(name, query []string) bool {
	if len(query) == 0 {
		return false
	}
	remaining := append([]string(nil), query...)
	for _, part := range name {
		for i, q := range remaining {
			if strings.HasPrefix(part, q) {
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
		if len(remaining) == 0 {
			return true
		}
	}
	return false
}

// Invalidate drops every cached prefix. Entity creation calls it so exhaustive entries never
// hide a new name.
func (c *PrefixCache[T]) Invalidate(ctx context.Context) {
	c.entities.Scope().PurgeTemplate(ctx, completeTemplate)
}
