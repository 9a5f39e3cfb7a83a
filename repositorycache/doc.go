// Package repositorycache provides the generic cache components the catalog services compose.
//
// # Overview
//
// Every component is parameterised over an entity type implementing store.Entity and works on a
// cache.Scope, the slice of the cache namespace owned by one entity kind. The store is always the
// owner of truth: each entry here can be dropped at any time and rebuilt from a store read.
//
//   - EntityCache: primary-key read-through cache with explicit Add and Purge.
//   - IndexCache: value to primary key mapping for one unique field.
//   - UniqueField: the claim, purge, write sequence for changing an indexed field.
//   - ListCache: ordered key list for a predicate, updated incrementally from Toggle values.
//   - PrefixCache: adaptive prefix autocompletion with exhaustive and narrowed entries.
//   - KeyedMutex: per-key serialisation for writers.
//
// # Basic Usage
//
//	client := cache.NewClient(backend)
//	scope := client.Scope(repositorycache.KindOf[*Dj]())
//	djs := repositorycache.NewEntityCache[*Dj](djStore, scope)
//	usernames := repositorycache.NewIndexCache(scope, "username")
//
//	dj, err := djs.Get(ctx, id)
//
// # Mutation Ordering
//
// Mutations write the store first and touch the cache afterwards. Index entries for old values
// are purged before the write; entries for new values are added lazily by the next Resolve.
// List commits receive the predicate value before and after the write as a Toggle and never
// infer it from cached state.
//
// # Failure Semantics
//
// Backend failures are absorbed by cache.Client and surface here as misses. Store failures are
// returned unchanged, except during lazy list initialisation where the list entry is dropped.
package repositorycache
