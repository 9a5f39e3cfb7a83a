// Package cache provides the cache client, backends and key serialization shared by the catalog caches.
//
// # Overview
//
// The package exports:
//
//   - Backend: the best-effort key-value store entries live in (sturdyc in process, or redis)
//   - Client and Scope: the handle every cache component receives, one Scope per entity kind
//   - KeySerializer: builds stable keys from a template name and arguments
//   - GetOrFetch: typed read-through with fetch collapsing
//
// # Basic Usage
//
//	backend, err := cache.NewBackend(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	client := cache.NewClient(backend, cache.WithKeySerializer(cache.NewKeySerializer("v1")))
//	djs := client.Scope("dj")
//
//	key := djs.Key("username", "alice")     // v1::dj::username::alice
//	id, err := cache.GetOrFetch(ctx, djs, key, func(ctx context.Context) (uuid.UUID, error) {
//		return lookupInStore(ctx, "alice")
//	})
//
// # Failure Semantics
//
// The backend may drop entries or be unavailable. A Scope never surfaces those failures: reads
// become misses, writes and deletes are logged and skipped. The store stays the fallback of record,
// so losing the whole cache only costs latency.
//
// Entries have no expiry of their own. They are created on population and destroyed by an
// explicit purge (or by backend eviction).
//
// # Writes and Fills
//
// Store, Purge and PurgeTemplate are the write paths: they advance the kind's generation before
// touching the backend. Values read from the store are cached with Fill (GetOrFetch does this),
// which gives way to any write of the kind that happened since the generation was taken. Callers
// that joined a shared fetch each decode their own copy of the result. Both guarantees hold within
// one process; clients sharing a redis backend do not coordinate.
//
// # Key Layout
//
// Keys are <namespace>::<kind>::<template>::<args...>. Arguments are serialized with their String
// method when they have one (uuid.UUID), directly for basic types, recursively for slices and maps,
// with a JSON fallback otherwise. Scope.PurgeTemplate relies on this layout to drop every entry of a
// template, e.g. all autocomplete prefixes of the artist kind.
package cache
