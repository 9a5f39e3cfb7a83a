package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidResultType is returned by GetOrFetch when a shared in-flight fetch produced a value of
// another type than the caller expects. It only happens when two call sites reuse a key for
// different value types.
var ErrInvalidResultType = errors.New("cache: invalid result type")

// FetchFn is the function signature GetOrFetch expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Client is the cache handle injected into every catalog component. It owns the backend,
// key serialization and encoding, and absorbs every backend failure: callers only ever see
// hits and misses.
type Client struct {
	backend    Backend
	serializer KeySerializer
	codec      Codec
	logger     *zap.Logger
	metrics    *Metrics
	flights    singleflight.Group
	// write generation per kind, see Scope.Generation
	generations *xsync.MapOf[string, *atomic.Uint64]
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for absorbed failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables hit/miss counters.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithCodec replaces the default msgpack codec.
func WithCodec(codec Codec) Option {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithKeySerializer replaces the default key serializer.
func WithKeySerializer(s KeySerializer) Option {
	return func(c *Client) {
		if s != nil {
			c.serializer = s
		}
	}
}

// NewClient creates a Client over backend.
func NewClient(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend:    backend,
		serializer: NewDefaultKeySerializer(),
		codec:      MsgpackCodec(),
		logger:     zap.NewNop(),

		generations: xsync.NewMapOf[string, *atomic.Uint64](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logger returns the client's logger so components can share it.
func (c *Client) Logger() *zap.Logger {
	return c.logger
}

// Scope returns a handle for the cache entries of one entity kind.
func (c *Client) Scope(kind string) *Scope {
	return &Scope{client: c, kind: kind}
}

// Scope addresses the entries of a single entity kind: keys are built as
// <kind>::<template>::<args...> (behind the serializer's namespace).
type Scope struct {
	client *Client
	kind   string
}

// Kind returns the entity kind of the scope.
func (s *Scope) Kind() string {
	return s.kind
}

// Key builds the cache key for template and args.
func (s *Scope) Key(template string, args ...any) string {
	return s.client.serializer.SerializeKey(s.kind, append([]any{template}, args...)...)
}

// Load decodes the entry at key into dst and reports whether it was found.
// Backend and decode failures are logged and reported as a miss.
func (s *Scope) Load(ctx context.Context, key string, dst any) bool {
	c := s.client
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.metrics.backendError(s.kind)
		c.metrics.miss(s.kind)
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		c.metrics.miss(s.kind)
		return false
	}
	if err := c.codec.Unmarshal(raw, dst); err != nil {
		c.metrics.backendError(s.kind)
		c.metrics.miss(s.kind)
		c.logger.Warn("cache entry undecodable, dropping", zap.String("key", key), zap.Error(err))
		s.drop(ctx, key)
		return false
	}
	c.metrics.hit(s.kind)
	return true
}

func (s *Scope) generation() *atomic.Uint64 {
	gen, _ := s.client.generations.LoadOrCompute(s.kind, func() *atomic.Uint64 {
		return new(atomic.Uint64)
	})
	return gen
}

// Generation returns the write generation of the kind. Every Store, Purge and PurgeTemplate
// advances it before touching the backend. Read paths take it before reading the store and
// hand it to Fill.
func (s *Scope) Generation() uint64 {
	return s.generation().Load()
}

// Store encodes value and writes it at key. It is the write path for values just written to
// the store.
func (s *Scope) Store(ctx context.Context, key string, value any) {
	s.generation().Add(1)
	if raw, ok := s.encode(key, value); ok {
		s.set(ctx, key, raw)
	}
}

// Fill caches value read from the store at generation gen. It is skipped when a write of the
// kind happened since, and undone when one lands while it is written, so a slow read never
// leaves an older value behind a newer write.
func (s *Scope) Fill(ctx context.Context, key string, value any, gen uint64) {
	if s.Generation() != gen {
		return
	}
	if raw, ok := s.encode(key, value); ok {
		s.fill(ctx, key, raw, gen)
	}
}

func (s *Scope) fill(ctx context.Context, key string, raw []byte, gen uint64) {
	if s.Generation() != gen {
		return
	}
	s.set(ctx, key, raw)
	if s.Generation() != gen {
		s.drop(ctx, key)
	}
}

func (s *Scope) encode(key string, value any) ([]byte, bool) {
	raw, err := s.client.codec.Marshal(value)
	if err != nil {
		s.client.metrics.backendError(s.kind)
		s.client.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return raw, true
}

func (s *Scope) set(ctx context.Context, key string, raw []byte) {
	if err := s.client.backend.Set(ctx, key, raw); err != nil {
		s.client.metrics.backendError(s.kind)
		s.client.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Purge deletes the entry at key.
func (s *Scope) Purge(ctx context.Context, key string) {
	s.generation().Add(1)
	s.drop(ctx, key)
}

func (s *Scope) drop(ctx context.Context, key string) {
	if err := s.client.backend.Delete(ctx, key); err != nil {
		s.client.metrics.backendError(s.kind)
		s.client.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// PurgeTemplate deletes every entry built from template, whatever its args.
func (s *Scope) PurgeTemplate(ctx context.Context, template string) {
	s.generation().Add(1)
	prefix := s.client.serializer.SerializeKey(s.kind, template) + KeySeparator
	if err := s.client.backend.DeleteByPrefix(ctx, prefix); err != nil {
		s.client.metrics.backendError(s.kind)
		s.client.logger.Warn("cache prefix delete failed", zap.String("prefix", prefix), zap.Error(err))
	}
}

// Load is the typed form of Scope.Load.
func Load[T any](ctx context.Context, s *Scope, key string) (T, bool) {
	var out T
	if !s.Load(ctx, key, &out) {
		var zero T
		return zero, false
	}
	return out, true
}

// fetched is what a shared fetch hands to the callers that joined it.
type fetched struct {
	raw   []byte
	value any
}

// GetOrFetch returns the cached value at key, or calls fetchFn, caches its result and returns it.
// Concurrent misses for the same key share one fetch; callers that joined it decode their own
// copy of the encoded result, so no two callers hold the same value. The result is cached with
// Fill semantics. Fetch errors are returned and nothing is cached.
func GetOrFetch[T any](ctx context.Context, s *Scope, key string, fetchFn FetchFn[T]) (T, error) {
	if cached, ok := Load[T](ctx, s, key); ok {
		return cached, nil
	}

	var (
		own    T
		leader bool
	)
	result, err, _ := s.client.flights.Do(key, func() (any, error) {
		gen := s.Generation()
		value, err := fetchFn(ctx)
		if err != nil {
			return nil, err
		}
		own, leader = value, true
		raw, ok := s.encode(key, value)
		if ok {
			s.fill(ctx, key, raw, gen)
		}
		return fetched{raw: raw, value: value}, nil
	})
	var zero T
	if err != nil {
		return zero, err
	}
	if leader {
		return own, nil
	}

	shared := result.(fetched)
	if shared.raw == nil {
		// unencodable results cannot be copied
		return fetchFn(ctx)
	}
	var out T
	if err := s.client.codec.Unmarshal(shared.raw, &out); err != nil {
		return zero, fmt.Errorf("%w: key %s holds %T", ErrInvalidResultType, key, shared.value)
	}
	return out, nil
}
