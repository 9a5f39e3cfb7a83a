package cacheinfra

import (
	"context"
	"strings"

	"github.com/viccon/sturdyc"
)

// SturdycBackend stores encoded cache values in a sharded in-process sturdyc client.
// sturdyc may evict entries under capacity pressure; callers treat that as a miss.
type SturdycBackend struct {
	client *sturdyc.Client[[]byte]
}

// NewSturdycBackend validates cfg and creates the backend.
func NewSturdycBackend(cfg Config) (*SturdycBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycBackend{client: client}, nil
}

func (b *SturdycBackend) Set(ctx context.Context, key string, value []byte) error {
	b.client.Set(key, value)
	return nil
}

func (b *SturdycBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok := b.client.Get(key)
	return value, ok, nil
}

// Delete removes a single entry. Deleting an absent key is not an error.
func (b *SturdycBackend) Delete(ctx context.Context, key string) error {
	b.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (b *SturdycBackend) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range b.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			b.client.Delete(key)
		}
	}
	return nil
}

// Size reports the number of entries currently held.
func (b *SturdycBackend) Size() int {
	return b.client.Size()
}
