package cacheinfra

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != 24*time.Hour {
		t.Errorf("expected TTL to be 24 hours, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		errorMsg string
	}{
		{
			name: "valid default config",
			cfg:  DefaultConfig(),
		},
		{
			name:     "invalid capacity - zero",
			cfg:      Config{Capacity: 0, NumShards: 256, TTL: time.Minute, EvictionPercentage: 10},
			errorMsg: "config error in field Capacity: must be greater than 0",
		},
		{
			name:     "invalid num shards - zero",
			cfg:      Config{Capacity: 1000, NumShards: 0, TTL: time.Minute, EvictionPercentage: 10},
			errorMsg: "config error in field NumShards: must be greater than 0",
		},
		{
			name:     "invalid TTL - zero",
			cfg:      Config{Capacity: 1000, NumShards: 256, TTL: 0, EvictionPercentage: 10},
			errorMsg: "config error in field TTL: must be greater than 0",
		},
		{
			name:     "invalid eviction percentage - too low",
			cfg:      Config{Capacity: 1000, NumShards: 256, TTL: time.Minute, EvictionPercentage: 0},
			errorMsg: "config error in field EvictionPercentage: must be between 1 and 100",
		},
		{
			name:     "invalid eviction percentage - too high",
			cfg:      Config{Capacity: 1000, NumShards: 256, TTL: time.Minute, EvictionPercentage: 101},
			errorMsg: "config error in field EvictionPercentage: must be between 1 and 100",
		},
		{
			name: "invalid eviction interval",
			cfg: Config{
				Capacity: 1000, NumShards: 256, TTL: time.Minute, EvictionPercentage: 10,
				EvictionInterval: -time.Second,
			},
			errorMsg: "config error in field EvictionInterval: must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("expected no validation error but got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error but got none")
			}
			if err.Error() != tt.errorMsg {
				t.Errorf("expected error message %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	if n := len(DefaultConfig().ToSturdycOptions()); n != 0 {
		t.Errorf("expected no sturdyc options for default config, got %d", n)
	}

	cfg := DefaultConfig()
	cfg.EvictionInterval = time.Second
	if n := len(cfg.ToSturdycOptions()); n != 1 {
		t.Errorf("expected 1 sturdyc option with eviction interval, got %d", n)
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "TestField", Message: "test message"}

	expected := "config error in field TestField: test message"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestNewSturdycBackend_InvalidConfig(t *testing.T) {
	backend, err := NewSturdycBackend(Config{Capacity: 0, NumShards: 1, TTL: time.Minute, EvictionPercentage: 10})
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if backend != nil {
		t.Error("expected backend to be nil when error occurs")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("expected *ConfigError, got %T", err)
	}
}

func TestSturdycBackend_SetGetDelete(t *testing.T) {
	backend, err := NewSturdycBackend(Config{Capacity: 100, NumShards: 2, TTL: time.Minute, EvictionPercentage: 10})
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	ctx := context.Background()

	if _, ok, _ := backend.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}

	if err := backend.Set(ctx, "v1::dj::entry::1", []byte("payload")); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	value, ok, err := backend.Get(ctx, "v1::dj::entry::1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(value) != "payload" {
		t.Errorf("expected payload, got %q", value)
	}

	if err := backend.Delete(ctx, "v1::dj::entry::1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, ok, _ := backend.Get(ctx, "v1::dj::entry::1"); ok {
		t.Error("expected miss after delete")
	}

	if err := backend.Delete(ctx, "never-set"); err != nil {
		t.Errorf("deleting an absent key should not fail: %v", err)
	}
}

func TestSturdycBackend_DeleteByPrefix(t *testing.T) {
	backend, err := NewSturdycBackend(Config{Capacity: 100, NumShards: 4, TTL: time.Minute, EvictionPercentage: 10})
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	ctx := context.Background()

	keys := []string{
		"v1::artist_name::complete::b",
		"v1::artist_name::complete::be",
		"v1::artist_name::entry::42",
		"v1::album::new",
	}
	for _, k := range keys {
		backend.Set(ctx, k, []byte(k))
	}

	if err := backend.DeleteByPrefix(ctx, "v1::artist_name::complete::"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, k := range keys {
		_, ok, _ := backend.Get(ctx, k)
		wantGone := strings.HasPrefix(k, "v1::artist_name::complete::")
		if wantGone && ok {
			t.Errorf("expected %s to be removed", k)
		}
		if !wantGone && !ok {
			t.Errorf("expected %s to survive", k)
		}
	}

	if backend.Size() != 2 {
		t.Errorf("expected 2 entries to remain, got %d", backend.Size())
	}
}

func TestEscapeGlob(t *testing.T) {
	got := escapeGlob("v1::complete::a*b?[c]")
	want := `v1::complete::a\*b\?\[c\]`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRedisBackend_Integration(t *testing.T) {
	addr := os.Getenv("CATALOG_REDIS_ADDR")
	if addr == "" {
		t.Skip("CATALOG_REDIS_ADDR not set")
	}

	backend, err := NewRedisBackend(RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	prefix := "catalog-test::" + time.Now().Format("150405.000000") + "::"

	if err := backend.Set(ctx, prefix+"a", []byte("1")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := backend.Set(ctx, prefix+"b", []byte("2")); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	value, ok, err := backend.Get(ctx, prefix+"a")
	if err != nil || !ok || string(value) != "1" {
		t.Fatalf("expected hit with 1, got %q ok=%v err=%v", value, ok, err)
	}

	if err := backend.DeleteByPrefix(ctx, prefix); err != nil {
		t.Fatalf("delete by prefix failed: %v", err)
	}
	if _, ok, _ := backend.Get(ctx, prefix+"b"); ok {
		t.Error("expected miss after prefix delete")
	}
}

func TestRedisBackend_ClusterDeleteByPrefix(t *testing.T) {
	addrs := os.Getenv("CATALOG_REDIS_CLUSTER_ADDRS")
	if addrs == "" {
		t.Skip("CATALOG_REDIS_CLUSTER_ADDRS not set")
	}

	client := redis.NewClusterClient(&redis.ClusterOptions{Addrs: strings.Split(addrs, ",")})
	backend := NewRedisBackendFromClient(client)
	defer backend.Close()

	ctx := context.Background()
	prefix := "catalog-test::complete::" + time.Now().Format("150405.000000") + "::"

	// enough keys to land on every master
	keys := make([]string, 64)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s%d", prefix, i)
		if err := backend.Set(ctx, keys[i], []byte("1")); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}
	other := "catalog-test::other::" + time.Now().Format("150405.000000")
	if err := backend.Set(ctx, other, []byte("keep")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	defer backend.Delete(ctx, other)

	if err := backend.DeleteByPrefix(ctx, prefix); err != nil {
		t.Fatalf("delete by prefix failed: %v", err)
	}
	for _, key := range keys {
		if _, ok, _ := backend.Get(ctx, key); ok {
			t.Errorf("expected %s to be deleted", key)
		}
	}
	if _, ok, _ := backend.Get(ctx, other); !ok {
		t.Error("expected keys outside the prefix to survive")
	}
}

func TestRedisConfig_Validate(t *testing.T) {
	if err := (RedisConfig{}).Validate(); err == nil {
		t.Error("expected error for empty address")
	}
	if err := (RedisConfig{Addr: "localhost:6379", DB: -1}).Validate(); err == nil {
		t.Error("expected error for negative DB")
	}
	if err := (RedisConfig{Addr: "localhost:6379"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
