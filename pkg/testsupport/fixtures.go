package testsupport

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/store"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadFixtureYAML loads YAML test data from a fixture file and unmarshals it.
func LoadFixtureYAML(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := yaml.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal YAML fixture from %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// NewCacheClient returns a client over a fresh in-process backend. Keys are namespaced with
// namespace so parallel tests never share entries.
func NewCacheClient(t *testing.T, namespace string, opts ...cache.Option) *cache.Client {
	t.Helper()

	backend, err := cache.NewBackend(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create cache backend: %v", err)
	}

	opts = append([]cache.Option{cache.WithKeySerializer(cache.NewKeySerializer(namespace))}, opts...)
	return cache.NewClient(backend, opts...)
}

// Seed writes entities straight to st, bypassing every cache.
func Seed[T store.Entity](t *testing.T, st store.Store[T], entities ...T) {
	t.Helper()

	for _, e := range entities {
		if _, err := st.Put(context.Background(), e); err != nil {
			t.Fatalf("failed to seed %v: %v", e.PrimaryKey(), err)
		}
	}
}
