package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/store/memstore"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFixture(t *testing.T) {
	path := writeTemp(t, "test.txt", "test fixture content")
	assert.Equal(t, "test fixture content", string(LoadFixture(t, path)))
}

func TestLoadFixtureJSON(t *testing.T) {
	path := writeTemp(t, "albums.json", `[{"title":"Abbey Road","tracks":["Come Together","Something"]}]`)

	var albums []struct {
		Title  string   `json:"title"`
		Tracks []string `json:"tracks"`
	}
	LoadFixtureJSON(t, path, &albums)

	require.Len(t, albums, 1)
	assert.Equal(t, "Abbey Road", albums[0].Title)
	assert.Equal(t, []string{"Come Together", "Something"}, albums[0].Tracks)
}

func TestLoadFixtureYAML(t *testing.T) {
	path := writeTemp(t, "settings.yaml", "namespace: v2\ncapacity: 42\n")

	var cfg struct {
		Namespace string `yaml:"namespace"`
		Capacity  int    `yaml:"capacity"`
	}
	LoadFixtureYAML(t, path, &cfg)

	assert.Equal(t, "v2", cfg.Namespace)
	assert.Equal(t, 42, cfg.Capacity)
}

func TestFixturePath(t *testing.T) {
	assert.Equal(t, filepath.Join("testdata", "djs.json"), FixturePath("djs.json"))
}

type item struct {
	ID   uuid.UUID `msgpack:"id"`
	Name string    `msgpack:"name"`
}

func (i *item) PrimaryKey() uuid.UUID { return i.ID }

func (i *item) Field(name string) any {
	if name == "name" {
		return i.Name
	}
	return nil
}

func TestNewCacheClient_IsolatesNamespaces(t *testing.T) {
	ctx := context.Background()
	a := NewCacheClient(t, "a").Scope("item")
	b := NewCacheClient(t, "b").Scope("item")

	assert.NotEqual(t, a.Key("entry", 1), b.Key("entry", 1))

	a.Store(ctx, a.Key("entry", 1), "one")
	var got string
	require.True(t, a.Load(ctx, a.Key("entry", 1), &got))
	assert.Equal(t, "one", got)
}

func TestSeed(t *testing.T) {
	st := memstore.New[*item]()
	first := &item{ID: uuid.New(), Name: "first"}
	second := &item{ID: uuid.New(), Name: "second"}

	Seed(t, st, first, second)

	assert.Equal(t, 2, st.Len())
	got, err := st.Get(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
}
