package di

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/store"
)

func seedAlbums(t testing.TB, cat *catalog.Catalog, n int) []*catalog.Album {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*catalog.Album, 0, n)
	for i := 0; i < n; i++ {
		album, err := cat.Albums.Create(context.Background(), catalog.NewAlbum{
			Title:   fmt.Sprintf("Album %03d", i),
			Artist:  fmt.Sprintf("Band %02d", i%17),
			AddDate: base.Add(time.Duration(i) * time.Hour),
			IsNew:   i%2 == 0,
		})
		require.NoError(t, err)
		out = append(out, album)
	}
	return out
}

func TestConcurrentToggles(t *testing.T) {
	ctx := context.Background()
	_, stores, cat := newTestCatalog(t)
	albums := seedAlbums(t, cat, 40)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 50; i++ {
				album := albums[rng.Intn(len(albums))]
				if _, err := cat.Albums.SetNew(ctx, album.ID, rng.Intn(2) == 0); err != nil {
					t.Error(err)
					return
				}
				if _, err := cat.Albums.NewAlbums(ctx, 10, catalog.SortNewest); err != nil {
					t.Error(err)
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()

	want, err := stores.albums.Query(ctx, store.Query{
		Filters: []store.Filter{store.Where("is_new", store.OpEqual, true)},
		Order:   &store.Order{Field: "add_date", Desc: true},
		Limit:   20,
	})
	require.NoError(t, err)

	got, err := cat.Albums.NewAlbumKeys(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, store.Keys(want), got)
}

func TestConcurrentUsernameClaims(t *testing.T) {
	ctx := context.Background()
	_, stores, cat := newTestCatalog(t)

	var wg sync.WaitGroup
	winners := make(chan uuid.UUID, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dj, err := cat.Djs.Create(ctx, catalog.NewDj{
				Fullname: fmt.Sprintf("Claimant %d", i),
				Username: "contested",
				Email:    fmt.Sprintf("claimant%d", i),
				Password: "pw",
			})
			if err == nil {
				winners <- dj.ID
				return
			}
			assert.ErrorIs(t, err, catalog.ErrUniquenessConflict)
		}(i)
	}
	wg.Wait()
	close(winners)

	var ids []uuid.UUID
	for id := range winners {
		ids = append(ids, id)
	}
	require.Len(t, ids, 1)
	assert.Equal(t, 1, stores.djs.Len())

	key, err := cat.Djs.KeyByUsername(ctx, "contested")
	require.NoError(t, err)
	assert.Equal(t, ids[0], key)
}

func BenchmarkDjGetCached(b *testing.B) {
	ctx := context.Background()
	_, _, cat := newTestCatalog(b)
	dj, err := cat.Djs.Create(ctx, catalog.NewDj{Fullname: "Bench", Username: "bench", Email: "bench", Password: "pw"})
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cat.Djs.Get(ctx, dj.ID); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDjGetByUsername(b *testing.B) {
	ctx := context.Background()
	_, _, cat := newTestCatalog(b)
	_, err := cat.Djs.Create(ctx, catalog.NewDj{Fullname: "Bench", Username: "bench", Email: "bench", Password: "pw"})
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cat.Djs.GetByUsername(ctx, "bench"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkNewAlbumsView(b *testing.B) {
	ctx := context.Background()
	_, _, cat := newTestCatalog(b)
	seedAlbums(b, cat, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cat.Albums.NewAlbums(ctx, 36, catalog.SortArtist); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAutocomplete(b *testing.B) {
	ctx := context.Background()
	_, _, cat := newTestCatalog(b)
	seedAlbums(b, cat, 50)
	prefixes := []string{"b", "ba", "ban", "band", "band 0", "band 1"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cat.Artists.Autocomplete(ctx, prefixes[i%len(prefixes)]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkConcurrentDjGet(b *testing.B) {
	ctx := context.Background()
	_, _, cat := newTestCatalog(b)
	ids := make([]uuid.UUID, 20)
	for i := range ids {
		dj, err := cat.Djs.Create(ctx, catalog.NewDj{
			Fullname: fmt.Sprintf("DJ %d", i),
			Username: fmt.Sprintf("dj%d", i),
			Email:    fmt.Sprintf("dj%d", i),
			Password: "pw",
		})
		require.NoError(b, err)
		ids[i] = dj.ID
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := cat.Djs.Get(ctx, ids[i%len(ids)]); err != nil {
				b.Error(err)
				return
			}
			i++
		}
	})
}
