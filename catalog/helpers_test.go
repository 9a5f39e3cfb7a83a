package catalog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-catalog-cache/pkg/testsupport"
	"github.com/goliatone/go-catalog-cache/store/memstore"
)

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	djs         *memstore.Store[*Dj]
	permissions *memstore.Store[*Permission]
	albums      *memstore.Store[*Album]
	songs       *memstore.Store[*Song]
	artists     *memstore.Store[*ArtistName]
	clock       *testClock
	catalog     *Catalog
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithSettings(t, DefaultSettings())
}

func newEnvWithSettings(t *testing.T, settings Settings) *env {
	t.Helper()
	e := &env{
		djs:         memstore.New[*Dj](),
		permissions: memstore.New[*Permission](),
		albums:      memstore.New[*Album](),
		songs:       memstore.New[*Song](),
		artists:     memstore.New[*ArtistName](),
		clock:       newTestClock(),
	}
	cat, err := New(testsupport.NewCacheClient(t, "test"), Stores{
		Djs:         e.djs,
		Permissions: e.permissions,
		Albums:      e.albums,
		Songs:       e.songs,
		Artists:     e.artists,
	}, settings,
		WithPasswordHasher(BcryptHasher{Cost: bcrypt.MinCost}),
		WithClock(e.clock.Now),
	)
	require.NoError(t, err)
	e.catalog = cat
	return e
}

func albumTitles(albums []*Album) []string {
	out := make([]string, len(albums))
	for i, a := range albums {
		out[i] = a.Title
	}
	return out
}

func artistNames(artists []*ArtistName) []string {
	out := make([]string, len(artists))
	for i, a := range artists {
		out[i] = a.Name
	}
	return out
}
