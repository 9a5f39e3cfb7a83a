package catalog

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-catalog-cache/cache"
	rc "github.com/goliatone/go-catalog-cache/repositorycache"
	"github.com/goliatone/go-catalog-cache/store"
)

const newAlbumsTemplate = "new"

// NewSort selects the order of a new albums view.
type NewSort string

const (
	// SortNewest keeps the list order, most recently added first.
	SortNewest NewSort = ""
	// SortArtist orders by artist, ignoring case.
	SortArtist NewSort = "artist"
	// SortAddDate orders by add date, oldest first.
	SortAddDate NewSort = "add_date"
)

func (s NewSort) less() func(a, b *Album) bool {
	switch s {
	case SortArtist:
		return func(a, b *Album) bool {
			return strings.ToLower(a.Artist) < strings.ToLower(b.Artist)
		}
	case SortAddDate:
		return func(a, b *Album) bool { return a.AddDate.Before(b.AddDate) }
	}
	return nil
}

// NewAlbum describes an album to create.
type NewAlbum struct {
	Title   string
	Artist  string
	Tracks  []string
	ASIN    string
	AddDate time.Time
	IsNew   bool
}

// Validate checks the required fields.
func (n NewAlbum) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Title, validation.Required),
		validation.Field(&n.Artist, validation.Required),
	)
}

// Albums manages albums, their songs and the cached list of new albums.
type Albums struct {
	entities *rc.EntityCache[*Album]
	songs    *rc.EntityCache[*Song]
	artists  *Artists
	newList  *rc.ListCache[*Album]
	locks    *rc.KeyedMutex[string]
	settings Settings
	opts     options
}

// NewAlbums creates the album service. Creating an album registers its artist through artists.
func NewAlbums(client *cache.Client, albums store.Store[*Album], songs store.Store[*Song], artists *Artists, settings Settings, opts ...Option) *Albums {
	o := buildOptions(opts)
	ec := entityCache(client, albums)
	return &Albums{
		entities: ec,
		songs:    entityCache(client, songs),
		artists:  artists,
		newList: rc.NewListCache(ec, rc.ListConfig[*Album]{
			Template: newAlbumsTemplate,
			Capacity: settings.NewAlbumsCapacity,
			Filters:  []store.Filter{store.Where("is_new", store.OpEqual, true)},
			Order:    store.Order{Field: "add_date", Desc: true},
			Rank:     func(a *Album) int64 { return -a.AddDate.UnixNano() },
		}, o.logger),
		locks:    rc.NewKeyedMutex[string](),
		settings: settings,
		opts:     o,
	}
}

// Get returns the album with id.
func (a *Albums) Get(ctx context.Context, id uuid.UUID) (*Album, error) {
	album, err := a.entities.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "album", id.String())
	}
	return album, nil
}

// GetMany returns the albums that exist among ids, in order.
func (a *Albums) GetMany(ctx context.Context, ids []uuid.UUID) ([]*Album, error) {
	return a.entities.GetMany(ctx, ids)
}

// Create stores the album and its songs, registers the artist and, for a new album, adds it
// to the new albums list.
func (a *Albums) Create(ctx context.Context, in NewAlbum) (*Album, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err, "new album")
	}
	if in.AddDate.IsZero() {
		in.AddDate = a.opts.now()
	}

	id, err := a.entities.Store().AllocateKey(ctx)
	if err != nil {
		return nil, err
	}

	songIDs := make([]uuid.UUID, 0, len(in.Tracks))
	for _, title := range in.Tracks {
		songID, err := a.songs.Store().AllocateKey(ctx)
		if err != nil {
			return nil, err
		}
		song, err := a.songs.Put(ctx, &Song{
			ID:      songID,
			Title:   strings.TrimSpace(title),
			Artist:  in.Artist,
			AlbumID: id,
		})
		if err != nil {
			return nil, err
		}
		songIDs = append(songIDs, song.ID)
	}

	album := &Album{
		ID:         id,
		Title:      in.Title,
		LowerTitle: strings.ToLower(in.Title),
		Artist:     in.Artist,
		ASIN:       in.ASIN,
		AddDate:    in.AddDate,
		IsNew:      in.IsNew,
		SongIDs:    songIDs,
	}
	album, err = a.Put(ctx, album, rc.Toggle{Was: false, Now: in.IsNew})
	if err != nil {
		return nil, err
	}

	if _, err := a.artists.TryPut(ctx, in.Artist); err != nil {
		return nil, err
	}

	a.opts.logger.Info("album created",
		zap.String("id", id.String()),
		zap.String("title", album.Title),
		zap.Int("songs", len(songIDs)),
	)
	return album, nil
}

// Put writes album to the store and commits the toggle of its new flag to the new albums list.
// Callers must serialise writes to the same album.
func (a *Albums) Put(ctx context.Context, album *Album, t rc.Toggle) (*Album, error) {
	saved, err := a.entities.Put(ctx, album)
	if err != nil {
		return nil, err
	}
	if err := a.newList.Commit(ctx, saved, t); err != nil {
		return nil, err
	}
	return saved, nil
}

// SetNew marks the album as new or not new.
func (a *Albums) SetNew(ctx context.Context, id uuid.UUID, isNew bool) (*Album, error) {
	unlock := a.locks.Lock("album:" + id.String())
	defer unlock()

	album, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t := rc.Toggle{Was: album.IsNew, Now: isNew}
	if !t.Changed() {
		return album, nil
	}
	album.IsNew = isNew
	return a.Put(ctx, album, t)
}

func (a *Albums) newLimit(limit int) int {
	if limit <= 0 {
		return a.settings.DefaultNewAlbums
	}
	return limit
}

// NewAlbumKeys returns the keys of up to limit new albums, most recent first. A non-positive
// limit uses the configured default.
func (a *Albums) NewAlbumKeys(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return a.newList.Keys(ctx, a.newLimit(limit))
}

// NewAlbums returns up to limit new albums in the requested order.
func (a *Albums) NewAlbums(ctx context.Context, limit int, sortBy NewSort) ([]*Album, error) {
	return a.newList.View(ctx, a.newLimit(limit), sortBy.less())
}

// Songs returns the songs of album in track order.
func (a *Albums) Songs(ctx context.Context, album *Album) ([]*Song, error) {
	return a.songs.GetMany(ctx, album.SongIDs)
}

// Song returns the song with id.
func (a *Albums) Song(ctx context.Context, id uuid.UUID) (*Song, error) {
	song, err := a.songs.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "song", id.String())
	}
	return song, nil
}
