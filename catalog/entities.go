package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Dj is a station member who can log in.
type Dj struct {
	bun.BaseModel `bun:"table:djs,alias:dj" msgpack:"-" json:"-"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Fullname     string    `bun:"fullname,notnull" json:"fullname"`
	Lowername    string    `bun:"lowername,notnull" json:"lowername"`
	Email        string    `bun:"email,notnull,unique" json:"email"`
	Username     string    `bun:"username,notnull,unique" json:"username"`
	PasswordHash string    `bun:"password_hash" json:"-"`
	ResetExpire  time.Time `bun:"pw_reset_expire,nullzero" json:"-"`
	ResetHash    string    `bun:"pw_reset_hash" json:"-"`
}

func (d *Dj) PrimaryKey() uuid.UUID { return d.ID }

func (d *Dj) Field(name string) any {
	switch name {
	case "id":
		return d.ID
	case "fullname":
		return d.Fullname
	case "lowername":
		return d.Lowername
	case "email":
		return d.Email
	case "username":
		return d.Username
	}
	return nil
}

// Permission grants a titled capability to a set of DJs.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:perm" msgpack:"-" json:"-"`

	ID    uuid.UUID   `bun:"id,pk,type:uuid" json:"id"`
	Title string      `bun:"title,notnull,unique" json:"title"`
	DjIDs []uuid.UUID `bun:"dj_list,array" json:"dj_list"`
}

func (p *Permission) PrimaryKey() uuid.UUID { return p.ID }

func (p *Permission) Field(name string) any {
	switch name {
	case "id":
		return p.ID
	case "title":
		return p.Title
	}
	return nil
}

// HasDj reports whether dj holds the permission.
func (p *Permission) HasDj(dj uuid.UUID) bool {
	if p == nil || dj == uuid.Nil {
		return false
	}
	for _, id := range p.DjIDs {
		if id == dj {
			return true
		}
	}
	return false
}

// Default permission titles.
const (
	PermissionManageDjs         = "Manage DJs"
	PermissionManagePrograms    = "Manage Programs"
	PermissionManagePermissions = "Manage Permissions"
	PermissionManageAlbums      = "Manage Albums"
	PermissionManageGenres      = "Manage Genres"
	PermissionManageBlog        = "Manage Blog"
	PermissionManageEvents      = "Manage Events"
)

// DefaultPermissions lists the titles EnsureDefaults creates.
var DefaultPermissions = []string{
	PermissionManageDjs,
	PermissionManagePrograms,
	PermissionManagePermissions,
	PermissionManageAlbums,
	PermissionManageGenres,
	PermissionManageBlog,
	PermissionManageEvents,
}

// Album is a library album. Everything but IsNew is fixed at creation.
type Album struct {
	bun.BaseModel `bun:"table:albums,alias:album" msgpack:"-" json:"-"`

	ID         uuid.UUID   `bun:"id,pk,type:uuid" json:"key"`
	Title      string      `bun:"title,notnull" json:"title"`
	LowerTitle string      `bun:"lower_title" json:"-"`
	Artist     string      `bun:"artist" json:"artist"`
	ASIN       string      `bun:"asin" json:"asin,omitempty"`
	AddDate    time.Time   `bun:"add_date,notnull" json:"add_date"`
	IsNew      bool        `bun:"is_new" json:"is_new"`
	SongIDs    []uuid.UUID `bun:"song_list,array" json:"song_list"`
}

func (a *Album) PrimaryKey() uuid.UUID { return a.ID }

func (a *Album) Field(name string) any {
	switch name {
	case "id":
		return a.ID
	case "title":
		return a.Title
	case "lower_title":
		return a.LowerTitle
	case "artist":
		return a.Artist
	case "asin":
		return a.ASIN
	case "add_date":
		return a.AddDate
	case "is_new":
		return a.IsNew
	}
	return nil
}

// Song is an immutable track of an album.
type Song struct {
	bun.BaseModel `bun:"table:songs,alias:song" msgpack:"-" json:"-"`

	ID      uuid.UUID `bun:"id,pk,type:uuid" json:"key"`
	Title   string    `bun:"title,notnull" json:"title"`
	Artist  string    `bun:"artist" json:"artist"`
	AlbumID uuid.UUID `bun:"album_id,type:uuid,nullzero" json:"album_key"`
}

func (s *Song) PrimaryKey() uuid.UUID { return s.ID }

func (s *Song) Field(name string) any {
	switch name {
	case "id":
		return s.ID
	case "title":
		return s.Title
	case "artist":
		return s.Artist
	case "album_id":
		return s.AlbumID
	}
	return nil
}

// ArtistName is a searchable artist. LowercaseName and SearchName are derived from Name.
type ArtistName struct {
	bun.BaseModel `bun:"table:artist_names,alias:artist" msgpack:"-" json:"-"`

	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"key"`
	Name          string    `bun:"artist_name,notnull" json:"artist_name"`
	LowercaseName string    `bun:"lowercase_name,notnull,unique" json:"-"`
	SearchName    string    `bun:"search_name,notnull" json:"-"`
}

func (a *ArtistName) PrimaryKey() uuid.UUID { return a.ID }

func (a *ArtistName) Field(name string) any {
	switch name {
	case "id":
		return a.ID
	case "artist_name":
		return a.Name
	case "lowercase_name":
		return a.LowercaseName
	case "search_name":
		return a.SearchName
	}
	return nil
}

var searchIgnorePrefixes = []string{"the ", "a ", "an "}

// SearchName lowercases name and strips the leading articles "the ", "a " and "an ", each
// checked once in that order, so "The A Team" becomes "team".
func SearchName(name string) string {
	name = strings.ToLower(name)
	for _, prefix := range searchIgnorePrefixes {
		name = strings.TrimPrefix(name, prefix)
	}
	return name
}
