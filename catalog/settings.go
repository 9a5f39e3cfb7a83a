package catalog

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Settings holds the tunables of the catalog caches.
type Settings struct {
	// NewAlbumsCapacity bounds the cached new-albums list when it grows from toggles.
	NewAlbumsCapacity int `yaml:"new_albums_capacity"`
	// DefaultNewAlbums is the page size used when NewAlbums is called without a limit.
	DefaultNewAlbums int `yaml:"default_new_albums"`

	AutocompletePageSize   int `yaml:"autocomplete_page_size"`
	AutocompleteMinCache   int `yaml:"autocomplete_min_cache"`
	AutocompleteMinResults int `yaml:"autocomplete_min_results"`

	ResetTokenTTL time.Duration `yaml:"reset_token_ttl"`
	// EmailDomain completes bare email addresses such as "jdoe" or "jdoe@".
	EmailDomain string `yaml:"email_domain"`
	// ListAllLimit caps the unpaged listings.
	ListAllLimit int `yaml:"list_all_limit"`
}

// DefaultSettings returns the station defaults.
func DefaultSettings() Settings {
	return Settings{
		NewAlbumsCapacity:      50,
		DefaultNewAlbums:       36,
		AutocompletePageSize:   10,
		AutocompleteMinCache:   10,
		AutocompleteMinResults: 5,
		ResetTokenTTL:          48 * time.Hour,
		EmailDomain:            "bowdoin.edu",
		ListAllLimit:           1000,
	}
}

// Validate checks that every setting is usable.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.NewAlbumsCapacity, validation.Required, validation.Min(1)),
		validation.Field(&s.DefaultNewAlbums, validation.Required, validation.Min(1)),
		validation.Field(&s.AutocompletePageSize, validation.Required, validation.Min(1)),
		validation.Field(&s.AutocompleteMinCache, validation.Min(0)),
		validation.Field(&s.AutocompleteMinResults, validation.Min(0)),
		validation.Field(&s.ResetTokenTTL, validation.Required),
		validation.Field(&s.EmailDomain, validation.Required),
		validation.Field(&s.ListAllLimit, validation.Required, validation.Min(1)),
	)
}
