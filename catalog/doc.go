// Package catalog implements the station catalog services on top of the repositorycache
// components: DJ accounts, permissions, albums with their songs, and artist names.
//
// Every service reads through its caches and writes to the authoritative store first:
//
//	client := cache.NewClient(backend)
//	cat, err := catalog.New(client, catalog.Stores{
//		Djs:         djStore,
//		Permissions: permissionStore,
//		Albums:      albumStore,
//		Songs:       songStore,
//		Artists:     artistStore,
//	}, catalog.DefaultSettings(), catalog.WithLogger(logger))
//
//	album, err := cat.Albums.Create(ctx, catalog.NewAlbum{Title: "Abbey Road", Artist: "The Beatles", IsNew: true})
//	latest, err := cat.Albums.NewAlbums(ctx, 0, catalog.SortNewest)
//	matches, err := cat.Artists.Autocomplete(ctx, "bea")
//
// Unique fields (DJ username and email, permission title, artist lowercase name) are checked
// against the store on every write; the index caches only speed up reads. Errors match
// ErrNotFound, ErrUniquenessConflict, ErrInvalidCredential or ErrInvalidInput with errors.Is.
package catalog
