// Package catalogtest provides an in-memory catalog for tests.
package catalogtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/catalog"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
)

var _ catalog.Client = (*Catalog)(nil)

// UserID owns the playlists the fake creates.
const UserID = "library-owner"

// AddCall records one append call.
type AddCall struct {
	PlaylistID string
	URIs       []string
}

// Catalog is a fake catalog.Client. The *Err hooks are consulted before the
// in-memory state; returning a non-nil error fails that call.
type Catalog struct {
	mu sync.Mutex

	Saved       []catalog.SavedTrack
	ArtistsByID map[string]catalog.Artist
	Lists       []models.Playlist
	Items       map[string][]string

	SavedTracksErr   func(offset int) error
	ArtistsErr       func(ids []string) error
	PlaylistsErr     func(offset int) error
	CreateErr        func(name string) error
	PlaylistItemsErr func(playlistID string, offset int) error
	UnfollowErr      func(playlistID string) error
	// AddErr receives the 1-based number of the append call.
	AddErr func(call int, playlistID string, uris []string) error

	AddCalls       []AddCall
	AddAttempts    int
	CreateCalls    []string
	ItemsCalls     int
	PlaylistsCalls int
	ArtistsCalls   int
	UnfollowCalls  []string

	nextID int
}

func New() *Catalog {
	return &Catalog{
		ArtistsByID: make(map[string]catalog.Artist),
		Items:       make(map[string][]string),
	}
}

// AddSaved registers a saved track and its artist.
func (c *Catalog) AddSaved(uri, name, artist string, genres ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	artistID := "artist-" + artist
	c.Saved = append(c.Saved, catalog.SavedTrack{
		ID:       uri,
		Name:     name,
		URI:      uri,
		Artist:   artist,
		ArtistID: artistID,
	})
	c.ArtistsByID[artistID] = catalog.Artist{ID: artistID, Name: artist, Genres: genres}
}

// AddPlaylist registers an existing playlist of the account with the given
// items.
func (c *Catalog) AddPlaylist(name string, uris ...string) models.Playlist {
	return c.AddFollowedPlaylist(UserID, name, uris...)
}

// AddFollowedPlaylist registers a playlist owned by owner that shows up in
// the account's playlists.
func (c *Catalog) AddFollowedPlaylist(owner, name string, uris ...string) models.Playlist {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := models.Playlist{ID: c.newID(), Name: name, OwnerID: owner, TrackCount: len(uris)}
	c.Lists = append(c.Lists, p)
	c.Items[p.ID] = append([]string(nil), uris...)
	return p
}

// PlaylistByName returns the first playlist of the account with the exact
// name.
func (c *Catalog) PlaylistByName(name string) (models.Playlist, []string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.Lists {
		if p.Name == name && p.OwnerID == UserID {
			return p, append([]string(nil), c.Items[p.ID]...), true
		}
	}
	return models.Playlist{}, nil, false
}

func (c *Catalog) newID() string {
	c.nextID++
	return fmt.Sprintf("playlist-%d", c.nextID)
}

func (c *Catalog) CurrentUserID(_ context.Context) (string, error) {
	return UserID, nil
}

func (c *Catalog) SavedTracks(_ context.Context, limit, offset int) ([]catalog.SavedTrack, error) {
	if c.SavedTracksErr != nil {
		if err := c.SavedTracksErr(offset); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return page(c.Saved, limit, offset), nil
}

func (c *Catalog) Artists(_ context.Context, ids []string) ([]catalog.Artist, error) {
	c.mu.Lock()
	c.ArtistsCalls++
	c.mu.Unlock()

	if c.ArtistsErr != nil {
		if err := c.ArtistsErr(ids); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]catalog.Artist, 0, len(ids))
	for _, id := range ids {
		if a, ok := c.ArtistsByID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *Catalog) Playlists(_ context.Context, limit, offset int) ([]models.Playlist, error) {
	c.mu.Lock()
	c.PlaylistsCalls++
	c.mu.Unlock()

	if c.PlaylistsErr != nil {
		if err := c.PlaylistsErr(offset); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return page(c.Lists, limit, offset), nil
}

func (c *Catalog) CreatePlaylist(_ context.Context, name, _ string) (models.Playlist, error) {
	c.mu.Lock()
	c.CreateCalls = append(c.CreateCalls, name)
	c.mu.Unlock()

	if c.CreateErr != nil {
		if err := c.CreateErr(name); err != nil {
			return models.Playlist{}, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := models.Playlist{ID: c.newID(), Name: name, OwnerID: UserID}
	c.Lists = append(c.Lists, p)
	c.Items[p.ID] = nil
	return p, nil
}

func (c *Catalog) PlaylistItems(_ context.Context, playlistID string, limit, offset int) ([]string, error) {
	c.mu.Lock()
	c.ItemsCalls++
	c.mu.Unlock()

	if c.PlaylistItemsErr != nil {
		if err := c.PlaylistItemsErr(playlistID, offset); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return page(c.Items[playlistID], limit, offset), nil
}

func (c *Catalog) AddItems(_ context.Context, playlistID string, uris []string) error {
	c.mu.Lock()
	c.AddAttempts++
	call := c.AddAttempts
	c.mu.Unlock()

	if c.AddErr != nil {
		if err := c.AddErr(call, playlistID, uris); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.AddCalls = append(c.AddCalls, AddCall{PlaylistID: playlistID, URIs: append([]string(nil), uris...)})
	c.Items[playlistID] = append(c.Items[playlistID], uris...)
	return nil
}

func (c *Catalog) UnfollowPlaylist(_ context.Context, playlistID string) error {
	c.mu.Lock()
	c.UnfollowCalls = append(c.UnfollowCalls, playlistID)
	c.mu.Unlock()

	if c.UnfollowErr != nil {
		if err := c.UnfollowErr(playlistID); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.Lists[:0]
	for _, p := range c.Lists {
		if p.ID != playlistID {
			kept = append(kept, p)
		}
	}
	c.Lists = kept
	delete(c.Items, playlistID)
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return append([]T(nil), items[offset:end]...)
}
