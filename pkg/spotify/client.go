package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/catalog"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
)

const trackURIPrefix = "spotify:track:"

type Options struct {
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	PublicPlaylists bool
	Timeout         time.Duration
}

// Client adapts the Spotify Web API to catalog.Client.
type Client struct {
	api    *spotifyapi.Client
	public bool
	log    *zap.Logger

	mu     sync.Mutex
	userID string
}

var _ catalog.Client = (*Client)(nil)

// NewClient builds an API client that refreshes its access token from the
// stored refresh token. Obtaining that token is outside this service.
func NewClient(ctx context.Context, opts Options, log *zap.Logger) (*Client, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" || opts.RefreshToken == "" {
		return nil, fmt.Errorf("spotify client id, secret and refresh token must be provided: %w", catalog.ErrUnauthorized)
	}

	base := &http.Client{
		Transport: newRateLimitTransport(http.DefaultTransport),
		Timeout:   opts.Timeout,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	auth := spotifyauth.New(
		spotifyauth.WithClientID(opts.ClientID),
		spotifyauth.WithClientSecret(opts.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserLibraryRead,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopePlaylistModifyPublic,
		),
	)
	httpClient := auth.Client(ctx, &oauth2.Token{RefreshToken: opts.RefreshToken})
	httpClient.Timeout = opts.Timeout

	return New(spotifyapi.New(httpClient), opts.PublicPlaylists, log), nil
}

// New wraps an already configured API client. Its HTTP transport should
// include the rate limit transport for Retry-After hints to be honoured.
func New(api *spotifyapi.Client, public bool, log *zap.Logger) *Client {
	return &Client{
		api:    api,
		public: public,
		log:    log,
	}
}

func (c *Client) SavedTracks(ctx context.Context, limit, offset int) ([]catalog.SavedTrack, error) {
	page, err := c.api.CurrentUsersTracks(ctx, spotifyapi.Limit(limit), spotifyapi.Offset(offset))
	if err != nil {
		return nil, classify("get saved tracks", err)
	}

	tracks := make([]catalog.SavedTrack, 0, len(page.Tracks))
	for _, item := range page.Tracks {
		track := catalog.SavedTrack{
			ID:    string(item.ID),
			Name:  item.Name,
			URI:   string(item.URI),
			Album: item.Album.Name,
		}
		if len(item.Artists) > 0 {
			track.Artist = item.Artists[0].Name
			track.ArtistID = string(item.Artists[0].ID)
		}
		tracks = append(tracks, track)
	}

	return tracks, nil
}

func (c *Client) Artists(ctx context.Context, ids []string) ([]catalog.Artist, error) {
	apiIDs := make([]spotifyapi.ID, 0, len(ids))
	for _, id := range ids {
		apiIDs = append(apiIDs, spotifyapi.ID(id))
	}

	artists, err := c.api.GetArtists(ctx, apiIDs...)
	if err != nil {
		return nil, classify("get artists", err)
	}

	out := make([]catalog.Artist, 0, len(artists))
	for _, artist := range artists {
		if artist == nil {
			continue
		}
		out = append(out, catalog.Artist{
			ID:     string(artist.ID),
			Name:   artist.Name,
			Genres: artist.Genres,
		})
	}

	return out, nil
}

func (c *Client) Playlists(ctx context.Context, limit, offset int) ([]models.Playlist, error) {
	page, err := c.api.CurrentUsersPlaylists(ctx, spotifyapi.Limit(limit), spotifyapi.Offset(offset))
	if err != nil {
		return nil, classify("get playlists", err)
	}

	playlists := make([]models.Playlist, 0, len(page.Playlists))
	for _, p := range page.Playlists {
		playlists = append(playlists, models.Playlist{
			ID:         string(p.ID),
			Name:       p.Name,
			OwnerID:    p.Owner.ID,
			TrackCount: int(p.Tracks.Total),
		})
	}

	return playlists, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, name, description string) (models.Playlist, error) {
	userID, err := c.CurrentUserID(ctx)
	if err != nil {
		return models.Playlist{}, err
	}

	p, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, c.public, false)
	if err != nil {
		return models.Playlist{}, classifyWrite("create playlist", err)
	}

	c.log.Info("created playlist", zap.String("playlist_id", string(p.ID)), zap.String("name", p.Name))

	return models.Playlist{ID: string(p.ID), Name: p.Name, OwnerID: userID}, nil
}

// PlaylistItems returns one URI per item. Items that are neither tracks nor
// episodes come back as empty strings so the page length stays intact.
func (c *Client) PlaylistItems(ctx context.Context, playlistID string, limit, offset int) ([]string, error) {
	page, err := c.api.GetPlaylistItems(ctx, spotifyapi.ID(playlistID), spotifyapi.Limit(limit), spotifyapi.Offset(offset))
	if err != nil {
		return nil, classify("get playlist items", err)
	}

	uris := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		switch {
		case item.Track.Track != nil:
			uris = append(uris, string(item.Track.Track.URI))
		case item.Track.Episode != nil:
			uris = append(uris, string(item.Track.Episode.URI))
		default:
			uris = append(uris, "")
		}
	}

	return uris, nil
}

func (c *Client) AddItems(ctx context.Context, playlistID string, uris []string) error {
	ids := make([]spotifyapi.ID, 0, len(uris))
	for _, uri := range uris {
		ids = append(ids, spotifyapi.ID(strings.TrimPrefix(uri, trackURIPrefix)))
	}

	if _, err := c.api.AddTracksToPlaylist(ctx, spotifyapi.ID(playlistID), ids...); err != nil {
		return classifyWrite("add tracks to playlist", err)
	}
	return nil
}

func (c *Client) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	if err := c.api.UnfollowPlaylist(ctx, spotifyapi.ID(playlistID)); err != nil {
		return classifyWrite("unfollow playlist", err)
	}
	return nil
}

// CurrentUserID returns the account's user ID, fetched once per client.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.userID != "" {
		return c.userID, nil
	}

	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", classify("get current user", err)
	}
	c.userID = user.ID
	return c.userID, nil
}

// classifyWrite is classify for playlist mutations. There a 403 means the
// playlist is not the account's to change, which only concerns that
// playlist.
func classifyWrite(op string, err error) error {
	if apiStatus(err) == http.StatusForbidden {
		return fmt.Errorf("%s: %w: %w", op, catalog.ErrForbidden, err)
	}
	return classify(op, err)
}

// classify maps API and transport failures onto the catalog error taxonomy.
func classify(op string, err error) error {
	if _, ok := catalog.AsRateLimit(err); ok {
		return fmt.Errorf("%s: %w", op, err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%s: %w: %w", op, catalog.ErrUnauthorized, err)
	}

	status := apiStatus(err)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %w", op, catalog.ErrUnauthorized, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", op, &catalog.RateLimitError{RetryAfter: defaultRetryAfter})
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%s: %w: %w", op, catalog.ErrTransient, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func apiStatus(err error) int {
	var apiErr spotifyapi.Error
	var apiErrPtr *spotifyapi.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Status
	case errors.As(err, &apiErrPtr):
		return apiErrPtr.Status
	}
	return 0
}
