package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
)

const (
	// SavedTracksPageSize is the largest page the saved-tracks endpoint serves.
	SavedTracksPageSize = 50
	// ArtistsBatchSize is the most artists one metadata call accepts.
	ArtistsBatchSize = 50
	// PlaylistsPageSize is the largest page of the account's playlists.
	PlaylistsPageSize = 50
	// PlaylistItemsPageSize is the largest page of playlist items.
	PlaylistItemsPageSize = 100
	// MaxAppendBatch is the most items one append call accepts.
	MaxAppendBatch = 100
)

// SavedTrack is one entry of the saved-tracks collection before genres are
// attached.
type SavedTrack struct {
	ID       string
	Name     string
	URI      string
	Album    string
	Artist   string // primary artist
	ArtistID string
}

type Artist struct {
	ID     string
	Name   string
	Genres []string
}

// Client is the part of the remote catalog the engine depends on.
// Paginated calls return a short page when the collection is exhausted.
type Client interface {
	CurrentUserID(ctx context.Context) (string, error)
	SavedTracks(ctx context.Context, limit, offset int) ([]SavedTrack, error)
	Artists(ctx context.Context, ids []string) ([]Artist, error)
	Playlists(ctx context.Context, limit, offset int) ([]models.Playlist, error)
	CreatePlaylist(ctx context.Context, name, description string) (models.Playlist, error)
	PlaylistItems(ctx context.Context, playlistID string, limit, offset int) ([]string, error)
	AddItems(ctx context.Context, playlistID string, uris []string) error
	// UnfollowPlaylist removes the playlist from the account. For an owned
	// playlist this is how the catalog deletes it.
	UnfollowPlaylist(ctx context.Context, playlistID string) error
}

// ErrUnauthorized means the catalog rejected the credentials. It aborts the
// whole run.
var ErrUnauthorized = errors.New("catalog: not authorized")

// ErrTransient marks errors worth retrying: timeouts, connection resets and
// 5xx responses.
var ErrTransient = errors.New("catalog: transient error")

// ErrForbidden means the account may not change the playlist, for example
// because somebody else owns it. It fails the bucket, not the run.
var ErrForbidden = errors.New("catalog: forbidden")

// RateLimitError is returned when the catalog throttles the account.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("catalog: rate limited, retry after %s", e.RetryAfter)
}

// AsRateLimit returns the rate limit error in err's chain, if any.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTransient reports whether err is worth retrying after a backoff:
// timeouts, dropped connections and socket errors. Anything else that came
// out of the HTTP client, such as a bad certificate or a token endpoint
// failure, is permanent. Rate limits are not transient errors; they are
// scheduled retries.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := AsRateLimit(err); ok {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
