package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
	"go.uber.org/zap"
)

// Reader turns the saved-tracks collection into tracks with genre tags.
type Reader struct {
	client Client
	caller *Caller
	log    *zap.Logger
}

type ReadResult struct {
	Tracks       []models.Track
	UniqueGenres []string
	Skipped      int // saved tracks dropped for missing data
}

func NewReader(client Client, caller *Caller, log *zap.Logger) *Reader {
	return &Reader{
		client: client,
		caller: caller,
		log:    log,
	}
}

// ReadTracks pages through the saved tracks and attaches the primary
// artist's genres to each. Only authorization failures and cancellation are
// returned as errors; anything else drops the affected tracks and goes on.
func (r *Reader) ReadTracks(ctx context.Context) (ReadResult, error) {
	saved, err := r.savedTracks(ctx)
	if err != nil {
		return ReadResult{}, err
	}

	result := ReadResult{}
	valid := make([]SavedTrack, 0, len(saved))
	seen := make(map[string]struct{}, len(saved))
	artistIDs := make([]string, 0)
	wantArtist := make(map[string]struct{})

	for _, track := range saved {
		if track.URI == "" || strings.TrimSpace(track.Artist) == "" || track.ArtistID == "" {
			r.log.Warn("skipping saved track with missing data",
				zap.String("track_id", track.ID),
				zap.String("name", track.Name),
				zap.String("uri", track.URI))
			result.Skipped++
			continue
		}
		if _, ok := seen[track.URI]; ok {
			continue
		}
		seen[track.URI] = struct{}{}
		valid = append(valid, track)

		if _, ok := wantArtist[track.ArtistID]; !ok {
			wantArtist[track.ArtistID] = struct{}{}
			artistIDs = append(artistIDs, track.ArtistID)
		}
	}

	genres, err := r.artistGenres(ctx, artistIDs)
	if err != nil {
		return ReadResult{}, err
	}

	unique := make(map[string]struct{})
	for _, track := range valid {
		tags, ok := genres[track.ArtistID]
		if !ok {
			r.log.Warn("skipping track without artist metadata",
				zap.String("uri", track.URI),
				zap.String("artist", track.Artist))
			result.Skipped++
			continue
		}

		for _, tag := range tags {
			unique[tag] = struct{}{}
		}

		result.Tracks = append(result.Tracks, models.Track{
			ID:       track.ID,
			Name:     track.Name,
			Artist:   track.Artist,
			ArtistID: track.ArtistID,
			Album:    track.Album,
			Genres:   tags,
			URI:      track.URI,
		})
	}

	result.UniqueGenres = make([]string, 0, len(unique))
	for tag := range unique {
		result.UniqueGenres = append(result.UniqueGenres, tag)
	}
	sort.Strings(result.UniqueGenres)

	r.log.Info("Read saved tracks",
		zap.Int("tracks", len(result.Tracks)),
		zap.Int("skipped", result.Skipped),
		zap.Int("unique_genres", len(result.UniqueGenres)))

	return result, nil
}

func (r *Reader) savedTracks(ctx context.Context) ([]SavedTrack, error) {
	all := make([]SavedTrack, 0)

	for offset := 0; ; offset += SavedTracksPageSize {
		var page []SavedTrack
		err := r.caller.Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = r.client.SavedTracks(ctx, SavedTracksPageSize, offset)
			return err
		})
		if err != nil {
			if IsUnauthorized(err) || ctx.Err() != nil {
				return nil, err
			}
			r.log.Error("failed to fetch saved tracks page, keeping what was read",
				zap.Int("offset", offset),
				zap.Int("read", len(all)),
				zap.Error(err))
			break
		}

		all = append(all, page...)
		if len(page) < SavedTracksPageSize {
			break
		}

		r.log.Debug("fetched saved tracks", zap.Int("so_far", len(all)))
	}

	return all, nil
}

// artistGenres maps artist IDs to their genre tags. Artists whose batch
// could not be fetched are absent from the map.
func (r *Reader) artistGenres(ctx context.Context, ids []string) (map[string][]string, error) {
	genres := make(map[string][]string, len(ids))

	for start := 0; start < len(ids); start += ArtistsBatchSize {
		end := min(start+ArtistsBatchSize, len(ids))
		batch := ids[start:end]

		var artists []Artist
		err := r.caller.Do(ctx, func(ctx context.Context) error {
			var err error
			artists, err = r.client.Artists(ctx, batch)
			return err
		})
		if err != nil {
			if IsUnauthorized(err) || ctx.Err() != nil {
				return nil, err
			}
			r.log.Error("failed to fetch artists, their tracks will be skipped",
				zap.Int("artists", len(batch)),
				zap.Error(err))
			continue
		}

		for _, artist := range artists {
			if artist.Genres == nil {
				genres[artist.ID] = []string{}
				continue
			}
			genres[artist.ID] = artist.Genres
		}
	}

	return genres, nil
}
