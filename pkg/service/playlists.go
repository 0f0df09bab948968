package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
)

// ManagedPlaylists returns the account's own playlists named after one of
// labels. Every playlist with a matching name is returned, duplicates
// included.
func (r *Reconciler) ManagedPlaylists(ctx context.Context, labels []string) ([]models.Playlist, error) {
	names := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		names[models.PlaylistName(label)] = struct{}{}
	}

	owner, err := r.owner(ctx)
	if err != nil {
		return nil, err
	}

	managed := make([]models.Playlist, 0)
	err = r.eachPlaylist(ctx, func(p models.Playlist) bool {
		if _, ok := names[p.Name]; ok && p.OwnerID == owner {
			managed = append(managed, p)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}

	return managed, nil
}

// RemovePlaylist unfollows the playlist, which deletes it for its owner.
func (r *Reconciler) RemovePlaylist(ctx context.Context, p models.Playlist) error {
	log := r.log.With(zap.String("playlist_id", p.ID), zap.String("playlist", p.Name))

	if r.dryRun {
		log.Info("dry run: would remove playlist")
		return nil
	}

	err := r.caller.Do(ctx, func(ctx context.Context) error {
		return r.client.UnfollowPlaylist(ctx, p.ID)
	})
	if err != nil {
		return fmt.Errorf("remove playlist %q: %w", p.Name, err)
	}

	log.Info("removed playlist")
	return nil
}
