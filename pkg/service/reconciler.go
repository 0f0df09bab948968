package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/catalog"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
)

// Reconciler keeps one remote playlist per bucket. Playlists are found by
// name, created when missing and only ever appended to.
type Reconciler struct {
	client    catalog.Client
	caller    *catalog.Caller
	batchSize int
	dryRun    bool
	log       *zap.Logger

	mu     sync.Mutex
	userID string
}

func NewReconciler(client catalog.Client, caller *catalog.Caller, batchSize int, dryRun bool, log *zap.Logger) *Reconciler {
	if batchSize <= 0 || batchSize > catalog.MaxAppendBatch {
		batchSize = catalog.MaxAppendBatch
	}

	return &Reconciler{
		client:    client,
		caller:    caller,
		batchSize: batchSize,
		dryRun:    dryRun,
		log:       log,
	}
}

// Reconcile uploads the URIs the bucket's playlist is missing.
//
// Bucket-level failures (creation failed, membership unreadable, upload
// retries exhausted) are recorded in the report and the error is nil, so
// other buckets can go on. An error is returned only when the catalog
// rejects the credentials or ctx is done.
func (r *Reconciler) Reconcile(ctx context.Context, kind models.ClassificationKind, label string, uris []string) (models.BucketReport, error) {
	report := models.BucketReport{
		Kind:         kind,
		Label:        label,
		PlaylistName: models.PlaylistName(label),
	}

	target := uniqueURIs(uris)
	report.Target = len(target)
	if len(target) == 0 {
		return report, nil
	}

	log := r.log.With(zap.String("kind", string(kind)), zap.String("playlist", report.PlaylistName))

	playlist, found, err := r.findPlaylist(ctx, report.PlaylistName)
	if err != nil {
		return r.fail(ctx, log, report, "find playlist", err)
	}

	existing := map[string]struct{}{}
	switch {
	case found:
		report.PlaylistID = playlist.ID
		existing, err = r.membership(ctx, playlist.ID)
		if err != nil {
			return r.fail(ctx, log, report, "fetch playlist items", err)
		}
	case r.dryRun:
		log.Info("dry run: would create playlist")
	default:
		playlist, err = r.createPlaylist(ctx, kind, label, report.PlaylistName)
		if err != nil {
			return r.fail(ctx, log, report, "create playlist", err)
		}
		report.PlaylistID = playlist.ID
		report.Created = true
	}
	report.Existing = len(existing)

	delta := make([]string, 0, len(target))
	for _, uri := range target {
		if _, ok := existing[uri]; !ok {
			delta = append(delta, uri)
		}
	}
	report.Delta = len(delta)

	if len(delta) == 0 {
		log.Info("playlist is up to date", zap.Int("tracks", report.Target))
		return report, nil
	}
	if r.dryRun {
		log.Info("dry run: would upload tracks", zap.Int("tracks", len(delta)))
		return report, nil
	}

	for start := 0; start < len(delta); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		end := min(start+r.batchSize, len(delta))
		chunk := delta[start:end]

		err := r.caller.Do(ctx, func(ctx context.Context) error {
			return r.client.AddItems(ctx, playlist.ID, chunk)
		})
		if err != nil {
			log.Error("failed to upload batch, skipping the rest of the bucket",
				zap.Int("offset", start),
				zap.Int("batch", len(chunk)),
				zap.Int("uploaded", report.Uploaded),
				zap.Error(err))
			return r.fail(ctx, log, report, "upload batch", err)
		}

		report.Uploaded += len(chunk)
		log.Debug("uploaded batch", zap.Int("batch", len(chunk)), zap.Int("uploaded", report.Uploaded))
	}

	log.Info("reconciled playlist",
		zap.String("playlist_id", report.PlaylistID),
		zap.Bool("created", report.Created),
		zap.Int("existing", report.Existing),
		zap.Int("uploaded", report.Uploaded))

	return report, nil
}

func (r *Reconciler) fail(ctx context.Context, log *zap.Logger, report models.BucketReport, step string, err error) (models.BucketReport, error) {
	if catalog.IsUnauthorized(err) {
		return report, fmt.Errorf("%s %q: %w", step, report.PlaylistName, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return report, ctxErr
	}

	log.Error("bucket reconciliation failed", zap.String("step", step), zap.Error(err))
	report.Failed = true
	report.Error = fmt.Sprintf("%s: %v", step, err)
	return report, nil
}

// findPlaylist returns the account's own playlist with the exact name.
// Followed playlists of other users can share the name and cannot be
// appended to.
func (r *Reconciler) findPlaylist(ctx context.Context, name string) (models.Playlist, bool, error) {
	owner, err := r.owner(ctx)
	if err != nil {
		return models.Playlist{}, false, err
	}

	var found models.Playlist
	ok := false
	err = r.eachPlaylist(ctx, func(p models.Playlist) bool {
		if p.Name != name {
			return true
		}
		if p.OwnerID != owner {
			r.log.Debug("ignoring playlist owned by another user",
				zap.String("playlist_id", p.ID),
				zap.String("name", p.Name),
				zap.String("owner", p.OwnerID))
			return true
		}
		found, ok = p, true
		return false
	})
	return found, ok, err
}

// eachPlaylist pages through the account's playlists until fn returns false.
func (r *Reconciler) eachPlaylist(ctx context.Context, fn func(p models.Playlist) bool) error {
	for offset := 0; ; offset += catalog.PlaylistsPageSize {
		var page []models.Playlist
		err := r.caller.Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = r.client.Playlists(ctx, catalog.PlaylistsPageSize, offset)
			return err
		})
		if err != nil {
			return err
		}

		for _, p := range page {
			if !fn(p) {
				return nil
			}
		}

		if len(page) < catalog.PlaylistsPageSize {
			return nil
		}
	}
}

func (r *Reconciler) owner(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userID != "" {
		return r.userID, nil
	}

	var id string
	err := r.caller.Do(ctx, func(ctx context.Context) error {
		var err error
		id, err = r.client.CurrentUserID(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("get current user: %w", err)
	}
	r.userID = id
	return id, nil
}

// createPlaylist never retries. A create that timed out may still have
// gone through on the server.
func (r *Reconciler) createPlaylist(ctx context.Context, kind models.ClassificationKind, label, name string) (models.Playlist, error) {
	var playlist models.Playlist
	err := r.caller.Once(ctx, func(ctx context.Context) error {
		var err error
		playlist, err = r.client.CreatePlaylist(ctx, name, models.PlaylistDescription(kind, label))
		return err
	})
	return playlist, err
}

func (r *Reconciler) membership(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	members := make(map[string]struct{})

	for offset := 0; ; offset += catalog.PlaylistItemsPageSize {
		var page []string
		err := r.caller.Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = r.client.PlaylistItems(ctx, playlistID, catalog.PlaylistItemsPageSize, offset)
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, uri := range page {
			if uri != "" {
				members[uri] = struct{}{}
			}
		}

		if len(page) < catalog.PlaylistItemsPageSize {
			return members, nil
		}
	}
}

// uniqueURIs drops empty and repeated URIs, keeping first occurrences in order.
func uniqueURIs(uris []string) []string {
	seen := make(map[string]struct{}, len(uris))
	out := make([]string, 0, len(uris))
	for _, uri := range uris {
		if uri == "" {
			continue
		}
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}
		out = append(out, uri)
	}
	return out
}
