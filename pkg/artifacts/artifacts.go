// Package artifacts persists the intermediate results of a run so a later
// run can resume without reading the library again.
package artifacts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
)

const (
	TracksKey       = "tracks"
	UniqueGenresKey = "unique_genres"
)

// Store is a key/blob store. Get reports a missing key with found=false,
// never with an error.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
}

// BucketsKey is where the buckets of one classification are kept.
func BucketsKey(kind models.ClassificationKind) string {
	return fmt.Sprintf("%s_buckets", kind)
}

func SaveTracks(ctx context.Context, s Store, tracks []models.Track) error {
	return put(ctx, s, TracksKey, tracks)
}

func LoadTracks(ctx context.Context, s Store) ([]models.Track, bool, error) {
	var tracks []models.Track
	found, err := get(ctx, s, TracksKey, &tracks)
	return tracks, found, err
}

func SaveUniqueGenres(ctx context.Context, s Store, genres []string) error {
	return put(ctx, s, UniqueGenresKey, genres)
}

func LoadUniqueGenres(ctx context.Context, s Store) ([]string, bool, error) {
	var genres []string
	found, err := get(ctx, s, UniqueGenresKey, &genres)
	return genres, found, err
}

func SaveBuckets(ctx context.Context, s Store, kind models.ClassificationKind, buckets models.Buckets) error {
	return put(ctx, s, BucketsKey(kind), buckets)
}

func LoadBuckets(ctx context.Context, s Store, kind models.ClassificationKind) (models.Buckets, bool, error) {
	var buckets models.Buckets
	found, err := get(ctx, s, BucketsKey(kind), &buckets)
	return buckets, found, err
}

func put(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", key, err)
	}
	if err := s.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("save artifact %s: %w", key, err)
	}
	return nil
}

func get(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load artifact %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode artifact %s: %w", key, err)
	}
	return true, nil
}

// Discard stores nothing and finds nothing.
type Discard struct{}

func (Discard) Put(context.Context, string, []byte) error {
	return nil
}

func (Discard) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}
