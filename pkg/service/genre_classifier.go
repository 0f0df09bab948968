package service

import (
	"strings"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/taxonomy"
)

// ClassifyGenres puts every track into exactly one broad genre bucket.
// Labels claim tracks in priority order, so a track tagged with both a
// niche and a mainstream genre goes to the niche one no matter how its
// tags are ordered. Tracks nobody claims go to Other.
func ClassifyGenres(tracks []models.Track, genres taxonomy.Genres) models.Buckets {
	buckets := make(models.Buckets)
	assigned := make(map[string]struct{}, len(tracks))

	for _, label := range genres.Order() {
		for _, track := range tracks {
			if _, ok := assigned[track.URI]; ok {
				continue
			}
			if !matchesAnyTag(genres, label, track.Genres) {
				continue
			}
			assigned[track.URI] = struct{}{}
			buckets[label] = append(buckets[label], track.URI)
		}
	}

	for _, track := range tracks {
		if _, ok := assigned[track.URI]; ok {
			continue
		}
		assigned[track.URI] = struct{}{}
		buckets[taxonomy.OtherGenre] = append(buckets[taxonomy.OtherGenre], track.URI)
	}

	return buckets
}

func matchesAnyTag(genres taxonomy.Genres, label string, tags []string) bool {
	for _, tag := range tags {
		if genres.Matches(label, tag) {
			return true
		}
	}
	return false
}

// UnmatchedGenres counts the raw tags of the tracks that ended up in Other.
// These are the tags the genre table is missing.
func UnmatchedGenres(tracks []models.Track, buckets models.Buckets) map[string]int {
	other := make(map[string]struct{}, len(buckets[taxonomy.OtherGenre]))
	for _, uri := range buckets[taxonomy.OtherGenre] {
		other[uri] = struct{}{}
	}

	counts := make(map[string]int)
	for _, track := range tracks {
		if _, ok := other[track.URI]; !ok {
			continue
		}
		delete(other, track.URI)
		for _, tag := range track.Genres {
			if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
				counts[tag]++
			}
		}
	}

	return counts
}
