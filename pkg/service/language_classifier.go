package service

import (
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/taxonomy"
)

// ClassifyLanguages puts every track into exactly one language bucket.
func ClassifyLanguages(tracks []models.Track, languages taxonomy.Languages) models.Buckets {
	buckets := make(models.Buckets)
	seen := make(map[string]struct{}, len(tracks))

	for _, track := range tracks {
		if _, ok := seen[track.URI]; ok {
			continue
		}
		seen[track.URI] = struct{}{}

		label := DetectLanguage(track, languages)
		buckets[label] = append(buckets[label], track.URI)
	}

	return buckets
}

// DetectLanguage tries the signals from most to least reliable:
// genre tags first, then artist and title substrings, then the default label.
func DetectLanguage(track models.Track, languages taxonomy.Languages) string {
	entries := languages.Entries()

	for _, tag := range track.Genres {
		for _, lang := range entries {
			if lang.HasGenre(tag) {
				return lang.Label
			}
		}
	}

	for _, lang := range entries {
		if lang.MatchesArtist(track.Artist) || lang.MatchesKeyword(track.Artist, track.Name) {
			return lang.Label
		}
	}

	return languages.Default()
}
