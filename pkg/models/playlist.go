package models

import "fmt"

type Playlist struct {
	ID         string `json:"id" bson:"id"`
	Name       string `json:"name" bson:"name"`
	OwnerID    string `json:"owner_id" bson:"owner_id"`
	TrackCount int    `json:"track_count" bson:"track_count"`
}

// PlaylistName is the name of the playlist that holds a bucket.
func PlaylistName(label string) string {
	return fmt.Sprintf("%s Playlist", label)
}

// PlaylistDescription is set once, when the playlist is created.
func PlaylistDescription(kind ClassificationKind, label string) string {
	if kind == KindLanguage {
		return fmt.Sprintf("Songs in %s, organized by library-sorter", label)
	}
	return fmt.Sprintf("Songs in the %s genre, organized by library-sorter", label)
}
