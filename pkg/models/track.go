package models

// Track is a saved track as read from the catalog. URI is the identity.
type Track struct {
	ID       string   `json:"id" bson:"id"`
	Name     string   `json:"name" bson:"name"`
	Artist   string   `json:"artist" bson:"artist"`       // primary artist only
	ArtistID string   `json:"artist_id" bson:"artist_id"` // used to look up genres
	Album    string   `json:"album" bson:"album"`
	Genres   []string `json:"genres" bson:"genres"` // raw artist genre tags, in catalog order
	URI      string   `json:"uri" bson:"uri"`
}

// Buckets maps a classification label to the URIs assigned to it.
type Buckets map[string][]string

// Counts returns the number of URIs per label.
func (b Buckets) Counts() map[string]int {
	counts := make(map[string]int, len(b))
	for label, uris := range b {
		counts[label] = len(uris)
	}
	return counts
}
