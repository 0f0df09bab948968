package models

type ClassificationKind string

const (
	KindGenre    ClassificationKind = "genre"
	KindLanguage ClassificationKind = "language"
	KindAll      ClassificationKind = "all"
)

// Action is what a run does with the bucket playlists.
type Action string

const (
	ActionSort    Action = "sort"
	ActionList    Action = "list"
	ActionCleanup Action = "cleanup"
)

type RunReport struct {
	ID              string             `json:"id" bson:"_id"`
	Action          Action             `json:"action" bson:"action"`
	Kind            ClassificationKind `json:"kind" bson:"kind"`
	DryRun          bool               `json:"dry_run" bson:"dry_run"`
	StartedAt       int64              `json:"started_at" bson:"started_at"`
	FinishedAt      int64              `json:"finished_at" bson:"finished_at"`
	TracksFetched   int                `json:"tracks_fetched" bson:"tracks_fetched"`
	TracksSkipped   int                `json:"tracks_skipped" bson:"tracks_skipped"`
	UniqueGenres    int                `json:"unique_genres" bson:"unique_genres"`
	Classified      map[string]int     `json:"classified" bson:"classified"` // "genre/Rock" -> count
	Buckets         []BucketReport     `json:"buckets" bson:"buckets"`
	PartialFailures []string           `json:"partial_failures" bson:"partial_failures"`
	UnmatchedGenres map[string]int     `json:"unmatched_genres,omitempty" bson:"unmatched_genres,omitempty"`
	Reassigned      int                `json:"reassigned" bson:"reassigned"` // tracks whose bucket changed since the last saved classification
	Removed         []string           `json:"removed,omitempty" bson:"removed,omitempty"`
	Error           string             `json:"error,omitempty" bson:"error,omitempty"`
}

type BucketReport struct {
	Kind         ClassificationKind `json:"kind" bson:"kind"`
	Label        string             `json:"label" bson:"label"`
	PlaylistID   string             `json:"playlist_id" bson:"playlist_id"`
	PlaylistName string             `json:"playlist_name" bson:"playlist_name"`
	Created      bool               `json:"created" bson:"created"`
	Target       int                `json:"target" bson:"target"`     // tracks classified into the bucket
	Existing     int                `json:"existing" bson:"existing"` // tracks already in the playlist
	Delta        int                `json:"delta" bson:"delta"`       // classified tracks missing from the playlist
	Uploaded     int                `json:"uploaded" bson:"uploaded"`
	Failed       bool               `json:"failed" bson:"failed"`
	Error        string             `json:"error,omitempty" bson:"error,omitempty"`
}

