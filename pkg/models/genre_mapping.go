package models

type GenreMapping struct {
	ID              string `json:"id" bson:"_id"`
	SpecificGenre   string `json:"specific_genre" bson:"specific_genre"`     // e.g., "post-punk", "deep house"
	SimplifiedGenre string `json:"simplified_genre" bson:"simplified_genre"` // broad label, e.g., "Rock", "Electronic"
}

type LanguageMapping struct {
	ID       string   `json:"id" bson:"_id"`
	Label    string   `json:"label" bson:"label"`       // e.g., "Korean"
	Position int      `json:"position" bson:"position"` // scan order of the artist/keyword layer
	Genres   []string `json:"genres" bson:"genres"`
	Artists  []string `json:"artists" bson:"artists"`
	Keywords []string `json:"keywords" bson:"keywords"`
	Default  bool     `json:"default" bson:"default"` // catch-all label, at most one row
}
