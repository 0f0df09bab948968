package taxonomy

// DefaultGenreTable is used when no genre taxonomy could be loaded.
func DefaultGenreTable() map[string][]string {
	return map[string][]string{
		"Rock":       {"rock", "alternative rock", "indie rock", "hard rock"},
		"Pop":        {"pop", "dance pop", "electropop", "synthpop"},
		"Hip Hop":    {"hip hop", "rap", "trap"},
		"Electronic": {"electronic", "edm", "house", "techno"},
		"R&B":        {"r&b", "soul", "funk"},
		"Jazz":       {"jazz", "smooth jazz"},
		"Classical":  {"classical", "baroque"},
		"Metal":      {"metal", "heavy metal"},
	}
}

// DefaultLanguageTable is used when no language taxonomy could be loaded.
func DefaultLanguageTable() LanguageTable {
	return LanguageTable{
		Default: DefaultLanguage,
		Languages: []LanguageEntry{
			{
				Label:    "Korean",
				Genres:   []string{"k-pop", "k-rap", "k-rock", "k-ballad", "korean ost"},
				Artists:  []string{"korean", "bts", "blackpink", "twice", "stray kids", "seventeen", "aespa", "red velvet"},
				Keywords: []string{"k-", "(k)", "한국", "hangul", "seoul"},
			},
			{
				Label:    "Japanese",
				Genres:   []string{"j-pop", "j-rock", "j-rap", "j-r&b", "japanese vgm", "anime"},
				Artists:  []string{"japanese", "babymetal", "one ok rock", "utada", "radwimps", "king gnu", "yoasobi"},
				Keywords: []string{"j-", "(j)", "日本", "tokyo", "osaka", "jpop", "jrock"},
			},
			{
				Label:    "Spanish",
				Genres:   []string{"reggaeton", "latin pop", "latin hip hop", "spanish-language reggae", "bachata", "salsa", "flamenco"},
				Artists:  []string{"latino", "spanish", "español", "bad bunny", "j balvin", "rosalía", "shakira", "karol g"},
				Keywords: []string{"latin", "latino", "española", "español", "madrid", "mexico"},
			},
			{
				Label:    "Hindi",
				Genres:   []string{"bollywood", "hindi pop", "hindi hip hop", "desi pop", "filmi", "bhangra"},
				Artists:  []string{"hindi", "bollywood", "indian", "desi", "arijit singh", "shreya ghoshal", "badshah"},
				Keywords: []string{"hindi", "indian", "desi", "bollywood", "mumbai", "bhangra"},
			},
			{
				Label:    "Chinese",
				Genres:   []string{"c-pop", "mandopop", "cantopop", "chinese r&b", "chinese hip hop"},
				Artists:  []string{"mandarin", "chinese", "cantopop", "jay chou", "jolin tsai", "eason chan"},
				Keywords: []string{"c-pop", "mandarin", "cantonese", "中文", "beijing", "taiwan", "hong kong"},
			},
			{
				Label:    "French",
				Genres:   []string{"french pop", "french jazz", "variété française", "french hip hop"},
				Artists:  []string{"french", "français", "stromae", "indila", "zaz", "aya nakamura", "edith piaf"},
				Keywords: []string{"français", "francais", "france", "paris", "chanson", "québec"},
			},
			{
				Label:    "Tamil",
				Genres:   []string{"kollywood", "tamil pop", "tamil hip hop", "tamil film music"},
				Artists:  []string{"tamil", "anirudh ravichander", "sid sriram", "ilayaraja", "harris jayaraj"},
				Keywords: []string{"tamil", "kollywood", "chennai", "madras"},
			},
			{
				Label:    "English",
				Genres:   []string{"uk garage", "uk drill", "britpop", "uk hip hop", "americana"},
				Artists:  []string{"english", "american", "british", "australian", "canadian"},
				Keywords: []string{"london", "los angeles", "new york"},
			},
		},
	}
}
