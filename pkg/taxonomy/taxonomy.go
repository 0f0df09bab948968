package taxonomy

import (
	"sort"
	"strings"
)

const (
	// OtherGenre receives every track no broad genre claims.
	OtherGenre = "Other"
	// DefaultLanguage is the catch-all language label unless configured otherwise.
	DefaultLanguage = "Other Languages"
)

// GenrePriority is the order broad genres claim tracks in. Niche genres come
// first so a track tagged both "bebop" and "pop" ends up in Jazz.
var GenrePriority = []string{
	"Classical",
	"Jazz",
	"Metal",
	"Punk",
	"Hip Hop",
	"R&B",
	"Blues",
	"Reggae",
	"Gospel",
	"Folk",
	"Country",
	"Latin",
	"World",
	"Electronic",
	"Rock",
	"Alternative",
	"Pop",
	"Soundtrack",
	"Holiday",
	"Children's",
}

// Taxonomy is loaded once per process and only read afterwards.
type Taxonomy struct {
	Genres    Genres
	Languages Languages
}

// Genres maps broad genre labels to the raw tags that identify them.
// The zero value has no labels, so everything classifies as Other.
type Genres struct {
	order    []string
	patterns map[string]map[string]struct{}
}

// NewGenres builds the genre table. Labels are matched against
// GenrePriority and OtherGenre ignoring case and take their spelling from
// there, so "hip hop" and "Hip Hop" are one bucket. Labels missing from
// GenrePriority are ordered alphabetically after the known ones. OtherGenre
// is never matched against, whatever tags it lists.
func NewGenres(table map[string][]string) Genres {
	g := Genres{patterns: make(map[string]map[string]struct{}, len(table))}
	spelling := canonicalLabels(table)

	for label, tags := range table {
		label = spelling[normalize(label)]
		if label == "" || label == OtherGenre {
			continue
		}
		set := g.patterns[label]
		if set == nil {
			set = make(map[string]struct{}, len(tags))
			g.patterns[label] = set
		}
		for _, tag := range tags {
			if tag = normalize(tag); tag != "" {
				set[tag] = struct{}{}
			}
		}
	}

	known := make(map[string]struct{}, len(GenrePriority))
	for _, label := range GenrePriority {
		known[label] = struct{}{}
		if _, ok := g.patterns[label]; ok {
			g.order = append(g.order, label)
		}
	}

	extra := make([]string, 0)
	for label := range g.patterns {
		if _, ok := known[label]; !ok {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)
	g.order = append(g.order, extra...)

	return g
}

// canonicalLabels maps each lowercased label of table to the spelling its
// bucket uses. Known labels use their GenrePriority spelling; for other
// labels written several ways the first in sort order wins, which prefers
// capitalized forms.
func canonicalLabels(table map[string][]string) map[string]string {
	spelling := map[string]string{normalize(OtherGenre): OtherGenre}
	for _, label := range GenrePriority {
		spelling[normalize(label)] = label
	}

	extra := make(map[string]string)
	for label := range table {
		label = strings.TrimSpace(label)
		key := normalize(label)
		if key == "" {
			continue
		}
		if _, ok := spelling[key]; ok {
			continue
		}
		if current, ok := extra[key]; !ok || label < current {
			extra[key] = label
		}
	}
	for key, label := range extra {
		spelling[key] = label
	}
	return spelling
}

// Order returns the labels in classification order, OtherGenre excluded.
func (g Genres) Order() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Matches reports whether tag identifies label. Comparison ignores case and
// surrounding whitespace.
func (g Genres) Matches(label, tag string) bool {
	set, ok := g.patterns[label]
	if !ok {
		return false
	}
	_, ok = set[normalize(tag)]
	return ok
}

func (g Genres) Len() int {
	return len(g.order)
}

// Language holds the signals that point at one language.
type Language struct {
	Label    string
	genres   map[string]struct{}
	artists  []string
	keywords []string
}

// HasGenre reports whether tag is one of the language's genre tags.
func (l Language) HasGenre(tag string) bool {
	_, ok := l.genres[normalize(tag)]
	return ok
}

// MatchesArtist reports whether the artist name contains one of the
// language's artist substrings.
func (l Language) MatchesArtist(artist string) bool {
	return containsAny(strings.ToLower(artist), l.artists)
}

// MatchesKeyword reports whether the artist name or the title contains one
// of the language's keywords.
func (l Language) MatchesKeyword(artist, title string) bool {
	return containsAny(strings.ToLower(artist), l.keywords) || containsAny(strings.ToLower(title), l.keywords)
}

// Languages is the ordered language table plus the catch-all label.
type Languages struct {
	entries      []Language
	defaultLabel string
}

// NewLanguages keeps the entries in the given order. That order decides
// which language wins when several could match.
func NewLanguages(table LanguageTable, defaultLabel string) Languages {
	if defaultLabel = strings.TrimSpace(defaultLabel); defaultLabel == "" {
		defaultLabel = strings.TrimSpace(table.Default)
	}
	if defaultLabel == "" {
		defaultLabel = DefaultLanguage
	}

	l := Languages{defaultLabel: defaultLabel}
	for _, entry := range table.Languages {
		label := strings.TrimSpace(entry.Label)
		if label == "" {
			continue
		}
		lang := Language{
			Label:    label,
			genres:   make(map[string]struct{}, len(entry.Genres)),
			artists:  normalizeAll(entry.Artists),
			keywords: normalizeAll(entry.Keywords),
		}
		for _, tag := range normalizeAll(entry.Genres) {
			lang.genres[tag] = struct{}{}
		}
		l.entries = append(l.entries, lang)
	}

	return l
}

func (l Languages) Entries() []Language {
	return l.entries
}

func (l Languages) Default() string {
	return l.defaultLabel
}

// LanguageTable is the serialized form of the language taxonomy.
type LanguageTable struct {
	Default   string          `json:"default"`
	Languages []LanguageEntry `json:"languages"`
}

type LanguageEntry struct {
	Label    string   `json:"label"`
	Genres   []string `json:"genres"`
	Artists  []string `json:"artists"`
	Keywords []string `json:"keywords"`
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeAll lowercases and drops empty patterns; an empty substring would
// match every name.
func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = normalize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
