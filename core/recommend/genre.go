package recommend

import "strings"

// UnknownGenre is what DeriveGenre returns when no keyword matches.
const UnknownGenre = "unknown"

// relatedGenres lists, per genre, the genres considered close to it.
// Lookups are made in both directions.
var relatedGenres = map[string][]string{
	"pop":        {"pop rock", "indie pop", "electropop", "synthpop"},
	"rock":       {"pop rock", "indie rock", "alternative rock", "hard rock"},
	"electronic": {"edm", "techno", "house", "dubstep", "synthpop", "electropop"},
	"hip hop":    {"rap", "r&b", "urban", "trap"},
	"indie":      {"indie rock", "indie pop", "alternative"},
	"jazz":       {"blues", "soul", "funk"},
	"classical":  {"orchestral", "symphony", "opera"},
	"country":    {"folk", "americana", "bluegrass"},
	"r&b":        {"soul", "hip hop", "urban", "funk"},
}

// genreKeywords is checked in order; the first genre with a matching keyword wins.
var genreKeywords = []struct {
	genre    string
	keywords []string
}{
	{"electronic", []string{"electronic", "edm", "techno", "house", "dubstep", "synth", "digital"}},
	{"pop", []string{"pop", "mainstream", "radio", "hit", "chart"}},
	{"rock", []string{"rock", "guitar", "band", "metal", "punk"}},
	{"hip hop", []string{"hip hop", "rap", "beats", "urban", "trap"}},
	{"indie", []string{"indie", "independent", "underground", "alternative"}},
	{"jazz", []string{"jazz", "swing", "bebop", "smooth"}},
	{"classical", []string{"classical", "symphony", "orchestra", "piano", "violin"}},
	{"country", []string{"country", "folk", "acoustic", "americana"}},
	{"r&b", []string{"r&b", "soul", "rhythm", "blues"}},
}

// DeriveGenre guesses a genre from keywords in the title and artist.
func DeriveGenre(title, artist string) string {
	text := strings.ToLower(title + " " + artist)
	for _, g := range genreKeywords {
		for _, kw := range g.keywords {
			if strings.Contains(text, kw) {
				return g.genre
			}
		}
	}
	return UnknownGenre
}

// AreRelated reports whether two genres appear together in the related-genre table.
func AreRelated(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return contains(relatedGenres[a], b) || contains(relatedGenres[b], a)
}

// effectiveGenre returns the stored genre, or a derived one when the stored genre is blank or unknown.
func effectiveGenre(genre, title, artist string) string {
	g := strings.ToLower(strings.TrimSpace(genre))
	if g == "" || g == UnknownGenre {
		return DeriveGenre(title, artist)
	}
	return g
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
