package recommend

import (
	"strings"
	"time"

	"Musio/model"
)

// Similarity weights. They sum to 1 so the score stays in [0, 1].
const (
	genreWeight         = 0.4
	relatedGenreWeight  = 0.2
	artistWeight        = 0.3
	partialArtistWeight = 0.15
	titleWeight         = 0.2
	recencyWeight       = 0.1

	recencyWindowDays = 30.0
)

// Similarity scores how close candidate is to seed, in [0, 1].
// Both tracks' genres are back-filled from title and artist when missing.
//
//	sim = genre(0.4 exact, 0.2 related) + artist(0.3 exact, 0.15 substring)
//	    + 0.2 * jaccard(title tokens) + 0.1 * recency(candidate)
func Similarity(seed, candidate *model.Track, now time.Time) float64 {
	score := genreScore(
		effectiveGenre(seed.Genre, seed.Title, seed.Artist),
		effectiveGenre(candidate.Genre, candidate.Title, candidate.Artist),
	)
	score += artistScore(seed.Artist, candidate.Artist)
	score += titleSimilarity(seed.Title, candidate.Title) * titleWeight
	score += recency(candidate.CreatedAt, now) * recencyWeight
	return clamp01(score)
}

// genreScore 比较回填后的流派. 两首都是 unknown 也算同流派.
func genreScore(a, b string) float64 {
	if a == b {
		return genreWeight
	}
	if AreRelated(a, b) {
		return relatedGenreWeight
	}
	return 0
}

func artistScore(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return artistWeight
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return partialArtistWeight
	}
	return 0
}

// titleSimilarity is the Jaccard index of the whitespace-separated, lowercased title tokens.
func titleSimilarity(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	common := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			common++
		}
	}
	union := len(ta) + len(tb) - common
	return float64(common) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// recency decays linearly from 1 for a track created now to 0 at 30 days.
func recency(created, now time.Time) float64 {
	if created.IsZero() {
		return 0
	}
	days := now.Sub(created).Hours() / 24
	return clamp01((recencyWindowDays - days) / recencyWindowDays)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
