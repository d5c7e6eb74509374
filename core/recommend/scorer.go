package recommend

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"Musio/model"

	"github.com/cespare/xxhash/v2"
)

// Mode selects how candidates are chosen.
type Mode string

const (
	ModeTrending Mode = "trending"
	ModeGenre    Mode = "genre"
	ModeSimilar  Mode = "similar"
	ModeDefault  Mode = "default"
)

const (
	// DefaultLimit is used when a request carries no usable limit.
	DefaultLimit = 10
	// MinScore is the exclusive lower bound a candidate must beat to be returned.
	MinScore = 0.2
)

// Reasons attached to candidates.
const (
	ReasonTrending      = "Trending Now"
	ReasonDiscover      = "Discover New Music"
	ReasonHighlySimilar = "Highly Similar"
	ReasonSimilarStyle  = "Similar Style"
	ReasonMightLike     = "You Might Like"
)

// ErrSeedNotFound is returned when a similar-mode seed is not in the catalog.
var ErrSeedNotFound = errors.New("seed track not found")

// Request describes one recommendation query.
type Request struct {
	Mode   Mode
	SeedID string
	Genre  string
	Limit  int
}

// Resolve returns the mode that will actually be served. A genre request
// without a genre and a similar request without a seed fall back the same
// way: to similar when there is a seed, otherwise to default.
func (r Request) Resolve() Mode {
	switch r.Mode {
	case ModeTrending:
		return ModeTrending
	case ModeGenre:
		if strings.TrimSpace(r.Genre) != "" {
			return ModeGenre
		}
	}
	if r.SeedID != "" {
		return ModeSimilar
	}
	return ModeDefault
}

// Candidate is a scored track.
type Candidate struct {
	model.Track
	Score  float64 `json:"recommendationScore"`
	Reason string  `json:"reason"`
}

// Response is the ranked result of a Request.
type Response struct {
	// Requested echoes the asked-for mode, "similar" when none was given.
	Requested  string      `json:"type"`
	Mode       Mode        `json:"resolvedType"`
	SeedID     string      `json:"basedOnSong,omitempty"`
	Candidates []Candidate `json:"recommendations"`
	// TotalFound counts candidates that passed the score filter, before the limit.
	TotalFound int `json:"totalFound"`
}

// JitterFunc returns a value in [0, 1) used as the variable part of
// trending, genre and default scores.
type JitterFunc func(mode Mode, trackID string) float64

// HashJitter derives the jitter from an xxhash of the mode and track id,
// so the same catalog always ranks the same way.
func HashJitter(mode Mode, trackID string) float64 {
	h := xxhash.Sum64String(string(mode) + ":" + trackID)
	return float64(h>>11) / (1 << 53)
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithJitter replaces HashJitter, e.g. with a math/rand source.
func WithJitter(fn JitterFunc) Option {
	return func(s *Scorer) {
		if fn != nil {
			s.jitter = fn
		}
	}
}

// Scorer ranks catalog snapshots. It does no I/O and is safe for concurrent use
// as long as the jitter function is.
type Scorer struct {
	jitter JitterFunc
}

// NewScorer creates a Scorer.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{jitter: HashJitter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend ranks catalog for req as of now. An empty catalog yields an empty
// response; only a missing seed is an error.
func (s *Scorer) Recommend(catalog []model.Track, req Request, now time.Time) (*Response, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	mode := req.Resolve()

	var candidates []Candidate
	switch mode {
	case ModeTrending:
		candidates = s.jittered(mode, newest(catalog, limit*2), 0.7, 0.3, ReasonTrending)
	case ModeGenre:
		matches := matchGenre(newest(catalog, 0), req.Genre)
		if len(matches) > limit {
			matches = matches[:limit]
		}
		candidates = s.jittered(mode, matches, 0.6, 0.4, genreReason(req.Genre))
	case ModeSimilar:
		var err error
		if candidates, err = similarTo(catalog, req.SeedID, now); err != nil {
			return nil, err
		}
	default:
		candidates = s.jittered(mode, newest(catalog, limit), 0.5, 0.5, ReasonDiscover)
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if c.Score > MinScore {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })

	resp := &Response{Requested: string(req.Mode), Mode: mode, TotalFound: len(kept), Candidates: []Candidate{}}
	if resp.Requested == "" {
		resp.Requested = string(ModeSimilar)
	}
	if mode == ModeSimilar {
		resp.SeedID = req.SeedID
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	resp.Candidates = append(resp.Candidates, kept...)
	return resp, nil
}

func (s *Scorer) jittered(mode Mode, tracks []model.Track, base, span float64, reason string) []Candidate {
	out := make([]Candidate, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, Candidate{
			Track:  t,
			Score:  base + span*s.jitter(mode, t.ID),
			Reason: reason,
		})
	}
	return out
}

func similarTo(catalog []model.Track, seedID string, now time.Time) ([]Candidate, error) {
	var seed *model.Track
	for i := range catalog {
		if catalog[i].ID == seedID {
			seed = &catalog[i]
			break
		}
	}
	if seed == nil {
		return nil, ErrSeedNotFound
	}

	out := make([]Candidate, 0, len(catalog))
	for i := range catalog {
		t := &catalog[i]
		if t.ID == seedID {
			continue
		}
		score := Similarity(seed, t, now)
		out = append(out, Candidate{Track: *t, Score: score, Reason: similarityReason(score)})
	}
	return out, nil
}

func similarityReason(score float64) string {
	switch {
	case score > 0.5:
		return ReasonHighlySimilar
	case score > 0.3:
		return ReasonSimilarStyle
	default:
		return ReasonMightLike
	}
}

// newest returns up to limit tracks, most recently created first. limit <= 0 means all.
func newest(catalog []model.Track, limit int) []model.Track {
	sorted := append([]model.Track(nil), catalog...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// matchGenre keeps tracks whose genre, title or artist contains genre, ignoring case.
func matchGenre(tracks []model.Track, genre string) []model.Track {
	q := strings.ToLower(strings.TrimSpace(genre))
	var out []model.Track
	for _, t := range tracks {
		if strings.Contains(strings.ToLower(t.Genre), q) ||
			strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Artist), q) {
			out = append(out, t)
		}
	}
	return out
}

func genreReason(genre string) string {
	g := strings.TrimSpace(genre)
	r, size := utf8.DecodeRuneInString(g)
	return string(unicode.ToUpper(r)) + g[size:] + " Music"
}
