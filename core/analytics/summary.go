// Package analytics computes listening statistics over a catalog snapshot.
package analytics

import (
	"sort"
	"strings"

	"Musio/model"
)

// TopN is how many entries the ranked lists hold.
const TopN = 5

// NameCount is a label with the number of tracks carrying it.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary is the analytics page payload.
type Summary struct {
	TotalSongs        int           `json:"totalSongs"`
	TotalPlaylists    int           `json:"totalPlaylists"`
	TotalArtists      int           `json:"totalArtists"`
	TotalPlaytime     float64       `json:"totalPlaytime"`
	TopSongs          []model.Track `json:"topSongs"`
	TopArtists        []NameCount   `json:"topArtists"`
	RecentlyAdded     []model.Track `json:"recentlyAdded"`
	GenreDistribution []NameCount   `json:"genreDistribution"`
}

// Summarize builds a Summary. Ties are broken by name (or by id for tracks)
// so the result does not depend on catalog order.
func Summarize(tracks []model.Track, playlistCount int) *Summary {
	s := &Summary{
		TotalSongs:     len(tracks),
		TotalPlaylists: playlistCount,
	}

	artists := make(map[string]int)
	genres := make(map[string]int)
	distinct := make(map[string]struct{})
	for i := range tracks {
		t := &tracks[i]
		if t.DurationSeconds > 0 {
			s.TotalPlaytime += t.DurationSeconds
		}
		distinct[strings.TrimSpace(t.Artist)] = struct{}{}
		artists[t.ArtistOrDefault()]++
		genres[t.GenreOrDefault()]++
	}
	s.TotalArtists = len(distinct)

	byPlays := append([]model.Track(nil), tracks...)
	sort.SliceStable(byPlays, func(i, j int) bool {
		if byPlays[i].PlayCount != byPlays[j].PlayCount {
			return byPlays[i].PlayCount > byPlays[j].PlayCount
		}
		return byPlays[i].ID < byPlays[j].ID
	})
	s.TopSongs = head(byPlays, TopN)

	byDate := append([]model.Track(nil), tracks...)
	sort.SliceStable(byDate, func(i, j int) bool {
		if !byDate[i].CreatedAt.Equal(byDate[j].CreatedAt) {
			return byDate[i].CreatedAt.After(byDate[j].CreatedAt)
		}
		return byDate[i].ID < byDate[j].ID
	})
	s.RecentlyAdded = head(byDate, TopN)

	s.TopArtists = ranked(artists)
	if len(s.TopArtists) > TopN {
		s.TopArtists = s.TopArtists[:TopN]
	}
	s.GenreDistribution = ranked(genres)
	return s
}

func ranked(counts map[string]int) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NameCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func head(tracks []model.Track, n int) []model.Track {
	if len(tracks) > n {
		tracks = tracks[:n]
	}
	return append([]model.Track{}, tracks...)
}
