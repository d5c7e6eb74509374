// Package seed loads demo catalogs. Songs are matched by title and playlists
// by name, so running the same file twice changes nothing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"

	"Musio/logger"
	"Musio/model"
	"Musio/repository"

	json "github.com/goccy/go-json"
)

// Song is one track entry of a seed file.
type Song struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Genre      string  `json:"genre"`
	URL        string  `json:"url"`
	CoverImage string  `json:"coverImage"`
	Duration   float64 `json:"duration"`
}

// Batch is a playlist together with the songs it should contain.
type Batch struct {
	Playlist struct {
		Name       string `json:"name"`
		CoverImage string `json:"coverImage"`
	} `json:"playlist"`
	Songs []Song `json:"songs"`
}

// Result counts what Apply changed.
type Result struct {
	SongsCreated     int
	SongsReused      int
	PlaylistsCreated int
	TracksLinked     int
}

// TrackStore is the part of the track repository the seeder needs.
type TrackStore interface {
	FindByTitle(ctx context.Context, title string) (*model.Track, error)
	Create(ctx context.Context, track *model.Track) error
}

// PlaylistStore is the part of the playlist repository the seeder needs.
type PlaylistStore interface {
	FindByName(ctx context.Context, name string) (*model.Playlist, error)
	Create(ctx context.Context, playlist *model.Playlist) error
	AddTrack(ctx context.Context, playlistID, trackID string) error
}

// Decode reads a JSON array of batches.
func Decode(r io.Reader) ([]Batch, error) {
	var batches []Batch
	if err := json.NewDecoder(r).Decode(&batches); err != nil {
		return nil, fmt.Errorf("解析种子文件失败: %w", err)
	}
	for i, b := range batches {
		if b.Playlist.Name == "" {
			return nil, fmt.Errorf("batch %d: playlist name is required", i)
		}
		for j, s := range b.Songs {
			if s.Title == "" || s.URL == "" {
				return nil, fmt.Errorf("batch %d song %d: title and url are required", i, j)
			}
		}
	}
	return batches, nil
}

// Apply creates missing songs and playlists and links every song to its playlist.
func Apply(ctx context.Context, tracks TrackStore, playlists PlaylistStore, batches []Batch) (Result, error) {
	var res Result
	for _, b := range batches {
		ids := make([]string, 0, len(b.Songs))
		for _, s := range b.Songs {
			t, created, err := ensureTrack(ctx, tracks, s)
			if err != nil {
				return res, err
			}
			if created {
				res.SongsCreated++
			} else {
				res.SongsReused++
			}
			ids = append(ids, t.ID)
		}

		p, err := playlists.FindByName(ctx, b.Playlist.Name)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			p = model.NewPlaylist(b.Playlist.Name, b.Playlist.CoverImage)
			if err := playlists.Create(ctx, p); err != nil {
				return res, fmt.Errorf("创建歌单 %q 失败: %w", b.Playlist.Name, err)
			}
			res.PlaylistsCreated++
			logger.Info("seed playlist created", logger.String("name", p.Name))
		case err != nil:
			return res, err
		}

		for _, id := range ids {
			err := playlists.AddTrack(ctx, p.ID, id)
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			if err != nil {
				return res, fmt.Errorf("添加歌曲到歌单 %q 失败: %w", p.Name, err)
			}
			res.TracksLinked++
		}
	}
	return res, nil
}

func ensureTrack(ctx context.Context, tracks TrackStore, s Song) (*model.Track, bool, error) {
	existing, err := tracks.FindByTitle(ctx, s.Title)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	t := model.NewTrack(s.Title, s.Artist, s.Genre, s.URL)
	t.Album = s.Album
	t.CoverImage = s.CoverImage
	t.DurationSeconds = s.Duration
	if err := tracks.Create(ctx, t); err != nil {
		return nil, false, fmt.Errorf("创建歌曲 %q 失败: %w", s.Title, err)
	}
	logger.Debug("seed song created", logger.String("title", t.Title))
	return t, true, nil
}
