package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPlaylistCover is used when a playlist is created without a cover upload.
const DefaultPlaylistCover = "/playlist.png"

// Playlist 表示一个歌单. Tracks are loaded in position order and are not a GORM association.
type Playlist struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Name       string    `json:"name" gorm:"size:255;not null;index"`
	CoverImage string    `json:"coverImage" gorm:"size:767;not null;default:'/playlist.png'"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	Tracks []Track `json:"songs" gorm:"-"`
}

// TableName 指定表名
func (Playlist) TableName() string {
	return "playlists"
}

// NewPlaylist creates a playlist with a fresh id.
func NewPlaylist(name, cover string) *Playlist {
	if cover == "" {
		cover = DefaultPlaylistCover
	}
	return &Playlist{
		ID:         uuid.New().String(),
		Name:       name,
		CoverImage: cover,
	}
}

// PlaylistTrack 表示歌单中的一首歌曲
type PlaylistTrack struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PlaylistID string    `json:"playlistId" gorm:"size:36;not null;uniqueIndex:uq_playlist_track"`
	TrackID    string    `json:"trackId" gorm:"size:36;not null;uniqueIndex:uq_playlist_track;index"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName 指定表名
func (PlaylistTrack) TableName() string {
	return "playlist_tracks"
}
