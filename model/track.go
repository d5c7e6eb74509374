package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// UnknownArtist is used when a track has no artist for grouping and display.
	UnknownArtist = "Unknown"
	// UnknownGenre is the stored default genre.
	UnknownGenre = "Unknown"
	// DefaultCoverImage is served when a track has no uploaded cover.
	DefaultCoverImage = "/default-song.png"
)

// Track represents an audio track in the catalog. ID is assigned once and never changes.
type Track struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	Title           string    `json:"title" gorm:"size:255;not null;index"`
	Artist          string    `json:"artist" gorm:"size:255;not null;index"`
	Album           string    `json:"album,omitempty" gorm:"size:255"`
	Genre           string    `json:"genre" gorm:"size:100;default:'Unknown';index"`
	URL             string    `json:"url" gorm:"size:767;not null"`
	CoverImage      string    `json:"coverImage,omitempty" gorm:"size:767"`
	DurationSeconds float64   `json:"duration,omitempty"`
	PlayCount       int64     `json:"playCount" gorm:"default:0"`
	Likes           int64     `json:"likes" gorm:"default:0"`
	CreatedAt       time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Track) TableName() string {
	return "tracks"
}

// NewTrack builds a track with a fresh id and the catalog defaults applied.
func NewTrack(title, artist, genre, url string) *Track {
	t := &Track{
		ID:     uuid.New().String(),
		Title:  strings.TrimSpace(title),
		Artist: strings.TrimSpace(artist),
		Genre:  strings.TrimSpace(genre),
		URL:    url,
	}
	if t.Genre == "" {
		t.Genre = UnknownGenre
	}
	return t
}

// ArtistOrDefault returns the artist, or UnknownArtist when it is blank.
func (t *Track) ArtistOrDefault() string {
	if a := strings.TrimSpace(t.Artist); a != "" {
		return a
	}
	return UnknownArtist
}

// GenreOrDefault returns the genre, or UnknownGenre when it is blank.
func (t *Track) GenreOrDefault() string {
	if g := strings.TrimSpace(t.Genre); g != "" {
		return g
	}
	return UnknownGenre
}

// CoverOrDefault returns the cover image URL or the built-in placeholder.
func (t *Track) CoverOrDefault() string {
	if t.CoverImage != "" {
		return t.CoverImage
	}
	return DefaultCoverImage
}
