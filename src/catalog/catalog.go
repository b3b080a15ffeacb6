// Package catalog implements the song, playlist, album and like stores on
// top of a SQL database.
package catalog

import (
	"errors"
	"time"

	"heymelody/src/library"
)

var (
	// ErrNotFound is returned when an entity ID cannot be resolved.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when an entity is owned by another user.
	ErrForbidden = errors.New("forbidden")
)

// A Song is a catalog entry. The media locators point into the media store
// or any other publicly reachable host.
type Song struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Title         string    `db:"title" json:"title"`
	Artist        string    `db:"artist" json:"artist"`
	AudioURL      string    `db:"audio_url" json:"audio_url"`
	CoverImageURL string    `db:"cover_image_url" json:"cover_image_url,omitempty"`
	VideoURL      string    `db:"video_url" json:"video_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Track converts the catalog entry into its playable form.
func (s Song) Track() library.Track {
	return library.Track{
		ID:       s.ID,
		Title:    s.Title,
		Artist:   s.Artist,
		AudioURL: s.AudioURL,
		CoverURL: s.CoverImageURL,
		VideoURL: s.VideoURL,
	}
}

// Tracks converts a batch of songs.
func Tracks(songs []Song) []library.Track {
	tracks := make([]library.Track, len(songs))
	for i, s := range songs {
		tracks[i] = s.Track()
	}
	return tracks
}

type Playlist struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description,omitempty"`
	IsPublic      bool      `db:"is_public" json:"is_public"`
	CoverImageURL string    `db:"cover_image_url" json:"cover_image_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type Album struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Name          string    `db:"name" json:"name"`
	Artist        string    `db:"artist" json:"artist,omitempty"`
	Description   string    `db:"description" json:"description,omitempty"`
	CoverImageURL string    `db:"cover_image_url" json:"cover_image_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// An Entry is a song's membership in a playlist or album, ordered by
// position.
type Entry struct {
	Song     Song      `json:"song"`
	Position int       `json:"position"`
	AddedAt  time.Time `json:"added_at"`
}
