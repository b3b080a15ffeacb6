package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"heymelody/src/library"
)

// CreateSong inserts a song. A zero ID and CreatedAt are filled in.
func (store *Store) CreateSong(ctx context.Context, song *Song) error {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	if song.CreatedAt.IsZero() {
		song.CreatedAt = time.Now().UTC()
	}
	_, err := store.db.ExecContext(ctx, store.db.Rebind(
		`INSERT INTO songs (id, user_id, title, artist, audio_url, cover_image_url, video_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		song.ID, song.UserID, song.Title, song.Artist, song.AudioURL,
		song.CoverImageURL, song.VideoURL, song.CreatedAt)
	return err
}

// Songs lists catalog entries, newest first. A limit of 0 lists everything.
func (store *Store) Songs(ctx context.Context, limit int) ([]Song, error) {
	query := `SELECT * FROM songs ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	songs := []Song{}
	if err := store.db.SelectContext(ctx, &songs, store.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return songs, nil
}

func (store *Store) SongByID(ctx context.Context, id string) (Song, error) {
	var song Song
	err := store.db.GetContext(ctx, &song, store.db.Rebind(
		`SELECT * FROM songs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Song{}, ErrNotFound
	}
	return song, err
}

// DeleteSong removes a song owned by userID along with its playlist, album
// and like memberships.
func (store *Store) DeleteSong(ctx context.Context, userID, id string) error {
	song, err := store.SongByID(ctx, id)
	if err != nil {
		return err
	}
	if song.UserID != userID {
		return ErrForbidden
	}
	for _, table := range []string{"playlist_songs", "album_songs", "liked_songs"} {
		if _, err := store.db.ExecContext(ctx, store.db.Rebind(
			`DELETE FROM `+table+` WHERE song_id = ?`), id); err != nil {
			return err
		}
	}
	_, err = store.db.ExecContext(ctx, store.db.Rebind(
		`DELETE FROM songs WHERE id = ?`), id)
	return err
}

// Tracks implements the library.Library interface.
func (store *Store) Tracks(ctx context.Context) ([]library.Track, error) {
	songs, err := store.Songs(ctx, 0)
	if err != nil {
		return nil, err
	}
	return Tracks(songs), nil
}

// TrackInfo implements the library.Library interface.
func (store *Store) TrackInfo(ctx context.Context, ids ...string) ([]library.Track, error) {
	tracks := make([]library.Track, 0, len(ids))
	for _, id := range ids {
		song, err := store.SongByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		tracks = append(tracks, song.Track())
	}
	return tracks, nil
}

var _ library.Library = &Store{}

// SearchSongs matches the catalog against a keyed query string.
func (store *Store) SearchSongs(ctx context.Context, q string) ([]Song, error) {
	query, err := CompileQuery(q)
	if err != nil {
		return nil, err
	}
	songs, err := store.Songs(ctx, 0)
	if err != nil {
		return nil, err
	}
	return lo.Filter(songs, func(song Song, _ int) bool {
		return query.Matches(song.Track())
	}), nil
}
