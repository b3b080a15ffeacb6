package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

func (store *Store) CreateAlbum(ctx context.Context, album *Album) error {
	if album.ID == "" {
		album.ID = uuid.NewString()
	}
	if album.CreatedAt.IsZero() {
		album.CreatedAt = time.Now().UTC()
	}
	_, err := store.db.ExecContext(ctx, store.db.Rebind(
		`INSERT INTO albums (id, user_id, name, artist, description, cover_image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		album.ID, album.UserID, album.Name, album.Artist, album.Description,
		album.CoverImageURL, album.CreatedAt)
	return err
}

func (store *Store) Albums(ctx context.Context) ([]Album, error) {
	albums := []Album{}
	err := store.db.SelectContext(ctx, &albums,
		`SELECT * FROM albums ORDER BY created_at DESC, id`)
	return albums, err
}

func (store *Store) AlbumByID(ctx context.Context, id string) (Album, error) {
	var album Album
	err := store.db.GetContext(ctx, &album, store.db.Rebind(
		`SELECT * FROM albums WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Album{}, ErrNotFound
	}
	return album, err
}

func (store *Store) DeleteAlbum(ctx context.Context, userID, id string) error {
	if err := store.ownsAlbum(ctx, userID, id); err != nil {
		return err
	}
	if _, err := store.db.ExecContext(ctx, store.db.Rebind(
		`DELETE FROM album_songs WHERE album_id = ?`), id); err != nil {
		return err
	}
	_, err := store.db.ExecContext(ctx, store.db.Rebind(
		`DELETE FROM albums WHERE id = ?`), id)
	return err
}

// AddToAlbum appends a song to the end of an album. Adding a song that is
// already present is a no-op.
func (store *Store) AddToAlbum(ctx context.Context, userID, albumID, songID string) error {
	if err := store.ownsAlbum(ctx, userID, albumID); err != nil {
		return err
	}
	if _, err := store.SongByID(ctx, songID); err != nil {
		return err
	}
	return store.addEntry(ctx, "album_songs", "album_id", albumID, songID)
}

func (store *Store) RemoveFromAlbum(ctx context.Context, userID, albumID, songID string) error {
	if err := store.ownsAlbum(ctx, userID, albumID); err != nil {
		return err
	}
	return store.removeEntry(ctx, "album_songs", "album_id", albumID, songID)
}

// AlbumSongs lists an album's songs in album order.
func (store *Store) AlbumSongs(ctx context.Context, albumID string) ([]Entry, error) {
	return store.entries(ctx, "album_songs", "album_id", albumID)
}

func (store *Store) ownsAlbum(ctx context.Context, userID, id string) error {
	album, err := store.AlbumByID(ctx, id)
	if err != nil {
		return err
	}
	if album.UserID != userID {
		return ErrForbidden
	}
	return nil
}
