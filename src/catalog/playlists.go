package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

func (store *Store) CreatePlaylist(ctx context.Context, pl *Playlist) error {
	if pl.ID == "" {
		pl.ID = uuid.NewString()
	}
	if pl.CreatedAt.IsZero() {
		pl.CreatedAt = time.Now().UTC()
	}
	_, err := store.db.ExecContext(ctx, store.db.Rebind(
		`INSERT INTO playlists (id, user_id, name, description, is_public, cover_image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		pl.ID, pl.UserID, pl.Name, pl.Description, pl.IsPublic, pl.CoverImageURL, pl.CreatedAt)
	return err
}

// Playlists lists the playlists visible to userID, being their own plus any
// public ones.
func (store *Store) Playlists(ctx context.Context, userID string) ([]Playlist, error) {
	playlists := []Playlist{}
	err := store.db.SelectContext(ctx, &playlists, store.db.Rebind(
		`SELECT * FROM playlists WHERE user_id = ? OR is_public ORDER BY created_at DESC, id`), userID)
	return playlists, err
}

func (store *Store) PlaylistByID(ctx context.Context, id string) (Playlist, error) {
	var pl Playlist
	err := store.db.GetContext(ctx, &pl, store.db.Rebind(
		`SELECT * FROM playlists WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Playlist{}, ErrNotFound
	}
	return pl, err
}

func (store *Store) UpdatePlaylist(ctx context.Context, userID string, pl Playlist) error {
	if err := store.ownsPlaylist(ctx, userID, pl.ID); err != nil {
		return err
	}
	_, err := store.db.ExecContext(ctx, store.db.Rebind(
		`UPDATE playlists SET name = ?, description = ?, is_public = ?, cover_image_url = ? WHERE id = ?`),
		pl.Name, pl.Description, pl.IsPublic, pl.CoverImageURL, pl.ID)
	return err
}

func (store *Store) DeletePlaylist(ctx context.Context, userID, id string) error {
	if err := store.ownsPlaylist(ctx, userID, id); err != nil {
		return err
	}
	if _, err := store.db.ExecContext(ctx, store.db.Rebind(
		`DELETE FROM playlist_songs WHERE playlist_id = ?`), id); err != nil {
		return err
	}
	_, err := store.db.ExecContext(ctx, store.db.Rebind(
		`DELETE FROM playlists WHERE id = ?`), id)
	return err
}

// AddToPlaylist appends a song to the end of a playlist. Adding a song that
// is already present is a no-op.
func (store *Store) AddToPlaylist(ctx context.Context, userID, playlistID, songID string) error {
	if err := store.ownsPlaylist(ctx, userID, playlistID); err != nil {
		return err
	}
	if _, err := store.SongByID(ctx, songID); err != nil {
		return err
	}
	return store.addEntry(ctx, "playlist_songs", "playlist_id", playlistID, songID)
}

// RemoveFromPlaylist removes a song and compacts the positions of the songs
// after it so they stay contiguous.
func (store *Store) RemoveFromPlaylist(ctx context.Context, userID, playlistID, songID string) error {
	if err := store.ownsPlaylist(ctx, userID, playlistID); err != nil {
		return err
	}
	return store.removeEntry(ctx, "playlist_songs", "playlist_id", playlistID, songID)
}

// PlaylistSongs lists a playlist's songs in playlist order.
func (store *Store) PlaylistSongs(ctx context.Context, playlistID string) ([]Entry, error) {
	return store.entries(ctx, "playlist_songs", "playlist_id", playlistID)
}

func (store *Store) ownsPlaylist(ctx context.Context, userID, id string) error {
	pl, err := store.PlaylistByID(ctx, id)
	if err != nil {
		return err
	}
	if pl.UserID != userID {
		return ErrForbidden
	}
	return nil
}

func (store *Store) addEntry(ctx context.Context, table, fk, parentID, songID string) error {
	tx, err := store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.GetContext(ctx, &exists, tx.Rebind(
		`SELECT COUNT(*) FROM `+table+` WHERE `+fk+` = ? AND song_id = ?`), parentID, songID)
	if err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}
	var max sql.NullInt64
	err = tx.GetContext(ctx, &max, tx.Rebind(
		`SELECT MAX(position) FROM `+table+` WHERE `+fk+` = ?`), parentID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO `+table+` (`+fk+`, song_id, position, added_at) VALUES (?, ?, ?, ?)`),
		parentID, songID, max.Int64+1, time.Now().UTC())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (store *Store) removeEntry(ctx context.Context, table, fk, parentID, songID string) error {
	tx, err := store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var position int
	err = tx.GetContext(ctx, &position, tx.Rebind(
		`SELECT position FROM `+table+` WHERE `+fk+` = ? AND song_id = ?`), parentID, songID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(
		`DELETE FROM `+table+` WHERE `+fk+` = ? AND song_id = ?`), parentID, songID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(
		`UPDATE `+table+` SET position = position - 1 WHERE `+fk+` = ? AND position > ?`),
		parentID, position)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (store *Store) entries(ctx context.Context, table, fk, parentID string) ([]Entry, error) {
	rows, err := store.db.QueryxContext(ctx, store.db.Rebind(
		`SELECT s.*, m.position, m.added_at AS member_added_at
		 FROM `+table+` m JOIN songs s ON s.id = m.song_id
		 WHERE m.`+fk+` = ? ORDER BY m.position`), parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var row struct {
			Song
			Position      int       `db:"position"`
			MemberAddedAt time.Time `db:"member_added_at"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Song: row.Song, Position: row.Position, AddedAt: row.MemberAddedAt})
	}
	return entries, rows.Err()
}
