package catalog

import (
	"context"
	"time"
)

// Like marks a song as liked by userID. Liking twice is a no-op.
func (store *Store) Like(ctx context.Context, userID, songID string) error {
	if _, err := store.SongByID(ctx, songID); err != nil {
		return err
	}
	var exists int
	err := store.db.GetContext(ctx, &exists, store.db.Rebind(
		`SELECT COUNT(*) FROM liked_songs WHERE user_id = ? AND song_id = ?`), userID, songID)
	if err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}
	_, err = store.db.ExecContext(ctx, store.db.Rebind(
		`INSERT INTO liked_songs (user_id, song_id, liked_at) VALUES (?, ?, ?)`),
		userID, songID, time.Now().UTC())
	return err
}

// Unlike removes a like. Unliking a song that is not liked is a no-op.
func (store *Store) Unlike(ctx context.Context, userID, songID string) error {
	_, err := store.db.ExecContext(ctx, store.db.Rebind(
		`DELETE FROM liked_songs WHERE user_id = ? AND song_id = ?`), userID, songID)
	return err
}

// LikedSongs lists a user's liked songs, most recently liked first.
func (store *Store) LikedSongs(ctx context.Context, userID string) ([]Song, error) {
	songs := []Song{}
	err := store.db.SelectContext(ctx, &songs, store.db.Rebind(
		`SELECT s.* FROM liked_songs l JOIN songs s ON s.id = l.song_id
		 WHERE l.user_id = ? ORDER BY l.liked_at DESC, s.id`), userID)
	return songs, err
}

// LikedSongIDs returns the set of song IDs liked by userID.
func (store *Store) LikedSongIDs(ctx context.Context, userID string) (map[string]bool, error) {
	ids := []string{}
	err := store.db.SelectContext(ctx, &ids, store.db.Rebind(
		`SELECT song_id FROM liked_songs WHERE user_id = ?`), userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
