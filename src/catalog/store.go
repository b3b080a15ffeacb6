package catalog

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS songs (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		title           TEXT NOT NULL,
		artist          TEXT NOT NULL DEFAULT '',
		audio_url       TEXT NOT NULL DEFAULT '',
		cover_image_url TEXT NOT NULL DEFAULT '',
		video_url       TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS playlists (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		name            TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		is_public       BOOLEAN NOT NULL DEFAULT FALSE,
		cover_image_url TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS playlist_songs (
		playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
		song_id     TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		added_at    TIMESTAMP NOT NULL,
		PRIMARY KEY (playlist_id, song_id)
	)`,
	`CREATE TABLE IF NOT EXISTS albums (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		name            TEXT NOT NULL,
		artist          TEXT NOT NULL DEFAULT '',
		description     TEXT NOT NULL DEFAULT '',
		cover_image_url TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS album_songs (
		album_id TEXT NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
		song_id  TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		added_at TIMESTAMP NOT NULL,
		PRIMARY KEY (album_id, song_id)
	)`,
	`CREATE TABLE IF NOT EXISTS liked_songs (
		user_id  TEXT NOT NULL,
		song_id  TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
		liked_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, song_id)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL
	)`,
}

// Store provides access to the catalog tables.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database named by driver ("sqlite3" or "postgres")
// and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s database: %w", driver, err)
	}
	if driver == "sqlite3" {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, err
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("unable to initialize schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

// DB exposes the underlying handle for stores layered on the same database.
func (store *Store) DB() *sqlx.DB {
	return store.db
}
