package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS photos (
		id BIGSERIAL PRIMARY KEY,
		year INTEGER NOT NULL,
		day_of_year INTEGER NOT NULL,
		observed_day TIMESTAMPTZ NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL,
		remote_id TEXT NOT NULL,
		image_url TEXT NOT NULL,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		permalink_url TEXT NOT NULL DEFAULT ''
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_photos_day ON photos(year, day_of_year);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_photos_remote_id ON photos(remote_id);

	CREATE TABLE IF NOT EXISTS web_sessions (
		id TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		last_activity_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		ip_address TEXT,
		user_agent TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_web_sessions_expires ON web_sessions(expires_at);
	`

	_, err := db.Exec(schema)
	return err
}
