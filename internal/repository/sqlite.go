package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	// Create tables
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- One photo per calendar day
	CREATE TABLE IF NOT EXISTS photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER NOT NULL,
		day_of_year INTEGER NOT NULL,
		observed_day DATETIME NOT NULL,
		captured_at DATETIME NOT NULL,
		remote_id TEXT NOT NULL,
		image_url TEXT NOT NULL,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		permalink_url TEXT NOT NULL DEFAULT ''
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_photos_day ON photos(year, day_of_year);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_photos_remote_id ON photos(remote_id);

	-- Browser sessions holding the encrypted access token
	CREATE TABLE IF NOT EXISTS web_sessions (
		id TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL,
		last_activity_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		ip_address TEXT,
		user_agent TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_web_sessions_expires ON web_sessions(expires_at);
	`

	_, err := db.Exec(schema)
	return err
}
