package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
	"github.com/threesixtyfive/server/internal/models"
)

const photoColumns = `id, year, day_of_year, observed_day, captured_at, remote_id, image_url, thumbnail_url, permalink_url`

// PhotoRepository handles photo persistence for SQLite
type PhotoRepository struct {
	db DBTX
}

// NewPhotoRepository creates a new PhotoRepository
func NewPhotoRepository(db DBTX) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// GetMostRecent returns the last inserted photo
func (r *PhotoRepository) GetMostRecent(ctx context.Context) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos ORDER BY id DESC LIMIT 1`

	photo, err := scanPhoto(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// GetAll returns photos newest day first
func (r *PhotoRepository) GetAll(ctx context.Context, skip, take int) ([]*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos
		ORDER BY year DESC, day_of_year DESC
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, take, skip)
	if err != nil {
		return nil, err
	}
	return collectPhotos(rows)
}

// GetByYear returns the photos of one year in day order
func (r *PhotoRepository) GetByYear(ctx context.Context, year int) ([]*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE year = ? ORDER BY day_of_year ASC`

	rows, err := r.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, err
	}
	return collectPhotos(rows)
}

// GetCount returns the total number of photos
func (r *PhotoRepository) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos").Scan(&count)
	return count, err
}

// Add inserts a photo and returns its assigned id
func (r *PhotoRepository) Add(ctx context.Context, photo *models.Photo) (int64, error) {
	query := `
		INSERT INTO photos (year, day_of_year, observed_day, captured_at, remote_id, image_url, thumbnail_url, permalink_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		photo.Year,
		photo.DayOfYear,
		photo.ObservedDay,
		photo.CapturedAt,
		photo.RemoteID,
		photo.ImageURL,
		photo.ThumbnailURL,
		photo.PermalinkURL,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, models.ErrDuplicatePhoto
		}
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	photo.ID = id
	return id, nil
}

// Truncate deletes every photo
func (r *PhotoRepository) Truncate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM photos")
	return err
}

func scanPhoto(row rowScanner) (*models.Photo, error) {
	var photo models.Photo
	err := row.Scan(
		&photo.ID,
		&photo.Year,
		&photo.DayOfYear,
		&photo.ObservedDay,
		&photo.CapturedAt,
		&photo.RemoteID,
		&photo.ImageURL,
		&photo.ThumbnailURL,
		&photo.PermalinkURL,
	)
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

func collectPhotos(rows *sql.Rows) ([]*models.Photo, error) {
	defer rows.Close()

	photos := []*models.Photo{}
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}
