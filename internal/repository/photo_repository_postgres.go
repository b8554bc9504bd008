package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/threesixtyfive/server/internal/models"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique index conflict
const uniqueViolation = "23505"

// PhotoRepositoryPostgres handles photo persistence for PostgreSQL
type PhotoRepositoryPostgres struct {
	db DBTX
}

// NewPhotoRepositoryPostgres creates a new PhotoRepositoryPostgres
func NewPhotoRepositoryPostgres(db DBTX) *PhotoRepositoryPostgres {
	return &PhotoRepositoryPostgres{db: db}
}

// GetMostRecent returns the last inserted photo
func (r *PhotoRepositoryPostgres) GetMostRecent(ctx context.Context) (*models.Photo, error) {
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
func (r *PhotoRepositoryPostgres) GetAll(ctx context.Context, skip, take int) ([]*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos
		ORDER BY year DESC, day_of_year DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, take, skip)
	if err != nil {
		return nil, err
	}
	return collectPhotos(rows)
}

// GetByYear returns the photos of one year in day order
func (r *PhotoRepositoryPostgres) GetByYear(ctx context.Context, year int) ([]*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE year = $1 ORDER BY day_of_year ASC`

	rows, err := r.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, err
	}
	return collectPhotos(rows)
}

// GetCount returns the total number of photos
func (r *PhotoRepositoryPostgres) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos").Scan(&count)
	return count, err
}

// Add inserts a photo and returns its assigned id
func (r *PhotoRepositoryPostgres) Add(ctx context.Context, photo *models.Photo) (int64, error) {
	query := `
		INSERT INTO photos (year, day_of_year, observed_day, captured_at, remote_id, image_url, thumbnail_url, permalink_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		photo.Year,
		photo.DayOfYear,
		photo.ObservedDay,
		photo.CapturedAt,
		photo.RemoteID,
		photo.ImageURL,
		photo.ThumbnailURL,
		photo.PermalinkURL,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return 0, models.ErrDuplicatePhoto
		}
		return 0, err
	}

	photo.ID = id
	return id, nil
}

// Truncate deletes every photo
func (r *PhotoRepositoryPostgres) Truncate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "TRUNCATE TABLE photos RESTART IDENTITY")
	return err
}
