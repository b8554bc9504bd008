package repository

import (
	"context"

	"github.com/threesixtyfive/server/internal/models"
)

// PhotoRepo defines the interface for daily photo persistence operations
type PhotoRepo interface {
	// GetMostRecent returns the last inserted photo, or nil when none exist.
	// Order is by insertion, not by observed day.
	GetMostRecent(ctx context.Context) (*models.Photo, error)
	GetAll(ctx context.Context, skip, take int) ([]*models.Photo, error)
	GetByYear(ctx context.Context, year int) ([]*models.Photo, error)
	GetCount(ctx context.Context) (int, error)
	Add(ctx context.Context, photo *models.Photo) (int64, error)
	Truncate(ctx context.Context) error
}

// WebSessionRepo defines the interface for browser session persistence
type WebSessionRepo interface {
	GetByID(ctx context.Context, id string) (*models.WebSession, error)
	Add(ctx context.Context, session *models.WebSession) error
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CleanupExpired(ctx context.Context) (int, error)
}
