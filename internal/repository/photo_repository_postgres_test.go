package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threesixtyfive/server/internal/models"
)

func setupMockPostgres(t *testing.T) (*PhotoRepositoryPostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPhotoRepositoryPostgres(db), mock
}

var photoRowColumns = []string{"id", "year", "day_of_year", "observed_day", "captured_at", "remote_id", "image_url", "thumbnail_url", "permalink_url"}

func TestPhotoRepositoryPostgres_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("returns generated id", func(t *testing.T) {
		repo, mock := setupMockPostgres(t)
		photo := testPhoto(2024, 40, "a")

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO photos")).
			WithArgs(2024, 40, photo.ObservedDay, photo.CapturedAt, "a", photo.ImageURL, photo.ThumbnailURL, photo.PermalinkURL).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		id, err := repo.Add(ctx, photo)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.Equal(t, int64(7), photo.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violation", func(t *testing.T) {
		repo, mock := setupMockPostgres(t)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO photos")).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		_, err := repo.Add(ctx, testPhoto(2024, 40, "a"))
		assert.ErrorIs(t, err, models.ErrDuplicatePhoto)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPhotoRepositoryPostgres_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("most recent on empty table", func(t *testing.T) {
		repo, mock := setupMockPostgres(t)

		mock.ExpectQuery(regexp.QuoteMeta("FROM photos ORDER BY id DESC LIMIT 1")).
			WillReturnError(sql.ErrNoRows)

		photo, err := repo.GetMostRecent(ctx)
		require.NoError(t, err)
		assert.Nil(t, photo)
	})

	t.Run("most recent", func(t *testing.T) {
		repo, mock := setupMockPostgres(t)
		p := testPhoto(2024, 101, "r101")

		mock.ExpectQuery(regexp.QuoteMeta("FROM photos ORDER BY id DESC LIMIT 1")).
			WillReturnRows(sqlmock.NewRows(photoRowColumns).
				AddRow(int64(3), 2024, 101, p.ObservedDay, p.CapturedAt, "r101", p.ImageURL, p.ThumbnailURL, p.PermalinkURL))

		photo, err := repo.GetMostRecent(ctx)
		require.NoError(t, err)
		require.NotNil(t, photo)
		assert.Equal(t, int64(3), photo.ID)
		assert.Equal(t, "r101", photo.RemoteID)
		assert.Equal(t, 101, photo.DayOfYear)
	})

	t.Run("get all pages with limit and offset", func(t *testing.T) {
		repo, mock := setupMockPostgres(t)

		mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
			WithArgs(5, 10).
			WillReturnRows(sqlmock.NewRows(photoRowColumns))

		photos, err := repo.GetAll(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, photos)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count and truncate", func(t *testing.T) {
		repo, mock := setupMockPostgres(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM photos")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
		mock.ExpectExec(regexp.QuoteMeta("TRUNCATE TABLE photos")).
			WillReturnResult(sqlmock.NewResult(0, 12))

		count, err := repo.GetCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 12, count)
		require.NoError(t, repo.Truncate(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
