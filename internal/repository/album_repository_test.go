package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xupload/internal/domain/album"
	xupload_errors "xupload/pkg/errors"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestAlbumInsert_SetsIDFromReturning(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlbumRepository(db)
	created := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+albums\b.*RETURNING\s+id,\s*created_at`).
		WithArgs(int64(7), int64(3), "7_3_image.png", "10192026", 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	a := &album.Album{UserID: 7, ProfileID: 3, ImageName: "7_3_image.png", ImageFolder: "10192026"}
	require.NoError(t, repo.Insert(context.Background(), a))

	assert.Equal(t, int64(42), a.ID)
	assert.Equal(t, created, a.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlbumInsert_UniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlbumRepository(db)

	mock.ExpectQuery(`INSERT\s+INTO\s+albums`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Insert(context.Background(), &album.Album{UserID: 1})
	assert.ErrorIs(t, err, xupload_errors.ErrAlreadyExists)
}

func TestAlbumUpdateImageName(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlbumRepository(db)

	mock.ExpectExec(`(?s)UPDATE\s+albums\s+SET\s+image_name\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2`).
		WithArgs("42_7_3_image.png", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateImageName(context.Background(), 42, "42_7_3_image.png"))

	mock.ExpectExec(`UPDATE\s+albums`).
		WithArgs("x", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateImageName(context.Background(), 99, "x"), xupload_errors.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlbumDeleteByImageName(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlbumRepository(db)

	mock.ExpectExec(`DELETE\s+FROM\s+albums\s+WHERE\s+image_name\s*=\s*\$1`).
		WithArgs("42_7_3_image.png").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteByImageName(context.Background(), "42_7_3_image.png"))

	mock.ExpectExec(`DELETE\s+FROM\s+albums`).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteByImageName(context.Background(), "gone"), xupload_errors.ErrNotFound)

	mock.ExpectExec(`DELETE\s+FROM\s+albums`).
		WithArgs("boom").
		WillReturnError(errors.New("connection reset"))
	err := repo.DeleteByImageName(context.Background(), "boom")
	require.Error(t, err)
	assert.NotErrorIs(t, err, xupload_errors.ErrNotFound)
}
