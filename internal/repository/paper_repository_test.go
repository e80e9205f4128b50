package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citavers/citavers-api/internal/models"
)

func newPaperMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func paperRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "title", "authors", "doi", "status", "tags", "notes", "pdf_key", "pdf_size_bytes", "version", "created_at", "updated_at", "deleted_at"})
}

func TestPaperRepositoryFindActiveByID(t *testing.T) {
	db, mock, cleanup := newPaperMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+paperColumns+" FROM papers WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL")).
		WithArgs(int64(1), "u1").
		WillReturnRows(paperRows().AddRow(1, "u1", "Paper", "Doe", "10.1/abc", "unread", "", "", "", 0, 1, time.Now(), time.Now(), nil))

	paper, err := repo.FindActiveByID(context.Background(), "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), paper.ID)
	assert.Equal(t, "10.1/abc", paper.DOIValue())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaperRepositoryList(t *testing.T) {
	db, mock, cleanup := newPaperMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+paperColumns+" FROM papers WHERE user_id = $1 AND deleted_at IS NULL AND status = $2 ORDER BY updated_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("u1", "read").
		WillReturnRows(paperRows().AddRow(1, "u1", "Paper", "Doe", nil, "read", "", "", "", 0, 1, time.Now(), time.Now(), nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM papers WHERE user_id = $1 AND deleted_at IS NULL AND status = $2")).
		WithArgs("u1", "read").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	papers, total, err := repo.List(context.Background(), "u1", models.PaperFilter{Status: "read"})
	require.NoError(t, err)
	assert.Len(t, papers, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaperRepositoryInTxCommit(t *testing.T) {
	db, mock, cleanup := newPaperMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	deletedAt := time.Now().UTC().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+paperColumns+" FROM papers WHERE user_id = $1 AND doi = $2 ORDER BY updated_at DESC LIMIT 1 FOR UPDATE")).
		WithArgs("u1", "10.1/abc").
		WillReturnRows(paperRows().AddRow(7, "u1", "Ghost", "", "10.1/abc", "read", "", "", "", 0, 3, time.Now(), deletedAt, deletedAt))
	mock.ExpectExec("UPDATE papers").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(store PaperStore) error {
		paper, err := store.FindByDOIForUpdate(context.Background(), "u1", "10.1/abc", 0)
		if err != nil {
			return err
		}
		require.True(t, paper.IsDeleted())
		paper.DeletedAt = nil
		paper.Version++
		return store.Update(context.Background(), paper)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaperRepositoryInTxRollback(t *testing.T) {
	db, mock, cleanup := newPaperMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := repo.InTx(context.Background(), func(store PaperStore) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaperStoreSoftDeleteMissing(t *testing.T) {
	db, mock, cleanup := newPaperMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE papers SET deleted_at").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(store PaperStore) error {
		return store.SoftDelete(context.Background(), "u1", 1, time.Now().UTC())
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaperStoreInsertDefaults(t *testing.T) {
	db, mock, cleanup := newPaperMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO papers").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectCommit()

	paper := &models.Paper{UserID: "u1", Title: "Fresh"}
	err := repo.InTx(context.Background(), func(store PaperStore) error {
		return store.Insert(context.Background(), paper)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), paper.ID)
	assert.Equal(t, 1, paper.Version)
	assert.Equal(t, models.PaperStatusUnread, paper.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
