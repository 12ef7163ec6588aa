package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockDB returns a DB whose writer and reader share one sqlmock connection.
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &DB{Writer: conn, Reader: conn}, mock
}

func TestSubmissionRepo_ListError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepo(db)

	mock.ExpectQuery("SELECT .+ FROM contact_form_submissions WHERE archived_at IS NULL").
		WillReturnError(errors.New("disk I/O error"))

	_, err := repo.ListActive(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list submissions")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepo_BadTimestamp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepo(db)

	rows := sqlmock.NewRows([]string{"id", "email", "message", "phone", "received_at", "archived_at"}).
		AddRow(1, "a@b.co", "hi", nil, "yesterday", nil)
	mock.ExpectQuery("SELECT .+ FROM contact_form_submissions WHERE id = \\?").
		WithArgs(int64(1)).
		WillReturnRows(rows)

	_, err := repo.GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse received_at")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepo_ListLinksScanError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepo(db)

	rows := sqlmock.NewRows([]string{"id", "name", "href", "category_id", "name"}).
		AddRow("not-a-number", "x", "https://x.example", 1, "Social")
	mock.ExpectQuery("SELECT l.id, l.name").WillReturnRows(rows)

	_, err := repo.ListLinks(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan link")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("admin", "hash").
		WillReturnError(errors.New("database is locked"))

	_, err := repo.Create(context.Background(), "admin", "hash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}
