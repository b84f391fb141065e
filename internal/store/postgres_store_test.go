package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/recnotify/internal/model"
)

func newPostgresStoreMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStoreEnsureSchema(t *testing.T) {
	s, mock := newPostgresStoreMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS cache_entries").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreLoad(t *testing.T) {
	s, mock := newPostgresStoreMock(t)
	rows := sqlmock.NewRows([]string{"value"}).
		AddRow([]byte(`{"Novak Jan":"novak@example.org","Svoboda Petr":""}`))
	mock.ExpectQuery("SELECT value FROM cache_entries").
		WithArgs("contact_info").
		WillReturnRows(rows)

	contacts := model.NewContactDirectory()
	found, err := s.Load(context.Background(), "contact_info", contacts)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"Novak Jan", "Svoboda Petr"}, contacts.Keys())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreLoadMissing(t *testing.T) {
	s, mock := newPostgresStoreMock(t)
	mock.ExpectQuery("SELECT value FROM cache_entries").
		WithArgs("allowed_subjects").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	found, err := s.Load(context.Background(), "allowed_subjects", model.NewSubjectRegistry())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPostgresStoreLoadError(t *testing.T) {
	s, mock := newPostgresStoreMock(t)
	mock.ExpectQuery("SELECT value FROM cache_entries").
		WithArgs("allowed_subjects").
		WillReturnError(errors.New("connection reset"))

	_, err := s.Load(context.Background(), "allowed_subjects", model.NewSubjectRegistry())
	assert.ErrorContains(t, err, "connection reset")
}

func TestPostgresStoreSave(t *testing.T) {
	s, mock := newPostgresStoreMock(t)

	contacts := model.NewContactDirectory()
	contacts.Set("Novak Jan", "novak@example.org")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cache_entries").
		WithArgs("contact_info", `{"Novak Jan":"novak@example.org"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Save(context.Background(), "contact_info", contacts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSaveRollsBackOnError(t *testing.T) {
	s, mock := newPostgresStoreMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cache_entries").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Save(context.Background(), "contact_info", model.NewContactDirectory())
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
