package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"topicrelay/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*KVStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewKVStore(db)
	store.now = func() time.Time { return time.Date(2024, 12, 12, 10, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestKVStore_Get(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		mockRows      *sqlmock.Rows
		mockError     error
		expectedValue string
		expectedErr   error
	}{
		{
			name:          "live key",
			key:           "user:1",
			mockRows:      sqlmock.NewRows([]string{"value"}).AddRow(`{"id":1}`),
			expectedValue: `{"id":1}`,
		},
		{
			name:        "missing or expired key",
			key:         "user:2",
			mockError:   sql.ErrNoRows,
			expectedErr: repository.ErrNotFound,
		},
		{
			name:        "database error",
			key:         "user:3",
			mockError:   errors.New("connection reset"),
			expectedErr: errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStore(t)

			query := `SELECT value FROM kv WHERE key = \$1`
			if tt.mockError != nil {
				mock.ExpectQuery(query).WithArgs(tt.key).WillReturnError(tt.mockError)
			} else {
				mock.ExpectQuery(query).WithArgs(tt.key).WillReturnRows(tt.mockRows)
			}

			value, err := store.Get(context.Background(), tt.key)

			if tt.expectedErr != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedErr.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedValue, value)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestKVStore_Put(t *testing.T) {
	t.Run("with ttl", func(t *testing.T) {
		store, mock := newTestStore(t)
		expires := store.now().Add(10 * time.Minute)

		mock.ExpectExec("INSERT INTO kv").
			WithArgs("ticket:abc", `{"id":"abc"}`, sql.NullTime{Time: expires, Valid: true}).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := store.Put(context.Background(), "ticket:abc", `{"id":"abc"}`, 10*time.Minute)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without ttl", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectExec("INSERT INTO kv").
			WithArgs("thread:user:1", "42", sql.NullTime{}).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := store.Put(context.Background(), "thread:user:1", "42", 0)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestKVStore_Delete(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec(`DELETE FROM kv WHERE key = \$1`).
		WithArgs("batch:g1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Delete(context.Background(), "batch:g1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKVStore_List(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT key").
		WithArgs(`thread:user:%`, 50).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).
			AddRow("thread:user:1").
			AddRow("thread:user:2"))

	keys, err := store.List(context.Background(), "thread:user:", 50)

	assert.NoError(t, err)
	assert.Equal(t, []string{"thread:user:1", "thread:user:2"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKVStore_ListDefaultLimit(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT key").
		WithArgs(`ticket:%`, repository.DefaultListLimit).
		WillReturnRows(sqlmock.NewRows([]string{"key"}))

	keys, err := store.List(context.Background(), "ticket:", 0)

	assert.NoError(t, err)
	assert.Empty(t, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKVStore_PurgeExpired(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM kv WHERE expires_at IS NOT NULL").
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := store.PurgeExpired(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePrefix(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "ticket:", expected: "ticket:%"},
		{input: "batch:a_b", expected: `batch:a\_b%`},
		{input: "100%", expected: `100\%%`},
		{input: `back\slash`, expected: `back\\slash%`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, likePrefix(tt.input))
		})
	}
}
