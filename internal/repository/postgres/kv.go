package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"topicrelay/internal/repository"
)

// KVStore implements repository.KVStore on a single kv table.
// Expired rows stay invisible until PurgeExpired removes them.
type KVStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewKVStore creates a new postgres-backed key-value store
func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db, now: time.Now}
}

// Get returns the live value stored under key
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	query := `SELECT value FROM kv WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())`
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)

	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Put upserts value under key
func (s *KVStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: s.now().Add(ttl), Valid: true}
	}

	query := `
		INSERT INTO kv (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`
	_, err := s.db.ExecContext(ctx, query, key, value, expiresAt)
	return err
}

// Delete removes key if present
func (s *KVStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv WHERE key = $1`
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

// List returns live keys starting with prefix
func (s *KVStore) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}

	query := `
		SELECT key
		FROM kv
		WHERE key LIKE $1 ESCAPE '\'
			AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY key
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, likePrefix(prefix), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// PurgeExpired deletes expired rows and returns how many were removed
func (s *KVStore) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= NOW()`
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// likePrefix escapes LIKE wildcards in prefix and appends %
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
