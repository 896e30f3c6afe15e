// Package sqldb implements storage.Storage on database/sql. The sqlite and
// postgres adapters share it and differ only in driver, placeholder style
// and schema.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/crypto"
)

// Dialect selects the placeholder style of the driver
type Dialect int

const (
	// Question uses ? placeholders (SQLite)
	Question Dialect = iota
	// Dollar uses $1, $2, ... placeholders (PostgreSQL)
	Dollar
)

// Rebind rewrites ? placeholders for the dialect. Queries in this package
// never contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if d != Dollar {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Store is the shared database/sql implementation of storage.Storage
type Store struct {
	db        *sql.DB
	dialect   Dialect
	encryptor *crypto.SecretEncryptor
	now       func() time.Time
}

// New wraps an open database. A nil encryptor stores secrets in plaintext,
// which only tests should do.
func New(db *sql.DB, dialect Dialect, encryptor *crypto.SecretEncryptor) *Store {
	return &Store{
		db:        db,
		dialect:   dialect,
		encryptor: encryptor,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DB exposes the underlying handle for migrations
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.InternalError("database unreachable", err)
	}
	return nil
}

// Migrate runs each statement in order
func (s *Store) Migrate(ctx context.Context, queries []string) error {
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return errors.InternalError("migration failed", err)
		}
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// execOne runs a write that must touch exactly one row
func (s *Store) execOne(ctx context.Context, resource, query string, args ...interface{}) error {
	result, err := s.exec(ctx, query, args...)
	if err != nil {
		return errors.InternalError("failed to write "+resource, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.InternalError("failed to write "+resource, err)
	}
	if n == 0 {
		return errors.NotFoundError(resource)
	}
	return nil
}

func (s *Store) encrypt(values ...*string) error {
	if s.encryptor == nil {
		return nil
	}
	if err := s.encryptor.EncryptAll(values...); err != nil {
		return errors.InternalError("failed to encrypt secret", err)
	}
	return nil
}

func (s *Store) decrypt(values ...*string) error {
	if s.encryptor == nil {
		return nil
	}
	if err := s.encryptor.DecryptAll(values...); err != nil {
		return errors.InternalError("failed to decrypt stored secret", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// encodeScopes stores nil as NULL and an empty list as []
func encodeScopes(scopes []string) (sql.NullString, error) {
	if scopes == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(scopes)
	if err != nil {
		return sql.NullString{}, errors.InternalError("failed to encode scopes", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeScopes(raw sql.NullString) ([]string, error) {
	if !raw.Valid {
		return nil, nil
	}
	scopes := []string{}
	if err := json.Unmarshal([]byte(raw.String), &scopes); err != nil {
		return nil, errors.InternalError("failed to decode scopes", err)
	}
	return scopes, nil
}
