// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Fixed keys of the persisted blobs. Each blob is rewritten in full.
const (
	KeyMeals          = "saved_meals"
	KeyCurrentProfile = "current_profile"
	KeyProfiles       = "saved_profiles"
)

var ErrNotFound = errors.New("key not found")

// Store is a key-value blob store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Apply runs every op or none of them.
	Apply(ctx context.Context, ops ...Op) error
}

// Op is one write of an Apply batch. A Delete op ignores Value.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

func PutOp(key string, value []byte) Op { return Op{Key: key, Value: value} }

func DeleteOp(key string) Op { return Op{Key: key, Delete: true} }

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS kv (
        key TEXT PRIMARY KEY,
        value BLOB NOT NULL,
        updated_at TEXT NOT NULL
    );
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

const (
	upsertQuery = `
        INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
    `
	deleteQuery = `DELETE FROM kv WHERE key = ?`
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execOp(ctx context.Context, db execer, op Op, now string) error {
	if op.Delete {
		if _, err := db.ExecContext(ctx, deleteQuery, op.Key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", op.Key, err)
		}
		return nil
	}
	if op.Value == nil {
		return fmt.Errorf("failed to write %s: nil value", op.Key)
	}
	if _, err := db.ExecContext(ctx, upsertQuery, op.Key, op.Value, now); err != nil {
		return fmt.Errorf("failed to write %s: %w", op.Key, err)
	}
	return nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (s *SQLiteStorage) Put(ctx context.Context, key string, value []byte) error {
	return execOp(ctx, s.db, PutOp(key, value), timestamp())
}

func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	return execOp(ctx, s.db, DeleteOp(key), timestamp())
}

func (s *SQLiteStorage) Apply(ctx context.Context, ops ...Op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := timestamp()
	for _, op := range ops {
		if err := execOp(ctx, tx, op, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdatedAt reports when key was last written.
func (s *SQLiteStorage) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var updatedAtStr string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM kv WHERE key = ?`, key).Scan(&updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	t, err := time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return t, nil
}
