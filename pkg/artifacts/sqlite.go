package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Sqlite struct {
	sync.RWMutex
	db *sql.DB
}

// OpenSqlite opens (or creates) the database file at path.
func OpenSqlite(path string) (*Sqlite, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=rwc&cache=shared", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := NewSqlite(db)
	if err := s.Create(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSqlite(db *sql.DB) *Sqlite {
	return &Sqlite{
		db: db,
	}
}

func (s *Sqlite) Create() error {
	defer s.lock()()
	const q = `CREATE TABLE IF NOT EXISTS artifact (
		name TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("create sqlite db: %w", err)
	}
	return nil
}

func (s *Sqlite) Put(ctx context.Context, key string, value []byte) error {
	defer s.lock()()
	const q = `
		INSERT INTO artifact (name, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("sqlite: put %s: %w", key, err)
	}
	return nil
}

func (s *Sqlite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	defer s.rlock()()
	const q = "SELECT value FROM artifact WHERE name = $1"
	var value []byte
	if err := s.db.QueryRowContext(ctx, q, key).Scan(&value); errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("sqlite: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Sqlite) Close() error {
	return s.db.Close()
}

func (s *Sqlite) rlock() func() {
	s.RLock()
	return func() {
		s.RUnlock()
	}
}

func (s *Sqlite) lock() func() {
	s.Lock()
	return func() {
		s.Unlock()
	}
}
