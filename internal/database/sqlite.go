package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteMemory = ":memory:"

// NewSQLiteDB opens the SQLite file at path, creating its directory when
// needed. ":memory:" opens a private in-memory database.
func NewSQLiteDB(path string) (*sqlx.DB, error) {
	if path != sqliteMemory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite doesn't support multiple writers, and an in-memory database
	// lives only as long as its single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

type sqliteQuerier struct {
	conn sqlx.ExtContext
}

func (q sqliteQuerier) QueryRow(ctx context.Context, query string, args ...any) Row {
	return sqliteRow{row: q.conn.QueryRowxContext(ctx, query, args...)}
}

func (q sqliteQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := q.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqliteRows{Rows: rows}, nil
}

func (q sqliteQuerier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (sqliteQuerier) Dialect() Dialect { return SQLite }

type sqliteRow struct {
	row *sqlx.Row
}

func (r sqliteRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

type sqliteRows struct {
	*sql.Rows
}

func (r sqliteRows) Close() {
	_ = r.Rows.Close()
}

type SQLiteStore struct {
	sqliteQuerier
	db *sqlx.DB
}

func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{sqliteQuerier: sqliteQuerier{conn: db}, db: db}
}

func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(tx Querier) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(sqliteQuerier{conn: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}
