package database

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Row.Scan when the query matched no rows,
// regardless of the driver behind the store.
var ErrNotFound = errors.New("record not found")

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier is the statement surface shared by a store and an open
// transaction. Repositories take a Querier so the caller decides whether a
// call runs inside a transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Dialect() Dialect
}

// Transactor runs fn inside a single transaction. The transaction commits
// only when fn returns nil.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Querier) error) error
}

type Store interface {
	Querier
	Transactor
	Ping(ctx context.Context) error
	Close()
}

// Savepoint runs fn inside a named savepoint of the transaction q. When fn
// fails the work done since the savepoint is rolled back and the outer
// transaction stays usable.
func Savepoint(ctx context.Context, q Querier, name string, fn func() error) error {
	if _, err := q.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}

	if err := fn(); err != nil {
		if _, rbErr := q.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back to savepoint %s: %w", name, rbErr))
		}
		_, _ = q.Exec(ctx, "RELEASE SAVEPOINT "+name)
		return err
	}

	if _, err := q.Exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to release savepoint %s: %w", name, err)
	}
	return nil
}
