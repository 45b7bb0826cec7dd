package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"neurema-cms/internal/database"
	"neurema-cms/internal/models"
)

var ErrUnknownFilter = errors.New("unknown filter")

// Resource is the generic single-record CRUD surface of one content table.
// Every method takes the querier to run on, so writes can share a
// transaction with the read that follows them.
type Resource[T any] struct {
	Table   string
	Columns []string
	// Filters lists the columns List may be narrowed by.
	Filters []string
	Scan    func(row database.Row) (*T, error)
	now     func() time.Time
}

func (r *Resource[T]) selectList() string {
	return strings.Join(r.Columns, ", ")
}

func (r *Resource[T]) timestamp() time.Time {
	if r.now != nil {
		return r.now().UTC()
	}
	return time.Now().UTC()
}

// List returns one page of records ordered by id together with the total
// number of matching records.
func (r *Resource[T]) List(ctx context.Context, q database.Querier, params models.ListParams) ([]*T, int, error) {
	for col := range params.Filters {
		if !slices.Contains(r.Filters, col) {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownFilter, col)
		}
	}

	d := q.Dialect()
	where, args := whereEquals(d, filterPatch(params.Filters), 1)
	if where != "" {
		where = " WHERE " + where
	}

	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM "+r.Table+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", r.Table, err)
	}

	offset := (params.Page - 1) * params.PageSize
	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id ASC LIMIT %s OFFSET %s",
		r.selectList(), r.Table, where, d.Placeholder(len(args)+1), d.Placeholder(len(args)+2))
	args = append(args, params.PageSize, offset)

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", r.Table, err)
	}
	defer rows.Close()

	items := []*T{}
	for rows.Next() {
		item, err := r.Scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan %s: %w", r.Table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get returns database.ErrNotFound when no record has the id.
func (r *Resource[T]) Get(ctx context.Context, q database.Querier, id int64) (*T, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", r.selectList(), r.Table, q.Dialect().Placeholder(1))
	item, err := r.Scan(q.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *Resource[T]) Create(ctx context.Context, q database.Querier, p models.Patch) (*T, error) {
	now := r.timestamp()
	p.Set("created_at", now)
	p.Set("updated_at", now)

	id, err := insertReturningID(ctx, q, r.Table, p)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, q, id)
}

// Update applies the patch to record id and returns the stored result. An
// empty patch only checks that the record exists.
func (r *Resource[T]) Update(ctx context.Context, q database.Querier, id int64, p models.Patch) (*T, error) {
	if p.Len() == 0 {
		return r.Get(ctx, q, id)
	}
	p.Set("updated_at", r.timestamp())

	affected, err := updateByID(ctx, q, r.Table, id, p)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, database.ErrNotFound
	}
	return r.Get(ctx, q, id)
}

// Delete removes record id and returns it as it was.
func (r *Resource[T]) Delete(ctx context.Context, q database.Querier, id int64) (*T, error) {
	item, err := r.Get(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx, "DELETE FROM "+r.Table+" WHERE id = "+q.Dialect().Placeholder(1), id); err != nil {
		return nil, fmt.Errorf("failed to delete %s %d: %w", r.Table, id, err)
	}
	return item, nil
}
