package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"neurema-cms/internal/database"
	"neurema-cms/internal/models"
)

// maxInsertRows bounds a multi-row INSERT so large batches stay under the
// drivers' bind parameter limits.
const maxInsertRows = 500

func bindValue(d database.Dialect, v any) any {
	if raw, ok := v.(models.JSON); ok {
		return d.JSON(raw)
	}
	return v
}

// whereEquals renders "a = $n AND b = $n+1" for every column of the patch,
// numbering placeholders from start.
func whereEquals(d database.Dialect, p models.Patch, start int) (string, []any) {
	conds := make([]string, 0, p.Len())
	args := make([]any, 0, p.Len())
	for i, col := range p.Columns() {
		conds = append(conds, col+" = "+d.Placeholder(start+i))
		args = append(args, bindValue(d, p.Values()[i]))
	}
	return strings.Join(conds, " AND "), args
}

func filterPatch(filters map[string]any) models.Patch {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var p models.Patch
	for _, k := range keys {
		p.Set(k, filters[k])
	}
	return p
}

func insertReturningID(ctx context.Context, q database.Querier, table string, p models.Patch) (int64, error) {
	d := q.Dialect()
	holders := make([]string, p.Len())
	args := make([]any, p.Len())
	for i, v := range p.Values() {
		holders[i] = d.Placeholder(i + 1)
		args[i] = bindValue(d, v)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(p.Columns(), ", "), strings.Join(holders, ", "))

	var id int64
	if err := q.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// insertManyReturningIDs writes the patches with multi-row INSERTs and
// returns the generated ids in patch order. Columns missing from a patch are
// bound as NULL.
func insertManyReturningIDs(ctx context.Context, q database.Querier, table string, patches []models.Patch) ([]int64, error) {
	ids := make([]int64, 0, len(patches))
	for start := 0; start < len(patches); start += maxInsertRows {
		end := start + maxInsertRows
		if end > len(patches) {
			end = len(patches)
		}
		chunk, err := insertChunk(ctx, q, table, patches[start:end])
		if err != nil {
			return nil, err
		}
		ids = append(ids, chunk...)
	}
	return ids, nil
}

func insertChunk(ctx context.Context, q database.Querier, table string, patches []models.Patch) ([]int64, error) {
	d := q.Dialect()

	var columns []string
	seen := map[string]bool{}
	for _, p := range patches {
		for _, col := range p.Columns() {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}

	rows := make([]string, 0, len(patches))
	args := make([]any, 0, len(patches)*len(columns))
	n := 1
	for _, p := range patches {
		holders := make([]string, len(columns))
		for i, col := range columns {
			v, _ := p.Get(col)
			holders[i] = d.Placeholder(n)
			args = append(args, bindValue(d, v))
			n++
		}
		rows = append(rows, "("+strings.Join(holders, ", ")+")")
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s RETURNING id",
		table, strings.Join(columns, ", "), strings.Join(rows, ", "))

	res, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	ids := make([]int64, 0, len(patches))
	for res.Next() {
		var id int64
		if err := res.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	// RETURNING order is unspecified, but ids are drawn in VALUES order
	// within one statement.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func updateByID(ctx context.Context, q database.Querier, table string, id int64, p models.Patch) (int64, error) {
	d := q.Dialect()
	sets := make([]string, p.Len())
	args := make([]any, 0, p.Len()+1)
	for i, col := range p.Columns() {
		sets[i] = col + " = " + d.Placeholder(i+1)
		args = append(args, bindValue(d, p.Values()[i]))
	}
	args = append(args, id)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", table, strings.Join(sets, ", "), d.Placeholder(p.Len()+1))
	return q.Exec(ctx, sql, args...)
}
