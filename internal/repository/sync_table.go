package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"neurema-cms/internal/database"
	"neurema-cms/internal/models"
)

// ErrBulkCountMismatch means a multi-row insert reported a different number
// of ids than rows submitted. The insert is rolled back.
var ErrBulkCountMismatch = errors.New("bulk insert returned an unexpected number of ids")

// SyncEntry is a sanitized bulk-sync record that knows its natural key and
// its sparse create and update payloads.
type SyncEntry interface {
	KeyFields() models.Patch
	CreateFields() models.Patch
	UpdateFields() models.Patch
}

// SyncTable performs the bulk-sync store operations for one table. It is
// bound to the querier it was opened with, normally a transaction.
type SyncTable[E SyncEntry] struct {
	q     database.Querier
	table string
	now   func() time.Time
}

func NewSyncTable[E SyncEntry](q database.Querier, table string) *SyncTable[E] {
	return &SyncTable[E]{q: q, table: table, now: time.Now}
}

func StudySessionSync(q database.Querier) *SyncTable[models.StudySessionEntry] {
	return NewSyncTable[models.StudySessionEntry](q, StudySessions.Table)
}

func UserTopicSync(q database.Querier) *SyncTable[models.UserTopicEntry] {
	return NewSyncTable[models.UserTopicEntry](q, UserTopics.Table)
}

// FindID looks up the record with e's natural key, selecting only its id.
func (t *SyncTable[E]) FindID(ctx context.Context, e E) (int64, bool, error) {
	where, args := whereEquals(t.q.Dialect(), e.KeyFields(), 1)
	sql := fmt.Sprintf("SELECT id FROM %s WHERE %s LIMIT 1", t.table, where)

	var id int64
	err := t.q.QueryRow(ctx, sql, args...).Scan(&id)
	if errors.Is(err, database.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up %s by natural key: %w", t.table, err)
	}
	return id, true, nil
}

// Update writes e's present fields to record id. It reports false without
// touching the database when e has nothing to write.
func (t *SyncTable[E]) Update(ctx context.Context, id int64, e E) (bool, error) {
	patch := e.UpdateFields()
	if patch.Len() == 0 {
		return false, nil
	}
	patch.Set("updated_at", t.now().UTC())

	if _, err := updateByID(ctx, t.q, t.table, id, patch); err != nil {
		return false, fmt.Errorf("failed to update %s %d: %w", t.table, id, err)
	}
	return true, nil
}

func (t *SyncTable[E]) Create(ctx context.Context, e E) (int64, error) {
	id, err := insertReturningID(ctx, t.q, t.table, t.createPatch(e))
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", t.table, err)
	}
	return id, nil
}

// CreateMany inserts all entries and returns their ids in input order. It
// runs inside a savepoint, so on any error (including a count mismatch) no
// rows are left behind and the enclosing transaction remains usable.
func (t *SyncTable[E]) CreateMany(ctx context.Context, entries []E) ([]int64, error) {
	patches := make([]models.Patch, len(entries))
	for i, e := range entries {
		patches[i] = t.createPatch(e)
	}

	var ids []int64
	err := database.Savepoint(ctx, t.q, "bulk_create", func() error {
		created, err := insertManyReturningIDs(ctx, t.q, t.table, patches)
		if err != nil {
			return err
		}
		if len(created) != len(patches) {
			return fmt.Errorf("%w: got %d, want %d", ErrBulkCountMismatch, len(created), len(patches))
		}
		ids = created
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bulk create %s: %w", t.table, err)
	}
	return ids, nil
}

func (t *SyncTable[E]) createPatch(e E) models.Patch {
	p := e.CreateFields()
	now := t.now().UTC()
	p.Set("created_at", now)
	p.Set("updated_at", now)
	return p
}
