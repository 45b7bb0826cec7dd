package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurema-cms/internal/database"
	"neurema-cms/internal/models"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	store := database.NewSQLiteStore(db)
	t.Cleanup(store.Close)

	_, err = database.RunMigrations(context.Background(), store)
	require.NoError(t, err)
	return store
}

func ptr[T any](v T) *T { return &v }

func session(userTopicID int64, day int) models.StudySessionEntry {
	at := time.Date(2024, 1, day, 9, 0, 0, 0, time.UTC)
	return models.StudySessionEntry{
		ClientKey:    models.DefaultStudySessionClientKey(userTopicID, at),
		UserTopicID:  userTopicID,
		ScheduledFor: at,
	}
}

func TestSyncTable_CreateThenFindByNaturalKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	table := StudySessionSync(store)

	entry := session(1, 1)
	_, found, err := table.FindID(ctx, entry)
	require.NoError(t, err)
	assert.False(t, found)

	id, err := table.Create(ctx, entry)
	require.NoError(t, err)

	got, found, err := table.FindID(ctx, entry)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, got)
}

func TestSyncTable_UpdateIsSparse(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	table := StudySessionSync(store)

	entry := session(1, 1)
	entry.TimeAllotted = ptr(30.0)
	entry.DifficultyLevel = ptr("easy")
	id, err := table.Create(ctx, entry)
	require.NoError(t, err)

	patch := session(1, 1)
	patch.IsPaused = true
	patch.DifficultyLevel = ptr("hard")
	wrote, err := table.Update(ctx, id, patch)
	require.NoError(t, err)
	assert.True(t, wrote)

	stored, err := StudySessions.Get(ctx, store, id)
	require.NoError(t, err)
	assert.True(t, stored.IsPaused)
	require.NotNil(t, stored.TimeAllotted)
	assert.Equal(t, 30.0, *stored.TimeAllotted)
	require.NotNil(t, stored.DifficultyLevel)
	assert.Equal(t, "hard", *stored.DifficultyLevel)
	assert.True(t, entry.ScheduledFor.Equal(stored.ScheduledFor))
}

func TestSyncTable_EmptyUpdateIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	table := UserTopicSync(store)

	entry := models.UserTopicEntry{TopicID: 3, ProfileID: 4, TimeTotal: ptr(12.0)}
	id, err := table.Create(ctx, entry)
	require.NoError(t, err)
	before, err := UserTopics.Get(ctx, store, id)
	require.NoError(t, err)

	wrote, err := table.Update(ctx, id, models.UserTopicEntry{TopicID: 3, ProfileID: 4})
	require.NoError(t, err)
	assert.False(t, wrote)

	after, err := UserTopics.Get(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSyncTable_CreateManyReturnsIDsInInputOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	table := StudySessionSync(store)

	entries := []models.StudySessionEntry{session(1, 1), session(1, 2), session(2, 1)}
	entries[1].ScoreActivity = ptr("9")

	err := store.WithinTx(ctx, func(tx database.Querier) error {
		ids, err := StudySessionSync(tx).CreateMany(ctx, entries)
		require.NoError(t, err)
		require.Len(t, ids, 3)
		assert.Less(t, ids[0], ids[1])
		assert.Less(t, ids[1], ids[2])
		return nil
	})
	require.NoError(t, err)

	for _, e := range entries {
		_, found, err := table.FindID(ctx, e)
		require.NoError(t, err)
		assert.True(t, found)
	}

	id, _, err := table.FindID(ctx, entries[0])
	require.NoError(t, err)
	stored, err := StudySessions.Get(ctx, store, id)
	require.NoError(t, err)
	assert.Nil(t, stored.ScoreActivity, "columns missing from a row are written as NULL")
}

func TestSyncTable_CreateManyFailureLeavesNoRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	existing := session(1, 1)
	_, err := StudySessionSync(store).Create(ctx, existing)
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(tx database.Querier) error {
		_, err := StudySessionSync(tx).CreateMany(ctx, []models.StudySessionEntry{session(1, 2), existing})
		require.Error(t, err)
		assert.True(t, tx.Dialect().IsUniqueViolation(err))

		// The transaction stays usable after the failed batch.
		_, err = StudySessionSync(tx).Create(ctx, session(1, 3))
		return err
	})
	require.NoError(t, err)

	_, total, err := StudySessions.List(ctx, store, models.ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestResource_CRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	in := models.ExamInput{
		Name:            ptr("Finals"),
		HighYieldTopics: json.RawMessage(`["cardio"]`),
		SubjectIDs:      []int64{4, 5},
	}
	created, err := Exams.Create(ctx, store, in.Fields())
	require.NoError(t, err)
	assert.Equal(t, "Finals", *created.Name)
	assert.JSONEq(t, `["cardio"]`, string(created.HighYieldTopics))
	assert.Equal(t, []int64{4, 5}, created.SubjectIDs)

	updated, err := Exams.Update(ctx, store, created.ID, models.ExamInput{Name: ptr("Mocks")}.Fields())
	require.NoError(t, err)
	assert.Equal(t, "Mocks", *updated.Name)
	assert.Equal(t, []int64{4, 5}, updated.SubjectIDs)

	deleted, err := Exams.Delete(ctx, store, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = Exams.Get(ctx, store, created.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = Exams.Update(ctx, store, created.ID, models.ExamInput{Name: ptr("x")}.Fields())
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestResource_ListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := int64(1); i <= 5; i++ {
		conceptual := i % 2
		_, err := Edges.Create(ctx, store, models.EdgeInput{
			From:         ptr("a"),
			To:           ptr("b"),
			ConceptualID: &conceptual,
		}.Fields())
		require.NoError(t, err)
	}

	page, total, err := Edges.List(ctx, store, models.ListParams{
		Filters:  map[string]any{"conceptual_id": int64(1)},
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, int64(5), page[0].ID)

	_, _, err = Edges.List(ctx, store, models.ListParams{
		Filters:  map[string]any{"name": "x"},
		Page:     1,
		PageSize: 2,
	})
	assert.ErrorIs(t, err, ErrUnknownFilter)
}
