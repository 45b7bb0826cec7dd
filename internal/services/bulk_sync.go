package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"neurema-cms/internal/database"
	"neurema-cms/internal/events"
	"neurema-cms/internal/logger"
	"neurema-cms/internal/models"
	"neurema-cms/internal/repository"
)

const (
	CollectionStudySessions = "study-sessions"
	CollectionUserTopics    = "user-topics"
)

// ErrUnresolvedID aborts a bulk sync when an entry ends up without a record
// id even after the sequential fallback.
var ErrUnresolvedID = errors.New("entry has no record id after create")

// SyncCollection is the store surface the reconciler needs for one entry
// family. Implementations are bound to the transaction they were opened on.
type SyncCollection[E any] interface {
	FindID(ctx context.Context, e E) (int64, bool, error)
	Update(ctx context.Context, id int64, e E) (bool, error)
	Create(ctx context.Context, e E) (int64, error)
	CreateMany(ctx context.Context, entries []E) ([]int64, error)
}

// SyncEntry is what the reconciler reads from a sanitized entry.
type SyncEntry interface {
	NaturalKey() string
	CorrelationKey() string
	ReferenceID() int64
}

// SyncOutcome is the reconciled state of one entry.
type SyncOutcome struct {
	ClientKey   string
	ID          int64
	ReferenceID int64
	Created     bool
}

type BulkSyncService struct {
	store     database.Store
	publisher events.Publisher
	log       *logger.Logger

	studySessions func(q database.Querier) SyncCollection[models.StudySessionEntry]
	userTopics    func(q database.Querier) SyncCollection[models.UserTopicEntry]
}

func NewBulkSyncService(store database.Store, publisher events.Publisher, log *logger.Logger) *BulkSyncService {
	if publisher == nil {
		publisher = events.Nop
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BulkSyncService{
		store:     store,
		publisher: publisher,
		log:       log,
		studySessions: func(q database.Querier) SyncCollection[models.StudySessionEntry] {
			return repository.StudySessionSync(q)
		},
		userTopics: func(q database.Querier) SyncCollection[models.UserTopicEntry] {
			return repository.UserTopicSync(q)
		},
	}
}

// SyncStudySessions upserts the entries by (userTopicId, scheduledFor) in a
// single transaction. Results follow input order.
func (s *BulkSyncService) SyncStudySessions(ctx context.Context, entries []models.StudySessionEntry) ([]models.StudySessionSyncResult, error) {
	outcomes, err := runSync(ctx, s, CollectionStudySessions, s.studySessions, entries)
	if err != nil {
		return nil, err
	}

	results := make([]models.StudySessionSyncResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = models.StudySessionSyncResult{
			ClientKey:   o.ClientKey,
			SessionID:   o.ID,
			UserTopicID: o.ReferenceID,
			Created:     o.Created,
		}
	}
	return results, nil
}

// SyncUserTopics upserts the entries by (topicId, profileId) in a single
// transaction. Results follow input order.
func (s *BulkSyncService) SyncUserTopics(ctx context.Context, entries []models.UserTopicEntry) ([]models.UserTopicSyncResult, error) {
	outcomes, err := runSync(ctx, s, CollectionUserTopics, s.userTopics, entries)
	if err != nil {
		return nil, err
	}

	results := make([]models.UserTopicSyncResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = models.UserTopicSyncResult{
			ClientKey:   o.ClientKey,
			UserTopicID: o.ID,
			TopicID:     o.ReferenceID,
			Created:     o.Created,
		}
	}
	return results, nil
}

func runSync[E SyncEntry](
	ctx context.Context,
	s *BulkSyncService,
	collection string,
	open func(q database.Querier) SyncCollection[E],
	entries []E,
) ([]SyncOutcome, error) {
	if len(entries) == 0 {
		return []SyncOutcome{}, nil
	}

	var outcomes []SyncOutcome
	err := s.store.WithinTx(ctx, func(tx database.Querier) error {
		var err error
		outcomes, err = reconcile(ctx, s.log.With("collection", collection), open(tx), entries)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bulk sync of %s failed: %w", collection, err)
	}

	s.publisher.Publish(ctx, changeEvent(collection, outcomes))
	return outcomes, nil
}

// reconcile routes each entry to update or create. Lookups and updates run
// one at a time in input order; pending creates are written afterwards,
// in bulk when there is more than one.
//
// An entry whose natural key matches an earlier entry still pending creation
// is not inserted. It is applied as an update to that entry's new record once
// the creates have run.
func reconcile[E SyncEntry](ctx context.Context, log *logger.Logger, coll SyncCollection[E], entries []E) ([]SyncOutcome, error) {
	outcomes := make([]SyncOutcome, len(entries))
	for i, e := range entries {
		outcomes[i] = SyncOutcome{ClientKey: e.CorrelationKey(), ReferenceID: e.ReferenceID()}
	}

	var pending, duplicates []int
	firstPending := map[string]int{}

	for i, e := range entries {
		key := e.NaturalKey()
		if _, ok := firstPending[key]; ok {
			duplicates = append(duplicates, i)
			continue
		}

		id, found, err := coll.FindID(ctx, e)
		if err != nil {
			return nil, err
		}
		if !found {
			firstPending[key] = i
			pending = append(pending, i)
			continue
		}

		if _, err := coll.Update(ctx, id, e); err != nil {
			return nil, err
		}
		outcomes[i].ID = id
	}

	ids, err := createPending(ctx, log, coll, entries, pending)
	if err != nil {
		return nil, err
	}
	for n, i := range pending {
		outcomes[i].ID = ids[n]
		outcomes[i].Created = true
	}

	for _, i := range duplicates {
		id := outcomes[firstPending[entries[i].NaturalKey()]].ID
		if _, err := coll.Update(ctx, id, entries[i]); err != nil {
			return nil, err
		}
		outcomes[i].ID = id
		log.Debug("folded duplicate natural key into earlier entry", "index", i, "id", id)
	}

	return outcomes, nil
}

// createPending returns one id per pending index, in the same order.
func createPending[E SyncEntry](ctx context.Context, log *logger.Logger, coll SyncCollection[E], entries []E, pending []int) ([]int64, error) {
	if len(pending) == 0 {
		return nil, nil
	}

	batch := make([]E, len(pending))
	for n, i := range pending {
		batch[n] = entries[i]
	}

	if len(batch) > 1 {
		ids, err := coll.CreateMany(ctx, batch)
		if err == nil && len(ids) == len(batch) && allResolved(ids) {
			return ids, nil
		}
		if err == nil {
			err = fmt.Errorf("got %d ids for %d entries", len(ids), len(batch))
		}
		log.Warn("bulk create failed, falling back to sequential creates", "count", len(batch), "error", err)
	}

	ids := make([]int64, len(batch))
	for n, e := range batch {
		id, err := coll.Create(ctx, e)
		if err != nil {
			return nil, err
		}
		if id <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedID, e.CorrelationKey())
		}
		ids[n] = id
	}
	return ids, nil
}

func allResolved(ids []int64) bool {
	for _, id := range ids {
		if id <= 0 {
			return false
		}
	}
	return true
}

func changeEvent(collection string, outcomes []SyncOutcome) models.ChangeEvent {
	ev := models.ChangeEvent{
		Collection: collection,
		Action:     models.ActionSync,
		IDs:        make([]int64, 0, len(outcomes)),
		At:         time.Now().UTC(),
	}
	seen := map[int64]bool{}
	for _, o := range outcomes {
		if o.Created {
			ev.Created++
		} else {
			ev.Updated++
		}
		if !seen[o.ID] {
			seen[o.ID] = true
			ev.IDs = append(ev.IDs, o.ID)
		}
	}
	return ev
}
