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

// Input is a typed create/update body. Fields holds only the values the
// caller sent.
type Input interface {
	Validate(creating bool) map[string]string
	Fields() models.Patch
}

type PageLimits struct {
	Default int
	Max     int
}

// ContentService implements the single-record routes of one collection.
type ContentService[T any, In Input] struct {
	store      database.Store
	resource   *repository.Resource[T]
	collection string
	label      string
	idOf       func(*T) int64
	publisher  events.Publisher
	log        *logger.Logger
	limits     PageLimits
}

func (s *ContentService[T, In]) Collection() string { return s.collection }

func (s *ContentService[T, In]) List(ctx context.Context, filters map[string]any, page, pageSize int) ([]*T, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.limits.Default
	}
	if pageSize > s.limits.Max {
		pageSize = s.limits.Max
	}

	items, total, err := s.resource.List(ctx, s.store, models.ListParams{Filters: filters, Page: page, PageSize: pageSize})
	if errors.Is(err, repository.ErrUnknownFilter) {
		return nil, models.Pagination{}, &BadRequestError{Message: err.Error()}
	}
	if err != nil {
		return nil, models.Pagination{}, err
	}

	return items, models.Pagination{
		Page:      page,
		PageSize:  pageSize,
		PageCount: (total + pageSize - 1) / pageSize,
		Total:     total,
	}, nil
}

func (s *ContentService[T, In]) Get(ctx context.Context, id int64) (*T, error) {
	item, err := s.resource.Get(ctx, s.store, id)
	if err != nil {
		return nil, s.storeError(err)
	}
	return item, nil
}

func (s *ContentService[T, In]) Create(ctx context.Context, in In) (*T, error) {
	if fields := in.Validate(true); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	var item *T
	err := s.store.WithinTx(ctx, func(tx database.Querier) error {
		var err error
		item, err = s.resource.Create(ctx, tx, in.Fields())
		return err
	})
	if err != nil {
		return nil, s.storeError(err)
	}

	s.publish(ctx, models.ActionCreate, item)
	return item, nil
}

func (s *ContentService[T, In]) Update(ctx context.Context, id int64, in In) (*T, error) {
	if fields := in.Validate(false); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	patch := in.Fields()
	var item *T
	err := s.store.WithinTx(ctx, func(tx database.Querier) error {
		var err error
		item, err = s.resource.Update(ctx, tx, id, patch)
		return err
	})
	if err != nil {
		return nil, s.storeError(err)
	}

	if patch.Len() > 0 {
		s.publish(ctx, models.ActionUpdate, item)
	}
	return item, nil
}

func (s *ContentService[T, In]) Delete(ctx context.Context, id int64) (*T, error) {
	var item *T
	err := s.store.WithinTx(ctx, func(tx database.Querier) error {
		var err error
		item, err = s.resource.Delete(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, s.storeError(err)
	}

	s.publish(ctx, models.ActionDelete, item)
	return item, nil
}

func (s *ContentService[T, In]) storeError(err error) error {
	mapped := storeError(s.store.Dialect(), err,
		fmt.Sprintf("%s not found", s.label),
		fmt.Sprintf("%s with the same key already exists", s.label))
	var notFound *NotFoundError
	var conflict *ConflictError
	if !errors.As(mapped, &notFound) && !errors.As(mapped, &conflict) {
		s.log.Error("content store operation failed", "collection", s.collection, "error", err)
	}
	return mapped
}

func (s *ContentService[T, In]) publish(ctx context.Context, action string, item *T) {
	s.publisher.Publish(ctx, models.ChangeEvent{
		Collection: s.collection,
		Action:     action,
		IDs:        []int64{s.idOf(item)},
		At:         time.Now().UTC(),
	})
}

// Contents groups the CRUD services of every collection.
type Contents struct {
	Conceptuals   *ContentService[models.Conceptual, models.ConceptualInput]
	Edges         *ContentService[models.Edge, models.EdgeInput]
	Exams         *ContentService[models.Exam, models.ExamInput]
	StudySessions *ContentService[models.StudySession, models.StudySessionInput]
	UserTopics    *ContentService[models.UserTopic, models.UserTopicInput]
}

func NewContents(store database.Store, publisher events.Publisher, log *logger.Logger, limits PageLimits) *Contents {
	if publisher == nil {
		publisher = events.Nop
	}
	if log == nil {
		log = logger.Nop()
	}
	if limits.Default < 1 {
		limits.Default = 25
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}

	return &Contents{
		Conceptuals: &ContentService[models.Conceptual, models.ConceptualInput]{
			store: store, resource: repository.Conceptuals, collection: "conceptuals", label: "Conceptual",
			idOf: func(c *models.Conceptual) int64 { return c.ID }, publisher: publisher, log: log, limits: limits,
		},
		Edges: &ContentService[models.Edge, models.EdgeInput]{
			store: store, resource: repository.Edges, collection: "edges", label: "Edge",
			idOf: func(e *models.Edge) int64 { return e.ID }, publisher: publisher, log: log, limits: limits,
		},
		Exams: &ContentService[models.Exam, models.ExamInput]{
			store: store, resource: repository.Exams, collection: "exams", label: "Exam",
			idOf: func(e *models.Exam) int64 { return e.ID }, publisher: publisher, log: log, limits: limits,
		},
		StudySessions: &ContentService[models.StudySession, models.StudySessionInput]{
			store: store, resource: repository.StudySessions, collection: CollectionStudySessions, label: "Study session",
			idOf: func(s *models.StudySession) int64 { return s.ID }, publisher: publisher, log: log, limits: limits,
		},
		UserTopics: &ContentService[models.UserTopic, models.UserTopicInput]{
			store: store, resource: repository.UserTopics, collection: CollectionUserTopics, label: "User topic",
			idOf: func(u *models.UserTopic) int64 { return u.ID }, publisher: publisher, log: log, limits: limits,
		},
	}
}
