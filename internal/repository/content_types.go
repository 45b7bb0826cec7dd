package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"neurema-cms/internal/database"
	"neurema-cms/internal/models"
)

var Conceptuals = &Resource[models.Conceptual]{
	Table:   "conceptuals",
	Columns: []string{"id", "nodes", "topic_id", "created_at", "updated_at"},
	Filters: []string{"topic_id"},
	Scan:    scanConceptual,
}

var Edges = &Resource[models.Edge]{
	Table:   "edges",
	Columns: []string{"id", "from_node", "to_node", "conceptual_id", "created_at", "updated_at"},
	Filters: []string{"conceptual_id"},
	Scan:    scanEdge,
}

var Exams = &Resource[models.Exam]{
	Table:   "exams",
	Columns: []string{"id", "name", "high_yield_topics", "subject_ids", "created_at", "updated_at"},
	Scan:    scanExam,
}

var UserTopics = &Resource[models.UserTopic]{
	Table: "user_topics",
	Columns: []string{
		"id", "topic_id", "profile_id", "memory_location", "last_session", "next_session",
		"time_total", "time_remaining", "revisions_done", "created_at", "updated_at",
	},
	Filters: []string{"topic_id", "profile_id"},
	Scan:    scanUserTopic,
}

var StudySessions = &Resource[models.StudySession]{
	Table: "study_sessions",
	Columns: []string{
		"id", "user_topic_id", "scheduled_for", "is_paused", "time_taken_for_revision",
		"time_taken_for_activity", "time_allotted", "score_activity", "difficulty_level",
		"created_at", "updated_at",
	},
	Filters: []string{"user_topic_id"},
	Scan:    scanStudySession,
}

func scanConceptual(row database.Row) (*models.Conceptual, error) {
	var c models.Conceptual
	var nodes []byte
	if err := row.Scan(&c.ID, &nodes, &c.TopicID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Nodes = rawJSON(nodes)
	c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()
	return &c, nil
}

func scanEdge(row database.Row) (*models.Edge, error) {
	var e models.Edge
	if err := row.Scan(&e.ID, &e.From, &e.To, &e.ConceptualID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.CreatedAt, e.UpdatedAt = e.CreatedAt.UTC(), e.UpdatedAt.UTC()
	return &e, nil
}

func scanExam(row database.Row) (*models.Exam, error) {
	var e models.Exam
	var highYield, subjects []byte
	if err := row.Scan(&e.ID, &e.Name, &highYield, &subjects, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.HighYieldTopics = rawJSON(highYield)
	if len(subjects) > 0 {
		if err := json.Unmarshal(subjects, &e.SubjectIDs); err != nil {
			return nil, fmt.Errorf("failed to decode exam %d subjects: %w", e.ID, err)
		}
	}
	e.CreatedAt, e.UpdatedAt = e.CreatedAt.UTC(), e.UpdatedAt.UTC()
	return &e, nil
}

func scanUserTopic(row database.Row) (*models.UserTopic, error) {
	var ut models.UserTopic
	err := row.Scan(
		&ut.ID, &ut.TopicID, &ut.ProfileID, &ut.MemoryLocation, &ut.LastSession, &ut.NextSession,
		&ut.TimeTotal, &ut.TimeRemaining, &ut.RevisionsDone, &ut.CreatedAt, &ut.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ut.LastSession = utcPtr(ut.LastSession)
	ut.NextSession = utcPtr(ut.NextSession)
	ut.CreatedAt, ut.UpdatedAt = ut.CreatedAt.UTC(), ut.UpdatedAt.UTC()
	return &ut, nil
}

func scanStudySession(row database.Row) (*models.StudySession, error) {
	var s models.StudySession
	err := row.Scan(
		&s.ID, &s.UserTopicID, &s.ScheduledFor, &s.IsPaused, &s.TimeTakenForRevision,
		&s.TimeTakenForActivity, &s.TimeAllotted, &s.ScoreActivity, &s.DifficultyLevel,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ScheduledFor = s.ScheduledFor.UTC()
	s.CreatedAt, s.UpdatedAt = s.CreatedAt.UTC(), s.UpdatedAt.UTC()
	return &s, nil
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
