package models

import (
	"fmt"
	"time"
)

type StudySession struct {
	ID                   int64     `json:"id"`
	UserTopicID          int64     `json:"userTopic"`
	ScheduledFor         time.Time `json:"scheduledFor"`
	IsPaused             bool      `json:"isPaused"`
	TimeTakenForRevision *float64  `json:"timeTakenForRevision"`
	TimeTakenForActivity *float64  `json:"timeTakenForActivity"`
	TimeAllotted         *float64  `json:"timeAllotted"`
	ScoreActivity        *string   `json:"scoreActivity"`
	DifficultyLevel      *string   `json:"difficultyLevel"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// StudySessionInput is the body of the single-record create and update
// routes. Nil fields are left untouched.
type StudySessionInput struct {
	UserTopicID          *int64     `json:"userTopic"`
	ScheduledFor         *time.Time `json:"scheduledFor"`
	IsPaused             *bool      `json:"isPaused"`
	TimeTakenForRevision *float64   `json:"timeTakenForRevision"`
	TimeTakenForActivity *float64   `json:"timeTakenForActivity"`
	TimeAllotted         *float64   `json:"timeAllotted"`
	ScoreActivity        *string    `json:"scoreActivity"`
	DifficultyLevel      *string    `json:"difficultyLevel"`
}

func (in StudySessionInput) Validate(creating bool) map[string]string {
	fields := map[string]string{}
	if creating && in.UserTopicID == nil {
		fields["userTopic"] = "is required"
	} else if in.UserTopicID != nil && *in.UserTopicID <= 0 {
		fields["userTopic"] = "must be a positive id"
	}
	if creating && in.ScheduledFor == nil {
		fields["scheduledFor"] = "is required"
	}
	validateNonNegative(fields, "timeTakenForRevision", in.TimeTakenForRevision)
	validateNonNegative(fields, "timeTakenForActivity", in.TimeTakenForActivity)
	validateNonNegative(fields, "timeAllotted", in.TimeAllotted)
	return fields
}

func (in StudySessionInput) Fields() Patch {
	var p Patch
	p.SetInt("user_topic_id", in.UserTopicID)
	if in.ScheduledFor != nil {
		p.Set("scheduled_for", NormalizeTime(*in.ScheduledFor))
	}
	p.SetBool("is_paused", in.IsPaused)
	p.SetFloat("time_taken_for_revision", in.TimeTakenForRevision)
	p.SetFloat("time_taken_for_activity", in.TimeTakenForActivity)
	p.SetFloat("time_allotted", in.TimeAllotted)
	p.SetString("score_activity", in.ScoreActivity)
	p.SetString("difficulty_level", in.DifficultyLevel)
	return p
}

// StudySessionEntry is one sanitized bulk-sync record. Its natural key is
// (UserTopicID, ScheduledFor).
type StudySessionEntry struct {
	ClientKey            string
	UserTopicID          int64
	ScheduledFor         time.Time
	IsPaused             bool
	TimeTakenForRevision *float64
	TimeTakenForActivity *float64
	TimeAllotted         *float64
	ScoreActivity        *string
	DifficultyLevel      *string
}

// DefaultStudySessionClientKey is the correlation key used when the caller
// did not send one.
func DefaultStudySessionClientKey(userTopicID int64, scheduledFor time.Time) string {
	return fmt.Sprintf("%d:%s", userTopicID, FormatISOTime(scheduledFor))
}

func (e StudySessionEntry) NaturalKey() string {
	return DefaultStudySessionClientKey(e.UserTopicID, e.ScheduledFor)
}

func (e StudySessionEntry) CorrelationKey() string { return e.ClientKey }

func (e StudySessionEntry) ReferenceID() int64 { return e.UserTopicID }

func (e StudySessionEntry) KeyFields() Patch {
	var p Patch
	p.Set("user_topic_id", e.UserTopicID)
	p.Set("scheduled_for", NormalizeTime(e.ScheduledFor))
	return p
}

func (e StudySessionEntry) CreateFields() Patch {
	p := e.KeyFields()
	p.Set("is_paused", e.IsPaused)
	e.setOptional(&p)
	return p
}

// UpdateFields always carries isPaused and scheduledFor, so a study-session
// update is never empty.
func (e StudySessionEntry) UpdateFields() Patch {
	var p Patch
	p.Set("is_paused", e.IsPaused)
	p.Set("scheduled_for", NormalizeTime(e.ScheduledFor))
	e.setOptional(&p)
	return p
}

func (e StudySessionEntry) setOptional(p *Patch) {
	p.SetFloat("time_taken_for_revision", e.TimeTakenForRevision)
	p.SetFloat("time_taken_for_activity", e.TimeTakenForActivity)
	p.SetFloat("time_allotted", e.TimeAllotted)
	p.SetString("score_activity", e.ScoreActivity)
	p.SetString("difficulty_level", e.DifficultyLevel)
}

type StudySessionSyncResult struct {
	ClientKey   string `json:"clientKey"`
	SessionID   int64  `json:"sessionId"`
	UserTopicID int64  `json:"userTopicId"`
	Created     bool   `json:"created"`
}
