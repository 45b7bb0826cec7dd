package models

import (
	"fmt"
	"time"
)

type UserTopic struct {
	ID             int64      `json:"id"`
	TopicID        int64      `json:"topic"`
	ProfileID      int64      `json:"profile"`
	MemoryLocation *string    `json:"memoryLocation"`
	LastSession    *time.Time `json:"lastSession"`
	NextSession    *time.Time `json:"nextSession"`
	TimeTotal      *float64   `json:"timeTotal"`
	TimeRemaining  *float64   `json:"timeRemaining"`
	RevisionsDone  *float64   `json:"revisionsDone"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type UserTopicInput struct {
	TopicID        *int64     `json:"topic"`
	ProfileID      *int64     `json:"profile"`
	MemoryLocation *string    `json:"memoryLocation"`
	LastSession    *time.Time `json:"lastSession"`
	NextSession    *time.Time `json:"nextSession"`
	TimeTotal      *float64   `json:"timeTotal"`
	TimeRemaining  *float64   `json:"timeRemaining"`
	RevisionsDone  *float64   `json:"revisionsDone"`
}

func (in UserTopicInput) Validate(creating bool) map[string]string {
	fields := map[string]string{}
	validateRelation(fields, "topic", in.TopicID, creating)
	validateRelation(fields, "profile", in.ProfileID, creating)
	validateNonNegative(fields, "timeTotal", in.TimeTotal)
	validateNonNegative(fields, "timeRemaining", in.TimeRemaining)
	validateNonNegative(fields, "revisionsDone", in.RevisionsDone)
	return fields
}

func (in UserTopicInput) Fields() Patch {
	var p Patch
	p.SetInt("topic_id", in.TopicID)
	p.SetInt("profile_id", in.ProfileID)
	p.SetString("memory_location", in.MemoryLocation)
	p.SetTime("last_session", in.LastSession)
	p.SetTime("next_session", in.NextSession)
	p.SetFloat("time_total", in.TimeTotal)
	p.SetFloat("time_remaining", in.TimeRemaining)
	p.SetFloat("revisions_done", in.RevisionsDone)
	return p
}

// UserTopicEntry is one sanitized bulk-sync record. Its natural key is
// (TopicID, ProfileID).
type UserTopicEntry struct {
	ClientKey      string
	TopicID        int64
	ProfileID      int64
	MemoryLocation *string
	LastSession    *time.Time
	NextSession    *time.Time
	TimeTotal      *float64
	TimeRemaining  *float64
	RevisionsDone  *float64
}

func DefaultUserTopicClientKey(profileID, topicID int64) string {
	return fmt.Sprintf("%d:%d", profileID, topicID)
}

func (e UserTopicEntry) NaturalKey() string {
	return DefaultUserTopicClientKey(e.ProfileID, e.TopicID)
}

func (e UserTopicEntry) CorrelationKey() string { return e.ClientKey }

func (e UserTopicEntry) ReferenceID() int64 { return e.TopicID }

func (e UserTopicEntry) KeyFields() Patch {
	var p Patch
	p.Set("topic_id", e.TopicID)
	p.Set("profile_id", e.ProfileID)
	return p
}

func (e UserTopicEntry) CreateFields() Patch {
	p := e.KeyFields()
	e.setOptional(&p)
	return p
}

// UpdateFields may be empty, in which case the update is skipped.
func (e UserTopicEntry) UpdateFields() Patch {
	var p Patch
	e.setOptional(&p)
	return p
}

func (e UserTopicEntry) setOptional(p *Patch) {
	p.SetString("memory_location", e.MemoryLocation)
	p.SetTime("last_session", e.LastSession)
	p.SetTime("next_session", e.NextSession)
	p.SetFloat("time_total", e.TimeTotal)
	p.SetFloat("time_remaining", e.TimeRemaining)
	p.SetFloat("revisions_done", e.RevisionsDone)
}

type UserTopicSyncResult struct {
	ClientKey   string `json:"clientKey"`
	UserTopicID int64  `json:"userTopicId"`
	TopicID     int64  `json:"topicId"`
	Created     bool   `json:"created"`
}
