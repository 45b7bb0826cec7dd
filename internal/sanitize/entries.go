package sanitize

import (
	"fmt"

	"neurema-cms/internal/models"
)

type Reason string

const (
	ReasonNotObject           Reason = "not_an_object"
	ReasonMissingUserTopic    Reason = "missing_user_topic"
	ReasonMissingScheduledFor Reason = "missing_scheduled_for"
	ReasonMissingTopic        Reason = "missing_topic"
	ReasonMissingProfile      Reason = "missing_profile"
)

// Rejection explains why the record at Index was dropped from a batch.
type Rejection struct {
	Index  int
	Reason Reason
}

func (r Rejection) Error() string {
	return fmt.Sprintf("entry %d rejected: %s", r.Index, r.Reason)
}

// Result holds the accepted entries in input order plus the rejections.
type Result[E any] struct {
	Entries    []E
	Rejections []Rejection
}

// All sanitizes every item with fn. Items that are not JSON objects are
// rejected without calling fn.
func All[E any](items []any, fn func(map[string]any) (E, *Reason)) Result[E] {
	res := Result[E]{Entries: make([]E, 0, len(items))}
	for i, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			res.Rejections = append(res.Rejections, Rejection{Index: i, Reason: ReasonNotObject})
			continue
		}
		entry, reason := fn(raw)
		if reason != nil {
			res.Rejections = append(res.Rejections, Rejection{Index: i, Reason: *reason})
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	return res
}

func reject(r Reason) *Reason { return &r }

// identifier resolves a relation id from, in order, the flat "<name>Id"
// field, the nested "<relation>.id" and the bare "<relation>" value. The
// first readable value wins even when it is not a valid id. Callers drop
// ids below 1, negatives included, since serial ids start at 1.
func identifier(raw map[string]any, idField, relation string) (int64, bool) {
	if id, ok := Int(raw[idField]); ok {
		return id, true
	}
	if nested, ok := raw[relation].(map[string]any); ok {
		if id, ok := Int(nested["id"]); ok {
			return id, true
		}
	}
	return Int(raw[relation])
}

func clientKey(raw map[string]any, fallback string) string {
	v := raw["clientKey"]
	if truthy(v) {
		if s, ok := String(v); ok {
			return s
		}
	}
	return fallback
}

// StudySession sanitizes one study-session record. userTopicId and
// scheduledFor are required.
func StudySession(raw map[string]any) (models.StudySessionEntry, *Reason) {
	userTopicID, ok := identifier(raw, "userTopicId", "user_topic")
	if !ok || userTopicID <= 0 {
		return models.StudySessionEntry{}, reject(ReasonMissingUserTopic)
	}

	scheduledFor, ok := Time(raw["scheduledFor"])
	if !ok {
		return models.StudySessionEntry{}, reject(ReasonMissingScheduledFor)
	}

	return models.StudySessionEntry{
		ClientKey:            clientKey(raw, models.DefaultStudySessionClientKey(userTopicID, scheduledFor)),
		UserTopicID:          userTopicID,
		ScheduledFor:         scheduledFor,
		IsPaused:             Bool(raw["isPaused"], false),
		TimeTakenForRevision: optionalFloat(raw["timeTakenForRevision"]),
		TimeTakenForActivity: optionalFloat(raw["timeTakenForActivity"]),
		TimeAllotted:         optionalFloat(raw["timeAllotted"]),
		ScoreActivity:        optionalString(raw["scoreActivity"]),
		DifficultyLevel:      optionalString(raw["difficultyLevel"]),
	}, nil
}

// UserTopic sanitizes one user-topic record. topicId and profileId are
// required.
func UserTopic(raw map[string]any) (models.UserTopicEntry, *Reason) {
	topicID, ok := identifier(raw, "topicId", "topic")
	if !ok || topicID <= 0 {
		return models.UserTopicEntry{}, reject(ReasonMissingTopic)
	}

	profileID, ok := identifier(raw, "profileId", "profile")
	if !ok || profileID <= 0 {
		return models.UserTopicEntry{}, reject(ReasonMissingProfile)
	}

	return models.UserTopicEntry{
		ClientKey:      clientKey(raw, models.DefaultUserTopicClientKey(profileID, topicID)),
		TopicID:        topicID,
		ProfileID:      profileID,
		MemoryLocation: optionalString(raw["memoryLocation"]),
		LastSession:    optionalTime(raw["lastSession"]),
		NextSession:    optionalTime(raw["nextSession"]),
		TimeTotal:      optionalFloat(raw["timeTotal"]),
		TimeRemaining:  optionalFloat(raw["timeRemaining"]),
		RevisionsDone:  optionalFloat(raw["revisionsDone"]),
	}, nil
}
