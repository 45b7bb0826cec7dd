package models

import (
	"encoding/json"
	"time"
)

// Conceptual is the graph of concept nodes for a topic.
type Conceptual struct {
	ID        int64           `json:"id"`
	Nodes     json.RawMessage `json:"nodes"`
	TopicID   *int64          `json:"topic"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type ConceptualInput struct {
	Nodes   json.RawMessage `json:"nodes"`
	TopicID *int64          `json:"topic"`
}

func (in ConceptualInput) Validate(creating bool) map[string]string {
	fields := map[string]string{}
	validateRelation(fields, "topic", in.TopicID, false)
	return fields
}

func (in ConceptualInput) Fields() Patch {
	var p Patch
	p.SetJSON("nodes", in.Nodes)
	p.SetInt("topic_id", in.TopicID)
	return p
}

// Edge links two conceptual nodes by their node keys.
type Edge struct {
	ID           int64     `json:"id"`
	From         *string   `json:"from"`
	To           *string   `json:"to"`
	ConceptualID *int64    `json:"conceptual"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type EdgeInput struct {
	From         *string `json:"from"`
	To           *string `json:"to"`
	ConceptualID *int64  `json:"conceptual"`
}

func (in EdgeInput) Validate(creating bool) map[string]string {
	fields := map[string]string{}
	validateRelation(fields, "conceptual", in.ConceptualID, false)
	return fields
}

func (in EdgeInput) Fields() Patch {
	var p Patch
	p.SetString("from_node", in.From)
	p.SetString("to_node", in.To)
	p.SetInt("conceptual_id", in.ConceptualID)
	return p
}

type Exam struct {
	ID              int64           `json:"id"`
	Name            *string         `json:"name"`
	HighYieldTopics json.RawMessage `json:"highYieldTopics"`
	SubjectIDs      []int64         `json:"subjects"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type ExamInput struct {
	Name            *string         `json:"name"`
	HighYieldTopics json.RawMessage `json:"highYieldTopics"`
	SubjectIDs      []int64         `json:"subjects"`
}

func (in ExamInput) Validate(creating bool) map[string]string {
	fields := map[string]string{}
	for _, id := range in.SubjectIDs {
		if id <= 0 {
			fields["subjects"] = "must contain positive ids"
			break
		}
	}
	return fields
}

func (in ExamInput) Fields() Patch {
	var p Patch
	p.SetString("name", in.Name)
	p.SetJSON("high_yield_topics", in.HighYieldTopics)
	if in.SubjectIDs != nil {
		raw, _ := json.Marshal(in.SubjectIDs)
		p.Set("subject_ids", JSON(raw))
	}
	return p
}

func validateRelation(fields map[string]string, name string, id *int64, required bool) {
	switch {
	case id == nil && required:
		fields[name] = "is required"
	case id != nil && *id <= 0:
		fields[name] = "must be a positive id"
	}
}

func validateNonNegative(fields map[string]string, name string, v *float64) {
	if v != nil && *v < 0 {
		fields[name] = "must not be negative"
	}
}
