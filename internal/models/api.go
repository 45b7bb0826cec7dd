package models

import "time"

// API error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

type ListMeta struct {
	Pagination Pagination `json:"pagination"`
}

// ListParams narrows a collection listing. Filters maps column names to the
// value they must equal.
type ListParams struct {
	Filters  map[string]any
	Page     int
	PageSize int
}

// Change actions carried by ChangeEvent.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionSync   = "bulk-sync"
)

// ChangeEvent is published after a committed write so live subscribers can
// refresh. Collection is the plural route name, e.g. "study-sessions".
type ChangeEvent struct {
	Collection string    `json:"collection"`
	Action     string    `json:"action"`
	IDs        []int64   `json:"ids"`
	Created    int       `json:"created,omitempty"`
	Updated    int       `json:"updated,omitempty"`
	At         time.Time `json:"at"`
}
