package models

import (
	"encoding/json"
	"time"
)

// JSON marks a patch value that must be bound as a JSON document.
type JSON []byte

// Patch is an ordered set of column assignments. Only columns that were set
// are written, so absent values never overwrite stored ones.
type Patch struct {
	columns []string
	values  []any
}

func (p *Patch) Set(column string, value any) {
	for i, c := range p.columns {
		if c == column {
			p.values[i] = value
			return
		}
	}
	p.columns = append(p.columns, column)
	p.values = append(p.values, value)
}

func (p *Patch) SetFloat(column string, v *float64) {
	if v != nil {
		p.Set(column, *v)
	}
}

func (p *Patch) SetString(column string, v *string) {
	if v != nil {
		p.Set(column, *v)
	}
}

func (p *Patch) SetInt(column string, v *int64) {
	if v != nil {
		p.Set(column, *v)
	}
}

func (p *Patch) SetBool(column string, v *bool) {
	if v != nil {
		p.Set(column, *v)
	}
}

func (p *Patch) SetTime(column string, v *time.Time) {
	if v != nil {
		p.Set(column, v.UTC())
	}
}

func (p *Patch) SetJSON(column string, raw json.RawMessage) {
	if raw != nil {
		p.Set(column, JSON(raw))
	}
}

func (p Patch) Len() int { return len(p.columns) }

func (p Patch) Columns() []string { return p.columns }

func (p Patch) Values() []any { return p.values }

func (p Patch) Get(column string) (any, bool) {
	for i, c := range p.columns {
		if c == column {
			return p.values[i], true
		}
	}
	return nil, false
}
