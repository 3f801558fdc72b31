// Package audit provides the created/modified stamps every record carries.
package audit

import "time"

// Fields is embedded in every entity. Created* is set once when the record is
// added; Modified* is refreshed by each mutating call.
type Fields struct {
	CreatedDate  time.Time  `json:"created_date"`
	CreatedBy    string     `json:"created_by"`
	ModifiedDate *time.Time `json:"modified_date,omitempty"`
	ModifiedBy   *string    `json:"modified_by,omitempty"`
}

// Created stamps the creation fields in UTC.
func (f *Fields) Created(actor string, now time.Time) {
	f.CreatedDate = now.UTC()
	f.CreatedBy = actor
}

// Modified stamps the modification fields in UTC.
func (f *Fields) Modified(actor string, now time.Time) {
	t := now.UTC()
	f.ModifiedDate = &t
	f.ModifiedBy = &actor
}

// Actor returns actor, or "system" when it is blank.
func Actor(actor string) string {
	if actor == "" {
		return "system"
	}
	return actor
}
