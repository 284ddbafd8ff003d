package events

import (
	"database/sql"
	"time"
)

// Event statuses are never stored; they are a function of the stored
// timestamps and the current time.
const (
	StatusPlanned = "planned"
	StatusOpen    = "open"
	StatusRunning = "running"
	StatusPast    = "past"
)

type Event struct {
	EventID     uint64
	Title       string
	Description sql.NullString
	Location    sql.NullString
	StartsAt    time.Time
	EndsAt      time.Time
	SignupFrom  sql.NullTime
	SignupUntil sql.NullTime
	Published   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DeriveStatus computes the lifecycle state at one point in time.
// planned -> open (signup window) -> running -> past.
func DeriveStatus(e *Event, now time.Time) string {
	if !now.Before(e.EndsAt) {
		return StatusPast
	}
	if !now.Before(e.StartsAt) {
		return StatusRunning
	}
	if !e.Published {
		return StatusPlanned
	}
	if e.SignupFrom.Valid && now.Before(e.SignupFrom.Time) {
		return StatusPlanned
	}
	if e.SignupUntil.Valid && now.After(e.SignupUntil.Time) {
		return StatusPlanned
	}
	return StatusOpen
}

type EventFilter struct {
	UpcomingOnly  bool
	PublishedOnly bool
}

type Page struct {
	Limit  int
	Offset int
	Order  string
}
