package events

import "time"

type CreateEventRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	StartsAt    string  `json:"starts_at" binding:"required"` // RFC3339
	EndsAt      string  `json:"ends_at" binding:"required"`
	SignupFrom  *string `json:"signup_from,omitempty"`
	SignupUntil *string `json:"signup_until,omitempty"`
	Published   bool    `json:"published"`
}

type UpdateEventRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	StartsAt    *string `json:"starts_at,omitempty"`
	EndsAt      *string `json:"ends_at,omitempty"`
	SignupFrom  *string `json:"signup_from,omitempty"`
	SignupUntil *string `json:"signup_until,omitempty"`
	Published   *bool   `json:"published,omitempty"`
}

type EventResponse struct {
	EventID     uint64     `json:"event_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	SignupFrom  *time.Time `json:"signup_from,omitempty"`
	SignupUntil *time.Time `json:"signup_until,omitempty"`
	Published   bool       `json:"published"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int64           `json:"total"`
}

func buildEventResponse(e *Event, now time.Time) EventResponse {
	resp := EventResponse{
		EventID:   e.EventID,
		Title:     e.Title,
		StartsAt:  e.StartsAt,
		EndsAt:    e.EndsAt,
		Published: e.Published,
		Status:    DeriveStatus(e, now),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Description.Valid {
		v := e.Description.String
		resp.Description = &v
	}
	if e.Location.Valid {
		v := e.Location.String
		resp.Location = &v
	}
	if e.SignupFrom.Valid {
		v := e.SignupFrom.Time
		resp.SignupFrom = &v
	}
	if e.SignupUntil.Valid {
		v := e.SignupUntil.Time
		resp.SignupUntil = &v
	}
	return resp
}
