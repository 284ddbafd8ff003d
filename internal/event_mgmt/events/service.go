package events

import (
	"context"
	"database/sql"
	"time"
)

// EditGuard reports whether a user may currently edit an event.
// When the answer is no, holder names who blocks the edit.
type EditGuard interface {
	MayEdit(ctx context.Context, eventID uint64, userID string) (ok bool, holder string, err error)
}

type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type Service struct {
	store EventStore
	guard EditGuard
	clock Clock
}

func NewService(db *sql.DB, guard EditGuard) *Service {
	return &Service{store: NewStore(db), guard: guard, clock: realClock{}}
}

func NewServiceWithStore(store EventStore, guard EditGuard, clock Clock) *Service {
	if clock == nil {
		clock = realClock{}
	}
	return &Service{store: store, guard: guard, clock: clock}
}

func (s *Service) Create(ctx context.Context, req CreateEventRequest) (EventResponse, error) {
	startsAt, err := parseRFC3339(req.StartsAt, "starts_at")
	if err != nil {
		return EventResponse{}, err
	}
	endsAt, err := parseRFC3339(req.EndsAt, "ends_at")
	if err != nil {
		return EventResponse{}, err
	}
	signupFrom, err := parseOptRFC3339(req.SignupFrom, "signup_from")
	if err != nil {
		return EventResponse{}, err
	}
	signupUntil, err := parseOptRFC3339(req.SignupUntil, "signup_until")
	if err != nil {
		return EventResponse{}, err
	}

	e := &Event{
		Title:       req.Title,
		Description: nullStr(req.Description),
		Location:    nullStr(req.Location),
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		SignupFrom:  signupFrom,
		SignupUntil: signupUntil,
		Published:   req.Published,
	}
	if err := validateTimes(e); err != nil {
		return EventResponse{}, err
	}
	if err := s.store.Insert(ctx, e); err != nil {
		return EventResponse{}, err
	}

	created, err := s.store.GetByID(ctx, e.EventID)
	if err != nil {
		// insert succeeded; fall back to the in-memory copy
		created = e
	}
	return buildEventResponse(created, s.clock.Now()), nil
}

func (s *Service) Get(ctx context.Context, eventID uint64) (EventResponse, error) {
	e, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return EventResponse{}, err
	}
	return buildEventResponse(e, s.clock.Now()), nil
}

func (s *Service) List(ctx context.Context, f EventFilter, p Page) (EventListResponse, error) {
	list, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return EventListResponse{}, err
	}
	now := s.clock.Now()
	out := EventListResponse{Events: make([]EventResponse, 0, len(list)), Total: total}
	for i := range list {
		out.Events = append(out.Events, buildEventResponse(&list[i], now))
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, eventID uint64, userID string, req UpdateEventRequest) (EventResponse, error) {
	if err := s.checkGuard(ctx, eventID, userID); err != nil {
		return EventResponse{}, err
	}

	e, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return EventResponse{}, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return EventResponse{}, ErrInvalid("title must not be empty")
		}
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = nullStr(req.Description)
	}
	if req.Location != nil {
		e.Location = nullStr(req.Location)
	}
	if req.StartsAt != nil {
		t, err := parseRFC3339(*req.StartsAt, "starts_at")
		if err != nil {
			return EventResponse{}, err
		}
		e.StartsAt = t
	}
	if req.EndsAt != nil {
		t, err := parseRFC3339(*req.EndsAt, "ends_at")
		if err != nil {
			return EventResponse{}, err
		}
		e.EndsAt = t
	}
	if req.SignupFrom != nil {
		nt, err := parseOptRFC3339(req.SignupFrom, "signup_from")
		if err != nil {
			return EventResponse{}, err
		}
		e.SignupFrom = nt
	}
	if req.SignupUntil != nil {
		nt, err := parseOptRFC3339(req.SignupUntil, "signup_until")
		if err != nil {
			return EventResponse{}, err
		}
		e.SignupUntil = nt
	}
	if req.Published != nil {
		e.Published = *req.Published
	}
	if err := validateTimes(e); err != nil {
		return EventResponse{}, err
	}

	if err := s.store.Update(ctx, e); err != nil {
		return EventResponse{}, err
	}

	updated, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		updated = e
	}
	return buildEventResponse(updated, s.clock.Now()), nil
}

func (s *Service) Delete(ctx context.Context, eventID uint64, userID string) error {
	if err := s.checkGuard(ctx, eventID, userID); err != nil {
		return err
	}
	return s.store.Delete(ctx, eventID)
}

func (s *Service) checkGuard(ctx context.Context, eventID uint64, userID string) error {
	if s.guard == nil {
		return nil
	}
	ok, holder, err := s.guard.MayEdit(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked(holder)
	}
	return nil
}

func validateTimes(e *Event) error {
	if !e.EndsAt.After(e.StartsAt) {
		return ErrInvalid("ends_at must be after starts_at")
	}
	if e.SignupFrom.Valid && e.SignupUntil.Valid && !e.SignupUntil.Time.After(e.SignupFrom.Time) {
		return ErrInvalid("signup_until must be after signup_from")
	}
	return nil
}

func parseRFC3339(s, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalid(field + " must be RFC3339")
	}
	return t.UTC(), nil
}

func parseOptRFC3339(s *string, field string) (sql.NullTime, error) {
	if s == nil || *s == "" {
		return sql.NullTime{}, nil
	}
	t, err := parseRFC3339(*s, field)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

func nullStr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
