package events

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type EventStore interface {
	Insert(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, eventID uint64) (*Event, error)
	List(ctx context.Context, f EventFilter, p Page) ([]Event, int64, error)
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, eventID uint64) error
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const eventColumns = `event_id, title, description, location, starts_at, ends_at, signup_from, signup_until, published, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*Event, error) {
	var e Event
	var published int
	err := row.Scan(
		&e.EventID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
		&e.SignupFrom, &e.SignupUntil, &published, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Published = published != 0
	return &e, nil
}

func (s *Store) Insert(ctx context.Context, e *Event) error {
	const q = `
	INSERT INTO events (title, description, location, starts_at, ends_at, signup_from, signup_until, published)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	published := 0
	if e.Published {
		published = 1
	}
	res, err := s.db.ExecContext(ctx, q,
		e.Title, nullStrOrNil(e.Description), nullStrOrNil(e.Location),
		e.StartsAt, e.EndsAt, nullTimeOrNil(e.SignupFrom), nullTimeOrNil(e.SignupUntil), published,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	e.EventID = uint64(id)
	return nil
}

func (s *Store) GetByID(ctx context.Context, eventID uint64) (*Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE event_id = ?`
	e, err := scanEvent(s.db.QueryRowContext(ctx, q, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("event not found")
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, f EventFilter, p Page) ([]Event, int64, error) {
	where := ` WHERE 1=1`
	if f.UpcomingOnly {
		where += ` AND ends_at >= UTC_TIMESTAMP()`
	}
	if f.PublishedOnly {
		where += ` AND published = 1`
	}

	order := "ASC"
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := `SELECT ` + eventColumns + ` FROM events` + where +
		` ORDER BY starts_at ` + order + `, event_id ` + order + ` LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, q, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) Update(ctx context.Context, e *Event) error {
	const q = `
	UPDATE events
	SET title = ?, description = ?, location = ?, starts_at = ?, ends_at = ?,
	    signup_from = ?, signup_until = ?, published = ?
	WHERE event_id = ?`
	published := 0
	if e.Published {
		published = 1
	}
	res, err := s.db.ExecContext(ctx, q,
		e.Title, nullStrOrNil(e.Description), nullStrOrNil(e.Location),
		e.StartsAt, e.EndsAt, nullTimeOrNil(e.SignupFrom), nullTimeOrNil(e.SignupUntil),
		published, e.EventID,
	)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// unchanged payloads also report 0; tolerate and verify presence
		if _, getErr := s.GetByID(ctx, e.EventID); getErr != nil {
			return getErr
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, eventID uint64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE event_id = ?`, eventID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return ErrNotFound("event not found")
	}
	return nil
}

func nullStrOrNil(ns sql.NullString) any {
	if ns.Valid {
		return ns.String
	}
	return nil
}

func nullTimeOrNil(nt sql.NullTime) any {
	if nt.Valid {
		return nt.Time
	}
	return nil
}
