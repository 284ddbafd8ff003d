package mailqueue

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// The queue table is the boundary to the mailer; delivery runs outside of
// this application.
type Message struct {
	MessageID string
	Recipient string // opaque user id, resolved to an address by the mailer
	Subject   string
	Body      string
	Status    string
	CreatedAt time.Time
}

const StatusPending = "pending"

type Queue interface {
	Enqueue(ctx context.Context, recipient, subject, body string) error
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Enqueue(ctx context.Context, recipient, subject, body string) error {
	const q = `
	INSERT INTO mail_queue (message_id, recipient, subject, body, status)
	VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, uuid.NewString(), recipient, subject, body, StatusPending)
	return err
}
