package locks

import (
	"context"
	"database/sql"
	"errors"
	"time"

	mysql "github.com/go-sql-driver/mysql"
)

// errDuplicate signals a lost race on first insert.
var errDuplicate = errors.New("lock row already exists")

type LockStore interface {
	Get(ctx context.Context, eventID uint64) (*Lock, error)
	Insert(ctx context.Context, l *Lock) error
	// UpdateIfOwnerOrExpired takes over an existing row only when the
	// caller already owns it or it is older than cutoff. Reports whether
	// the row was taken.
	UpdateIfOwnerOrExpired(ctx context.Context, eventID uint64, userID string, now, cutoff time.Time) (bool, error)
	DeleteIfOwner(ctx context.Context, eventID uint64, userID string) (bool, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) LockStore { return &Store{db: db} }

func (s *Store) Get(ctx context.Context, eventID uint64) (*Lock, error) {
	const q = `SELECT event_id, locked_by, locked_at FROM event_locks WHERE event_id = ?`
	var l Lock
	err := s.db.QueryRowContext(ctx, q, eventID).Scan(&l.EventID, &l.LockedBy, &l.LockedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) Insert(ctx context.Context, l *Lock) error {
	const q = `INSERT INTO event_locks (event_id, locked_by, locked_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, l.EventID, l.LockedBy, l.LockedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return errDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) UpdateIfOwnerOrExpired(ctx context.Context, eventID uint64, userID string, now, cutoff time.Time) (bool, error) {
	// The WHERE clause decides the race: a concurrent acquirer who
	// committed first leaves 0 affected rows here.
	const q = `
	UPDATE event_locks
	SET locked_by = ?, locked_at = ?
	WHERE event_id = ? AND (locked_by = ? OR locked_at < ?)`
	res, err := s.db.ExecContext(ctx, q, userID, now, eventID, userID, cutoff)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}

func (s *Store) DeleteIfOwner(ctx context.Context, eventID uint64, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM event_locks WHERE event_id = ? AND locked_by = ?`, eventID, userID)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}
