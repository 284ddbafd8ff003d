package helpers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	mysql "github.com/go-sql-driver/mysql"
)

type SignupStore interface {
	ListHelperTypes(ctx context.Context, includeDisabled bool) ([]HelperType, error)
	CreateSlot(ctx context.Context, slot *HelperSlot) error
	ListSlotsByEvent(ctx context.Context, eventID uint64) ([]SlotWithCounts, error)
	ExecSignup(ctx context.Context, eventID, slotID uint64, userID, signupULID string, now time.Time) (*Signup, error)
	GetSignupByULID(ctx context.Context, ulid string) (*Signup, error)
	ExecCancel(ctx context.Context, signupID uint64) error
	ExecPromote(ctx context.Context, signupID uint64) (*Signup, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) ListHelperTypes(ctx context.Context, includeDisabled bool) ([]HelperType, error) {
	q := `SELECT helper_type_id, name, is_disabled FROM event_helper_types`
	if !includeDisabled {
		q += ` WHERE is_disabled = 0`
	}
	q += ` ORDER BY helper_type_id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]HelperType, 0, 16)
	for rows.Next() {
		var ht HelperType
		var disabled int
		if err := rows.Scan(&ht.HelperTypeID, &ht.Name, &disabled); err != nil {
			return nil, err
		}
		ht.IsDisabled = disabled != 0
		res = append(res, ht)
	}
	return res, rows.Err()
}

func (s *Store) CreateSlot(ctx context.Context, slot *HelperSlot) error {
	const q = `
	INSERT INTO event_helper_slots (event_id, helper_type_id, start_time, end_time, quantity_needed)
	VALUES (?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		slot.EventID, slot.HelperTypeID, slot.StartTime, slot.EndTime, slot.QuantityNeeded)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1452 {
			return ErrInvalid("invalid event_id or helper_type_id")
		}
		return err
	}
	id, _ := res.LastInsertId()
	slot.SlotID = uint64(id)
	return nil
}

func (s *Store) ListSlotsByEvent(ctx context.Context, eventID uint64) ([]SlotWithCounts, error) {
	const q = `
	SELECT
		sl.slot_id, sl.event_id, sl.helper_type_id, sl.start_time, sl.end_time, sl.quantity_needed,
		COALESCE(SUM(su.status = 'confirmed'), 0),
		COALESCE(SUM(su.status = 'waitlist'), 0)
	FROM event_helper_slots sl
	LEFT JOIN event_signups su ON su.slot_id = sl.slot_id
	WHERE sl.event_id = ?
	GROUP BY sl.slot_id
	ORDER BY sl.start_time, sl.slot_id`

	rows, err := s.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SlotWithCounts
	for rows.Next() {
		var sc SlotWithCounts
		if err := rows.Scan(
			&sc.SlotID, &sc.EventID, &sc.HelperTypeID, &sc.StartTime, &sc.EndTime,
			&sc.QuantityNeeded, &sc.Confirmed, &sc.Waitlisted,
		); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func lockSlotRow(ctx context.Context, tx *sql.Tx, slotID uint64) (*HelperSlot, error) {
	const q = `
	SELECT slot_id, event_id, helper_type_id, start_time, end_time, quantity_needed
	FROM event_helper_slots WHERE slot_id = ? FOR UPDATE`
	var sl HelperSlot
	err := tx.QueryRowContext(ctx, q, slotID).Scan(
		&sl.SlotID, &sl.EventID, &sl.HelperTypeID, &sl.StartTime, &sl.EndTime, &sl.QuantityNeeded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("slot not found")
	}
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func countConfirmed(ctx context.Context, tx *sql.Tx, slotID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_signups WHERE slot_id = ? AND status = 'confirmed'`, slotID).Scan(&n)
	return n, err
}

// ExecSignup inserts one signup with the capacity decision made under the
// slot row lock, so two near-capacity signups cannot both land confirmed.
func (s *Store) ExecSignup(ctx context.Context, eventID, slotID uint64, userID, signupULID string, now time.Time) (*Signup, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	slot, err := lockSlotRow(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.EventID != eventID {
		err = ErrInvalid("slot does not belong to this event")
		return nil, err
	}

	// one active signup per (slot, user); a cancelled row is revived
	var existing Signup
	err = tx.QueryRowContext(ctx, `
	SELECT signup_id, signup_ulid, slot_id, event_id, user_id, status, created_at
	FROM event_signups WHERE slot_id = ? AND user_id = ? FOR UPDATE`, slotID, userID).Scan(
		&existing.SignupID, &existing.SignupULID, &existing.SlotID, &existing.EventID,
		&existing.UserID, &existing.Status, &existing.CreatedAt,
	)
	switch {
	case err == nil:
		if existing.Status != StatusCancelled {
			err = ErrConflict("already signed up for this slot")
			return nil, err
		}
		confirmed, cntErr := countConfirmed(ctx, tx, slotID)
		if cntErr != nil {
			err = cntErr
			return nil, err
		}
		existing.Status = decideStatus(confirmed, slot.QuantityNeeded)
		existing.CreatedAt = now
		if _, err = tx.ExecContext(ctx,
			`UPDATE event_signups SET status = ?, created_at = ? WHERE signup_id = ?`,
			existing.Status, now, existing.SignupID,
		); err != nil {
			return nil, err
		}
		if err = tx.Commit(); err != nil {
			return nil, err
		}
		return &existing, nil

	case errors.Is(err, sql.ErrNoRows):
		confirmed, cntErr := countConfirmed(ctx, tx, slotID)
		if cntErr != nil {
			err = cntErr
			return nil, err
		}
		su := &Signup{
			SignupULID: signupULID,
			SlotID:     slotID,
			EventID:    eventID,
			UserID:     userID,
			Status:     decideStatus(confirmed, slot.QuantityNeeded),
			CreatedAt:  now,
		}
		res, insErr := tx.ExecContext(ctx, `
		INSERT INTO event_signups (signup_ulid, slot_id, event_id, user_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
			su.SignupULID, su.SlotID, su.EventID, su.UserID, su.Status, su.CreatedAt)
		if insErr != nil {
			var me *mysql.MySQLError
			if errors.As(insErr, &me) && me.Number == 1062 {
				err = ErrConflict("already signed up for this slot")
			} else {
				err = insErr
			}
			return nil, err
		}
		id, _ := res.LastInsertId()
		su.SignupID = uint64(id)
		if err = tx.Commit(); err != nil {
			return nil, err
		}
		return su, nil

	default:
		return nil, err
	}
}

func (s *Store) GetSignupByULID(ctx context.Context, ulid string) (*Signup, error) {
	const q = `
	SELECT signup_id, signup_ulid, slot_id, event_id, user_id, status, created_at
	FROM event_signups WHERE signup_ulid = ?`
	var su Signup
	err := s.db.QueryRowContext(ctx, q, ulid).Scan(
		&su.SignupID, &su.SignupULID, &su.SlotID, &su.EventID, &su.UserID, &su.Status, &su.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("signup not found")
	}
	if err != nil {
		return nil, err
	}
	return &su, nil
}

func (s *Store) ExecCancel(ctx context.Context, signupID uint64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE event_signups SET status = ? WHERE signup_id = ? AND status <> ?`,
		StatusCancelled, signupID, StatusCancelled)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return ErrConflict("signup is already cancelled")
	}
	return nil
}

// ExecPromote flips a waitlisted signup to confirmed, re-checking capacity
// under the slot row lock. Promotion never happens automatically on cancel.
func (s *Store) ExecPromote(ctx context.Context, signupID uint64) (*Signup, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var su Signup
	err = tx.QueryRowContext(ctx, `
	SELECT signup_id, signup_ulid, slot_id, event_id, user_id, status, created_at
	FROM event_signups WHERE signup_id = ? FOR UPDATE`, signupID).Scan(
		&su.SignupID, &su.SignupULID, &su.SlotID, &su.EventID, &su.UserID, &su.Status, &su.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound("signup not found")
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if su.Status != StatusWaitlist {
		err = ErrConflict("only waitlisted signups can be promoted")
		return nil, err
	}

	slot, err := lockSlotRow(ctx, tx, su.SlotID)
	if err != nil {
		return nil, err
	}
	confirmed, err := countConfirmed(ctx, tx, su.SlotID)
	if err != nil {
		return nil, err
	}
	if confirmed >= slot.QuantityNeeded {
		err = ErrSlotFull()
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE event_signups SET status = ? WHERE signup_id = ?`, StatusConfirmed, su.SignupID,
	); err != nil {
		return nil, err
	}
	su.Status = StatusConfirmed

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return &su, nil
}
