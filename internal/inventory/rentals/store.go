package rentals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// lockItemRow reads the item quantity under FOR UPDATE. No is_deleted
// filter on purpose: open rentals on a soft-deleted item must still be
// returnable.
func lockItemRow(ctx context.Context, tx *sql.Tx, itemID uint64) (int, error) {
	const q = `SELECT quantity FROM inventory_items WHERE item_id = ? FOR UPDATE`
	var qty int
	if err := tx.QueryRowContext(ctx, q, itemID).Scan(&qty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound("item not found")
		}
		return 0, err
	}
	return qty, nil
}

func updateItemQuantity(ctx context.Context, tx *sql.Tx, itemID uint64, delta int) error {
	res, err := tx.ExecContext(ctx, `UPDATE inventory_items SET quantity = quantity + ? WHERE item_id = ?`, delta, itemID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return ErrInternal("failed to update inventory_items.quantity")
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, itemID uint64, changeType string, oldStock, newStock int, reason, details, actor string) error {
	const q = `
	INSERT INTO inventory_history
	(item_id, change_type, old_stock, new_stock, change_amount, reason, details, actor_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var det any
	if details != "" {
		det = details
	}
	_, err := tx.ExecContext(ctx, q, itemID, changeType, oldStock, newStock, newStock-oldStock, reason, det, actor)
	return err
}

// ExecCheckout reserves stock for a borrower: lock the item row, check the
// quantity, decrement, insert the rental and the checkout history row. One
// tx, so quantity and ledger never diverge.
func (s *Store) ExecCheckout(ctx context.Context, r *Rental, actor string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var oldStock, deleted int
	if err = tx.QueryRowContext(ctx,
		`SELECT quantity, is_deleted FROM inventory_items WHERE item_id = ? FOR UPDATE`, r.ItemID,
	).Scan(&oldStock, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound("item not found")
		}
		return err
	}
	if deleted != 0 {
		err = ErrConflict("item is deleted")
		return err
	}
	if oldStock < r.Amount {
		err = ErrInsufficientStock(oldStock, r.Amount)
		return err
	}

	if err = updateItemQuantity(ctx, tx, r.ItemID, -r.Amount); err != nil {
		return err
	}

	const q = `
	INSERT INTO rentals
	(rental_ulid, item_id, user_id, amount, purpose, rented_at, expected_return, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		r.RentalULID, r.ItemID, r.UserID, r.Amount,
		nullStrOrNil(r.Purpose), r.RentedAt, nullTimeOrNil(r.ExpectedReturn), StatusActive,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	r.RentalID = uint64(id)
	r.Status = StatusActive

	reason := "checkout"
	details := fmt.Sprintf("rental %s for %s", r.RentalULID, r.UserID)
	if err = insertHistory(ctx, tx, r.ItemID, "checkout", oldStock, oldStock-r.Amount, reason, details, actor); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// ExecCheckin applies one (possibly partial) return. The good portion goes
// back to stock with a `checkin` row; the defective portion is recorded as
// a `writeoff` row without restoring stock. Closes the rental when nothing
// stays outstanding.
func (s *Store) ExecCheckin(ctx context.Context, rentalID uint64, goodQty, defectQty int, defectReason, actor string, now time.Time) (*Rental, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const lockQ = `
	SELECT rental_id, rental_ulid, item_id, user_id, amount, purpose, rented_at,
	       expected_return, actual_return, returned_quantity, writeoff_quantity, status, defect_notes
	FROM rentals WHERE rental_id = ? FOR UPDATE`
	var r Rental
	err = tx.QueryRowContext(ctx, lockQ, rentalID).Scan(
		&r.RentalID, &r.RentalULID, &r.ItemID, &r.UserID, &r.Amount, &r.Purpose, &r.RentedAt,
		&r.ExpectedReturn, &r.ActualReturn, &r.ReturnedQuantity, &r.WriteoffQuantity, &r.Status, &r.DefectNotes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound("rental not found")
		}
		return nil, err
	}
	if !r.Open() {
		err = ErrConflict("rental is already closed")
		return nil, err
	}

	plan, err := planCheckin(r.Amount, r.ReturnedQuantity, r.WriteoffQuantity, goodQty, defectQty)
	if err != nil {
		return nil, err
	}

	oldStock, err := lockItemRow(ctx, tx, r.ItemID)
	if err != nil {
		return nil, err
	}

	if plan.Restore > 0 {
		if err = updateItemQuantity(ctx, tx, r.ItemID, plan.Restore); err != nil {
			return nil, err
		}
		details := fmt.Sprintf("rental %s", r.RentalULID)
		if err = insertHistory(ctx, tx, r.ItemID, "checkin", oldStock, oldStock+plan.Restore, "checkin", details, actor); err != nil {
			return nil, err
		}
	}

	if plan.Writeoff > 0 {
		// quantity stays where it is; change_amount 0 keeps the
		// conservation invariant (the checkout row already accounts
		// for the missing stock).
		afterRestore := oldStock + plan.Restore
		reason := defectReason
		if reason == "" {
			reason = "writeoff"
		}
		details := fmt.Sprintf("rental %s: %d written off", r.RentalULID, plan.Writeoff)
		if err = insertHistory(ctx, tx, r.ItemID, "writeoff", afterRestore, afterRestore, reason, details, actor); err != nil {
			return nil, err
		}
	}

	r.ReturnedQuantity += plan.Restore
	r.WriteoffQuantity += plan.Writeoff
	if defectReason != "" {
		if r.DefectNotes.Valid && r.DefectNotes.String != "" {
			r.DefectNotes.String += "; " + defectReason
		} else {
			r.DefectNotes = sql.NullString{String: defectReason, Valid: true}
		}
	}
	if plan.Closes {
		r.Status = plan.FinalStatus
		r.ActualReturn = sql.NullTime{Time: now, Valid: true}
	}

	const updQ = `
	UPDATE rentals
	SET returned_quantity = ?, writeoff_quantity = ?, status = ?, actual_return = ?, defect_notes = ?
	WHERE rental_id = ?`
	if _, err = tx.ExecContext(ctx, updQ,
		r.ReturnedQuantity, r.WriteoffQuantity, r.Status,
		nullTimeOrNil(r.ActualReturn), nullStrOrNil(r.DefectNotes), r.RentalID,
	); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return &r, nil
}

const rentalColumns = `
	r.rental_id, r.rental_ulid, r.item_id, i.name, r.user_id, r.amount, r.purpose, r.rented_at,
	r.expected_return, r.actual_return, r.returned_quantity, r.writeoff_quantity, r.status, r.defect_notes`

func scanRental(row interface{ Scan(...any) error }) (*Rental, error) {
	var r Rental
	err := row.Scan(
		&r.RentalID, &r.RentalULID, &r.ItemID, &r.ItemName, &r.UserID, &r.Amount, &r.Purpose, &r.RentedAt,
		&r.ExpectedReturn, &r.ActualReturn, &r.ReturnedQuantity, &r.WriteoffQuantity, &r.Status, &r.DefectNotes,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetRentalByID(ctx context.Context, rentalID uint64) (*Rental, error) {
	q := `SELECT` + rentalColumns + `
	FROM rentals r JOIN inventory_items i ON i.item_id = r.item_id
	WHERE r.rental_id = ?`
	r, err := scanRental(s.db.QueryRowContext(ctx, q, rentalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("rental not found")
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) GetRentalByULID(ctx context.Context, ulid string) (*Rental, error) {
	q := `SELECT` + rentalColumns + `
	FROM rentals r JOIN inventory_items i ON i.item_id = r.item_id
	WHERE r.rental_ulid = ?`
	r, err := scanRental(s.db.QueryRowContext(ctx, q, ulid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("rental not found")
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) ListRentals(ctx context.Context, f RentalFilter, p Page) ([]Rental, int64, error) {
	where := ` WHERE 1=1`
	var args []any
	if f.UserID != nil && *f.UserID != "" {
		where += ` AND r.user_id = ?`
		args = append(args, *f.UserID)
	}
	if f.ItemID != nil && *f.ItemID > 0 {
		where += ` AND r.item_id = ?`
		args = append(args, *f.ItemID)
	}
	if f.OpenOnly || f.OverdueOnly {
		where += ` AND r.actual_return IS NULL`
	}
	if f.OverdueOnly {
		where += ` AND r.expected_return IS NOT NULL AND r.expected_return < UTC_TIMESTAMP()`
	}

	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := `SELECT` + rentalColumns + `
	FROM rentals r JOIN inventory_items i ON i.item_id = r.item_id` + where +
		` ORDER BY r.rented_at ` + order + `, r.rental_id ` + order + ` LIMIT ? OFFSET ?`
	queryArgs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Rental
	for rows.Next() {
		r, err := scanRental(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	cntQ := `SELECT COUNT(*) FROM rentals r JOIN inventory_items i ON i.item_id = r.item_id` + where
	if err := s.db.QueryRowContext(ctx, cntQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
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
