package items

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const itemColumns = `item_id, name, quantity, min_stock, unit, unit_price, location, easyverein_id, is_deleted, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	var deleted int
	err := row.Scan(
		&it.ItemID, &it.Name, &it.Quantity, &it.MinStock, &it.Unit, &it.UnitPrice,
		&it.Location, &it.EasyvereinID, &deleted, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.IsDeleted = deleted != 0
	return &it, nil
}

// lockItemRow reads the current quantity under FOR UPDATE. Every quantity
// change in this package and in rentals goes through this lock.
func lockItemRow(ctx context.Context, tx *sql.Tx, itemID uint64) (int, error) {
	const q = `SELECT quantity FROM inventory_items WHERE item_id = ? AND is_deleted = 0 FOR UPDATE`
	var qty int
	if err := tx.QueryRowContext(ctx, q, itemID).Scan(&qty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound("item not found")
		}
		return 0, err
	}
	return qty, nil
}

func insertHistoryTx(ctx context.Context, tx *sql.Tx, h *HistoryEntry) error {
	const q = `
	INSERT INTO inventory_history
	(item_id, change_type, old_stock, new_stock, change_amount, reason, details, actor_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		h.ItemID, string(h.ChangeType), h.OldStock, h.NewStock, h.ChangeAmount,
		h.Reason, nullStrOrNil(h.Details), h.ActorID,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	h.HistoryID = uint64(id)
	return nil
}

// ExecCreateItem inserts the item and its opening history row in one tx.
func (s *Store) ExecCreateItem(ctx context.Context, it *Item, actor string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `
	INSERT INTO inventory_items
	(name, quantity, min_stock, unit, unit_price, location, easyverein_id)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		it.Name, it.Quantity, it.MinStock, it.Unit, it.UnitPrice,
		nullStrOrNil(it.Location), nullStrOrNil(it.EasyvereinID),
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			err = ErrConflict("item with this easyverein_id already exists")
		}
		return err
	}
	id, _ := res.LastInsertId()
	it.ItemID = uint64(id)

	err = insertHistoryTx(ctx, tx, &HistoryEntry{
		ItemID:       it.ItemID,
		ChangeType:   ChangeCreate,
		OldStock:     0,
		NewStock:     it.Quantity,
		ChangeAmount: it.Quantity,
		Reason:       "item created",
		ActorID:      actor,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

func (s *Store) GetItemByID(ctx context.Context, itemID uint64) (*Item, error) {
	q := `SELECT ` + itemColumns + ` FROM inventory_items WHERE item_id = ?`
	it, err := scanItem(s.db.QueryRowContext(ctx, q, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("item not found")
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Store) ListItems(ctx context.Context, f ItemFilter, p Page) ([]Item, int64, error) {
	var (
		sb   strings.Builder
		args []any
	)
	where := ` WHERE 1=1`
	if !f.IncludeDeleted {
		where += ` AND is_deleted = 0`
	}
	if f.Name != nil && *f.Name != "" {
		where += ` AND name LIKE ?`
		args = append(args, "%"+*f.Name+"%")
	}
	if f.LowStock {
		where += ` AND quantity <= min_stock`
	}

	sb.WriteString(`SELECT ` + itemColumns + ` FROM inventory_items` + where)
	order := "ASC"
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	sb.WriteString(` ORDER BY name ` + order + `, item_id ` + order)
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	sb.WriteString(` LIMIT ? OFFSET ?`)
	queryArgs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ExecUpdateItem applies master-data changes and logs an `update` history
// row. Quantity is deliberately not updatable here.
func (s *Store) ExecUpdateItem(ctx context.Context, itemID uint64, in UpdateItemRequest, actor string) (*Item, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	qty, err := lockItemRow(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	var (
		sets    []string
		args    []any
		changed []string
	)
	if in.Name != nil {
		sets, args, changed = append(sets, "name = ?"), append(args, *in.Name), append(changed, "name")
	}
	if in.MinStock != nil {
		sets, args, changed = append(sets, "min_stock = ?"), append(args, *in.MinStock), append(changed, "min_stock")
	}
	if in.Unit != nil {
		sets, args, changed = append(sets, "unit = ?"), append(args, *in.Unit), append(changed, "unit")
	}
	if in.UnitPrice != nil {
		sets, args, changed = append(sets, "unit_price = ?"), append(args, *in.UnitPrice), append(changed, "unit_price")
	}
	if in.Location != nil {
		sets, args, changed = append(sets, "location = ?"), append(args, *in.Location), append(changed, "location")
	}
	if in.EasyvereinID != nil {
		sets, args, changed = append(sets, "easyverein_id = ?"), append(args, *in.EasyvereinID), append(changed, "easyverein_id")
	}
	if len(sets) == 0 {
		err = ErrInvalid("no updatable fields in request")
		return nil, err
	}

	args = append(args, itemID)
	_, err = tx.ExecContext(ctx, `UPDATE inventory_items SET `+strings.Join(sets, ", ")+` WHERE item_id = ?`, args...)
	if err != nil {
		return nil, err
	}

	err = insertHistoryTx(ctx, tx, &HistoryEntry{
		ItemID:       itemID,
		ChangeType:   ChangeUpdate,
		OldStock:     qty,
		NewStock:     qty,
		ChangeAmount: 0,
		Reason:       "item updated",
		Details:      sql.NullString{String: strings.Join(changed, ","), Valid: true},
		ActorID:      actor,
	})
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetItemByID(ctx, itemID)
}

// ExecDeleteItem soft-deletes; the rows stay for history and rentals.
func (s *Store) ExecDeleteItem(ctx context.Context, itemID uint64, actor string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	qty, err := lockItemRow(ctx, tx, itemID)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE inventory_items SET is_deleted = 1 WHERE item_id = ?`, itemID); err != nil {
		return err
	}

	err = insertHistoryTx(ctx, tx, &HistoryEntry{
		ItemID:       itemID,
		ChangeType:   ChangeDelete,
		OldStock:     qty,
		NewStock:     qty,
		ChangeAmount: 0,
		Reason:       "item deleted",
		ActorID:      actor,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// ExecAdjust applies a signed delta to the quantity and appends exactly one
// history row, all in one tx. Rejects results below zero.
func (s *Store) ExecAdjust(ctx context.Context, itemID uint64, delta int, reason, details, actor string) (*HistoryEntry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	oldStock, err := lockItemRow(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	newStock := oldStock + delta
	if newStock < 0 {
		err = ErrInsufficientStock(oldStock, delta)
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE inventory_items SET quantity = quantity + ? WHERE item_id = ?`, delta, itemID)
	if err != nil {
		return nil, err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		err = ErrInternal("failed to update inventory_items.quantity")
		return nil, err
	}

	entry := &HistoryEntry{
		ItemID:       itemID,
		ChangeType:   ChangeAdjustment,
		OldStock:     oldStock,
		NewStock:     newStock,
		ChangeAmount: delta,
		Reason:       reason,
		ActorID:      actor,
	}
	if details != "" {
		entry.Details = sql.NullString{String: details, Valid: true}
	}
	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) ListHistory(ctx context.Context, itemID uint64, p Page) ([]HistoryEntry, int64, error) {
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

	q := `
	SELECT history_id, item_id, change_type, old_stock, new_stock, change_amount, reason, details, actor_id, created_at
	FROM inventory_history WHERE item_id = ? ORDER BY history_id ` + order + ` LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, q, itemID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		var ct string
		if err := rows.Scan(
			&h.HistoryID, &h.ItemID, &ct, &h.OldStock, &h.NewStock, &h.ChangeAmount,
			&h.Reason, &h.Details, &h.ActorID, &h.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		h.ChangeType = ChangeType(ct)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_history WHERE item_id = ?`, itemID).Scan(&total); err != nil {
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
