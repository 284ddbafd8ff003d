package items

import (
	"database/sql"
	"time"
)

// Item is one row of inventory_items. quantity only ever moves through the
// ledger (adjust/checkout/checkin); plain updates must not touch it.
type Item struct {
	ItemID       uint64
	Name         string
	Quantity     int
	MinStock     int
	Unit         string
	UnitPrice    float64
	Location     sql.NullString
	EasyvereinID sql.NullString // sync key of the external member portal
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ChangeType string

const (
	ChangeCreate     ChangeType = "create"
	ChangeUpdate     ChangeType = "update"
	ChangeDelete     ChangeType = "delete"
	ChangeAdjustment ChangeType = "adjustment"
	ChangeCheckout   ChangeType = "checkout"
	ChangeCheckin    ChangeType = "checkin"
	ChangeWriteoff   ChangeType = "writeoff"
)

// HistoryEntry is one row of inventory_history. Append-only;
// new_stock - old_stock == change_amount always holds.
type HistoryEntry struct {
	HistoryID    uint64
	ItemID       uint64
	ChangeType   ChangeType
	OldStock     int
	NewStock     int
	ChangeAmount int
	Reason       string
	Details      sql.NullString
	ActorID      string
	CreatedAt    time.Time
}

type ItemFilter struct {
	Name           *string
	LowStock       bool // quantity <= min_stock
	IncludeDeleted bool
}

type Page struct {
	Limit  int
	Offset int
	Order  string
}
