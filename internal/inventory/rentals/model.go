package rentals

import (
	"database/sql"
	"time"
)

const (
	StatusActive    = "active"
	StatusReturned  = "returned"
	StatusDefective = "defective"
)

// Rental is one row of rentals. A rental is open while actual_return is
// NULL; returned_quantity and writeoff_quantity accumulate over partial
// checkins until amount is covered.
type Rental struct {
	RentalID         uint64
	RentalULID       string
	ItemID           uint64
	ItemName         string // joined from inventory_items for display
	UserID           string
	Amount           int
	Purpose          sql.NullString
	RentedAt         time.Time
	ExpectedReturn   sql.NullTime
	ActualReturn     sql.NullTime
	ReturnedQuantity int
	WriteoffQuantity int
	Status           string
	DefectNotes      sql.NullString
}

func (r *Rental) Open() bool { return !r.ActualReturn.Valid }

func (r *Rental) Outstanding() int {
	return r.Amount - r.ReturnedQuantity - r.WriteoffQuantity
}

// OverdueAt reports whether the rental counts as overdue at the given time.
// Overdue is derived on read, never stored.
func (r *Rental) OverdueAt(now time.Time) bool {
	return r.Open() && r.ExpectedReturn.Valid && r.ExpectedReturn.Time.Before(now)
}

type RentalFilter struct {
	UserID      *string
	ItemID      *uint64
	OpenOnly    bool
	OverdueOnly bool
}

type Page struct {
	Limit  int
	Offset int
	Order  string
}
