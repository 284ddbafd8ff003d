package helpers

import "time"

const (
	StatusConfirmed = "confirmed"
	StatusWaitlist  = "waitlist"
	StatusCancelled = "cancelled"
)

// HelperType is a lookup row (Aufbau, Theke, Kasse, ...).
type HelperType struct {
	HelperTypeID uint64
	Name         string
	IsDisabled   bool
}

// HelperSlot is a capacity-bounded time window within an event.
type HelperSlot struct {
	SlotID         uint64
	EventID        uint64
	HelperTypeID   uint64
	StartTime      time.Time
	EndTime        time.Time
	QuantityNeeded int
}

type SlotWithCounts struct {
	HelperSlot
	Confirmed  int
	Waitlisted int
}

type Signup struct {
	SignupID   uint64
	SignupULID string
	SlotID     uint64
	EventID    uint64
	UserID     string
	Status     string
	CreatedAt  time.Time
}

// decideStatus places one more signup against the confirmed count. Callers
// must hold the slot row lock so the count cannot move underneath them.
func decideStatus(confirmed, quantityNeeded int) string {
	if confirmed < quantityNeeded {
		return StatusConfirmed
	}
	return StatusWaitlist
}
