package helpers

import "time"

type HelperTypeResponse struct {
	HelperTypeID uint64 `json:"helper_type_id"`
	Name         string `json:"name"`
	IsDisabled   bool   `json:"is_disabled"`
}

type CreateSlotRequest struct {
	HelperTypeID   uint64 `json:"helper_type_id" binding:"required"`
	StartTime      string `json:"start_time" binding:"required"` // RFC3339
	EndTime        string `json:"end_time" binding:"required"`
	QuantityNeeded int    `json:"quantity_needed" binding:"required"`
}

type SlotResponse struct {
	SlotID         uint64    `json:"slot_id"`
	EventID        uint64    `json:"event_id"`
	HelperTypeID   uint64    `json:"helper_type_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	QuantityNeeded int       `json:"quantity_needed"`
	Confirmed      int       `json:"confirmed"`
	Waitlisted     int       `json:"waitlisted"`
}

type SignupResponse struct {
	SignupULID string    `json:"signup_ulid"`
	SlotID     uint64    `json:"slot_id"`
	EventID    uint64    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func buildSignupResponse(su *Signup) SignupResponse {
	return SignupResponse{
		SignupULID: su.SignupULID,
		SlotID:     su.SlotID,
		EventID:    su.EventID,
		UserID:     su.UserID,
		Status:     su.Status,
		CreatedAt:  su.CreatedAt,
	}
}
