package rentals

import "time"

type CheckoutRequest struct {
	ItemID uint64 `json:"item_id" binding:"required"`
	// Borrower; defaults to the acting user when empty (self-checkout).
	UserID         string  `json:"user_id"`
	Amount         int     `json:"amount" binding:"required"`
	Purpose        *string `json:"purpose,omitempty"`
	ExpectedReturn *string `json:"expected_return,omitempty"` // "2006-01-02"
}

type CheckinRequest struct {
	ReturnedQuantity  int     `json:"returned_quantity"`
	DefectiveQuantity int     `json:"defective_quantity"`
	DefectReason      *string `json:"defect_reason,omitempty"`
}

type RentalResponse struct {
	RentalID         uint64     `json:"rental_id"`
	RentalULID       string     `json:"rental_ulid"`
	ItemID           uint64     `json:"item_id"`
	ItemName         string     `json:"item_name,omitempty"`
	UserID           string     `json:"user_id"`
	Amount           int        `json:"amount"`
	Purpose          *string    `json:"purpose,omitempty"`
	RentedAt         time.Time  `json:"rented_at"`
	ExpectedReturn   *time.Time `json:"expected_return,omitempty"`
	ActualReturn     *time.Time `json:"actual_return,omitempty"`
	ReturnedQuantity int        `json:"returned_quantity"`
	WriteoffQuantity int        `json:"writeoff_quantity"`
	Outstanding      int        `json:"outstanding"`
	Status           string     `json:"status"`
	Overdue          bool       `json:"overdue"`
	DefectNotes      *string    `json:"defect_notes,omitempty"`
}

type RentalListResponse struct {
	Rentals []RentalResponse `json:"rentals"`
	Total   int64            `json:"total"`
}

func buildRentalResponse(r *Rental, now time.Time) RentalResponse {
	resp := RentalResponse{
		RentalID:         r.RentalID,
		RentalULID:       r.RentalULID,
		ItemID:           r.ItemID,
		ItemName:         r.ItemName,
		UserID:           r.UserID,
		Amount:           r.Amount,
		RentedAt:         r.RentedAt,
		ReturnedQuantity: r.ReturnedQuantity,
		WriteoffQuantity: r.WriteoffQuantity,
		Outstanding:      r.Outstanding(),
		Status:           r.Status,
		Overdue:          r.OverdueAt(now),
	}
	if r.Purpose.Valid {
		v := r.Purpose.String
		resp.Purpose = &v
	}
	if r.ExpectedReturn.Valid {
		v := r.ExpectedReturn.Time
		resp.ExpectedReturn = &v
	}
	if r.ActualReturn.Valid {
		v := r.ActualReturn.Time
		resp.ActualReturn = &v
	}
	if r.DefectNotes.Valid {
		v := r.DefectNotes.String
		resp.DefectNotes = &v
	}
	return resp
}
