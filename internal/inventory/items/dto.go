package items

import "time"

type CreateItemRequest struct {
	Name         string  `json:"name" binding:"required"`
	Quantity     int     `json:"quantity"`
	MinStock     int     `json:"min_stock"`
	Unit         string  `json:"unit"`
	UnitPrice    float64 `json:"unit_price"`
	Location     *string `json:"location,omitempty"`
	EasyvereinID *string `json:"easyverein_id,omitempty"`
}

type UpdateItemRequest struct {
	Name         *string  `json:"name,omitempty"`
	MinStock     *int     `json:"min_stock,omitempty"`
	Unit         *string  `json:"unit,omitempty"`
	UnitPrice    *float64 `json:"unit_price,omitempty"`
	Location     *string  `json:"location,omitempty"`
	EasyvereinID *string  `json:"easyverein_id,omitempty"`
}

type AdjustStockRequest struct {
	Delta   int     `json:"delta" binding:"required"`
	Reason  string  `json:"reason" binding:"required"`
	Details *string `json:"details,omitempty"`
}

type ItemResponse struct {
	ItemID       uint64    `json:"item_id"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	MinStock     int       `json:"min_stock"`
	LowStock     bool      `json:"low_stock"`
	Unit         string    `json:"unit"`
	UnitPrice    float64   `json:"unit_price"`
	Location     *string   `json:"location,omitempty"`
	EasyvereinID *string   `json:"easyverein_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Total int64          `json:"total"`
}

type HistoryResponse struct {
	HistoryID    uint64    `json:"history_id"`
	ItemID       uint64    `json:"item_id"`
	ChangeType   string    `json:"change_type"`
	OldStock     int       `json:"old_stock"`
	NewStock     int       `json:"new_stock"`
	ChangeAmount int       `json:"change_amount"`
	Reason       string    `json:"reason"`
	Details      *string   `json:"details,omitempty"`
	ActorID      string    `json:"actor_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type HistoryListResponse struct {
	Entries []HistoryResponse `json:"entries"`
	Total   int64             `json:"total"`
}

func buildItemResponse(it *Item) ItemResponse {
	resp := ItemResponse{
		ItemID:    it.ItemID,
		Name:      it.Name,
		Quantity:  it.Quantity,
		MinStock:  it.MinStock,
		LowStock:  it.Quantity <= it.MinStock,
		Unit:      it.Unit,
		UnitPrice: it.UnitPrice,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
	if it.Location.Valid {
		v := it.Location.String
		resp.Location = &v
	}
	if it.EasyvereinID.Valid {
		v := it.EasyvereinID.String
		resp.EasyvereinID = &v
	}
	return resp
}

func buildHistoryResponse(h *HistoryEntry) HistoryResponse {
	resp := HistoryResponse{
		HistoryID:    h.HistoryID,
		ItemID:       h.ItemID,
		ChangeType:   string(h.ChangeType),
		OldStock:     h.OldStock,
		NewStock:     h.NewStock,
		ChangeAmount: h.ChangeAmount,
		Reason:       h.Reason,
		ActorID:      h.ActorID,
		CreatedAt:    h.CreatedAt,
	}
	if h.Details.Valid {
		v := h.Details.String
		resp.Details = &v
	}
	return resp
}
