package items

import (
	"context"
	"database/sql"
	"strings"
)

// ItemStore is what the service needs from persistence; *Store implements it.
type ItemStore interface {
	ExecCreateItem(ctx context.Context, it *Item, actor string) error
	GetItemByID(ctx context.Context, itemID uint64) (*Item, error)
	ListItems(ctx context.Context, f ItemFilter, p Page) ([]Item, int64, error)
	ExecUpdateItem(ctx context.Context, itemID uint64, in UpdateItemRequest, actor string) (*Item, error)
	ExecDeleteItem(ctx context.Context, itemID uint64, actor string) error
	ExecAdjust(ctx context.Context, itemID uint64, delta int, reason, details, actor string) (*HistoryEntry, error)
	ListHistory(ctx context.Context, itemID uint64, p Page) ([]HistoryEntry, int64, error)
}

type Service struct {
	store ItemStore
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db)}
}

func NewServiceWithStore(store ItemStore) *Service {
	return &Service{store: store}
}

func (s *Service) CreateItem(ctx context.Context, in CreateItemRequest, actor string) (ItemResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return ItemResponse{}, ErrInvalid("name is required")
	}
	if in.Quantity < 0 {
		return ItemResponse{}, ErrInvalid("quantity must be >= 0")
	}
	if in.MinStock < 0 {
		return ItemResponse{}, ErrInvalid("min_stock must be >= 0")
	}
	if in.UnitPrice < 0 {
		return ItemResponse{}, ErrInvalid("unit_price must be >= 0")
	}

	it := &Item{
		Name:      strings.TrimSpace(in.Name),
		Quantity:  in.Quantity,
		MinStock:  in.MinStock,
		Unit:      in.Unit,
		UnitPrice: in.UnitPrice,
	}
	if in.Location != nil && *in.Location != "" {
		it.Location = sql.NullString{String: *in.Location, Valid: true}
	}
	if in.EasyvereinID != nil && *in.EasyvereinID != "" {
		it.EasyvereinID = sql.NullString{String: *in.EasyvereinID, Valid: true}
	}

	if err := s.store.ExecCreateItem(ctx, it, actor); err != nil {
		return ItemResponse{}, err
	}
	return s.GetItem(ctx, it.ItemID)
}

func (s *Service) GetItem(ctx context.Context, itemID uint64) (ItemResponse, error) {
	it, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		return ItemResponse{}, err
	}
	return buildItemResponse(it), nil
}

func (s *Service) ListItems(ctx context.Context, f ItemFilter, p Page) (ItemListResponse, error) {
	list, total, err := s.store.ListItems(ctx, f, p)
	if err != nil {
		return ItemListResponse{}, err
	}
	resp := ItemListResponse{Items: make([]ItemResponse, 0, len(list)), Total: total}
	for i := range list {
		resp.Items = append(resp.Items, buildItemResponse(&list[i]))
	}
	return resp, nil
}

func (s *Service) UpdateItem(ctx context.Context, itemID uint64, in UpdateItemRequest, actor string) (ItemResponse, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return ItemResponse{}, ErrInvalid("name must not be empty")
	}
	if in.MinStock != nil && *in.MinStock < 0 {
		return ItemResponse{}, ErrInvalid("min_stock must be >= 0")
	}
	if in.UnitPrice != nil && *in.UnitPrice < 0 {
		return ItemResponse{}, ErrInvalid("unit_price must be >= 0")
	}

	it, err := s.store.ExecUpdateItem(ctx, itemID, in, actor)
	if err != nil {
		return ItemResponse{}, err
	}
	return buildItemResponse(it), nil
}

func (s *Service) DeleteItem(ctx context.Context, itemID uint64, actor string) error {
	return s.store.ExecDeleteItem(ctx, itemID, actor)
}

// AdjustStock is the manual ledger entry (Inventur corrections, donations,
// losses). Checkout/checkin write their own ledger rows in rentals.
func (s *Service) AdjustStock(ctx context.Context, itemID uint64, in AdjustStockRequest, actor string) (HistoryResponse, error) {
	if in.Delta == 0 {
		return HistoryResponse{}, ErrInvalid("delta must be a nonzero integer")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return HistoryResponse{}, ErrInvalid("reason is required")
	}
	if actor == "" {
		return HistoryResponse{}, ErrInvalid("actor is required")
	}

	details := ""
	if in.Details != nil {
		details = *in.Details
	}

	entry, err := s.store.ExecAdjust(ctx, itemID, in.Delta, strings.TrimSpace(in.Reason), details, actor)
	if err != nil {
		return HistoryResponse{}, err
	}
	return buildHistoryResponse(entry), nil
}

func (s *Service) ListHistory(ctx context.Context, itemID uint64, p Page) (HistoryListResponse, error) {
	if _, err := s.store.GetItemByID(ctx, itemID); err != nil {
		return HistoryListResponse{}, err
	}
	list, total, err := s.store.ListHistory(ctx, itemID, p)
	if err != nil {
		return HistoryListResponse{}, err
	}
	resp := HistoryListResponse{Entries: make([]HistoryResponse, 0, len(list)), Total: total}
	for i := range list {
		resp.Entries = append(resp.Entries, buildHistoryResponse(&list[i]))
	}
	return resp, nil
}
