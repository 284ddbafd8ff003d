package rentals

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"vereinsportal-backend/internal/platform/mailqueue"
)

type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }

type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// RentalStore is what the service needs from persistence; *Store implements it.
type RentalStore interface {
	ExecCheckout(ctx context.Context, r *Rental, actor string) error
	ExecCheckin(ctx context.Context, rentalID uint64, goodQty, defectQty int, defectReason, actor string, now time.Time) (*Rental, error)
	GetRentalByID(ctx context.Context, rentalID uint64) (*Rental, error)
	GetRentalByULID(ctx context.Context, ulid string) (*Rental, error)
	ListRentals(ctx context.Context, f RentalFilter, p Page) ([]Rental, int64, error)
}

type Service struct {
	store RentalStore
	clock Clock
	id    IDGen
	mail  mailqueue.Queue // optional
}

func NewService(db *sql.DB, mail mailqueue.Queue) *Service {
	return &Service{
		store: NewStore(db),
		clock: realClock{},
		id:    ulidGen{},
		mail:  mail,
	}
}

func NewServiceWithStore(store RentalStore, clock Clock, id IDGen) *Service {
	return &Service{store: store, clock: clock, id: id}
}

// Checkout reserves stock for a borrower.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest, actor string) (RentalResponse, error) {
	if req.Amount <= 0 {
		return RentalResponse{}, ErrInvalid("amount must be > 0")
	}
	if req.ItemID == 0 {
		return RentalResponse{}, ErrInvalid("item_id is required")
	}
	borrower := req.UserID
	if borrower == "" {
		borrower = actor
	}
	if borrower == "" {
		return RentalResponse{}, ErrInvalid("user_id is required")
	}

	now := s.clock.Now()
	r := &Rental{
		RentalULID: s.id.NewULID(now),
		ItemID:     req.ItemID,
		UserID:     borrower,
		Amount:     req.Amount,
		RentedAt:   now,
	}
	if req.Purpose != nil && *req.Purpose != "" {
		r.Purpose = sql.NullString{String: *req.Purpose, Valid: true}
	}
	if req.ExpectedReturn != nil && *req.ExpectedReturn != "" {
		parsed, err := time.Parse("2006-01-02", *req.ExpectedReturn)
		if err != nil {
			return RentalResponse{}, ErrInvalid("invalid expected_return format, expected YYYY-MM-DD")
		}
		if parsed.Before(now.Truncate(24 * time.Hour)) {
			return RentalResponse{}, ErrInvalid("expected_return must not be in the past")
		}
		r.ExpectedReturn = sql.NullTime{Time: parsed, Valid: true}
	}

	if err := s.store.ExecCheckout(ctx, r, actor); err != nil {
		return RentalResponse{}, err
	}

	if s.mail != nil {
		subject := "Ausleihe bestätigt"
		body := fmt.Sprintf("%d x item %d, rental %s", r.Amount, r.ItemID, r.RentalULID)
		if err := s.mail.Enqueue(ctx, borrower, subject, body); err != nil {
			log.Printf("[WARN] failed to enqueue checkout mail for %s: %v", r.RentalULID, err)
		}
	}

	return buildRentalResponse(r, now), nil
}

// Checkin books a (possibly partial) return against an open rental.
// returned_quantity goes back to stock; defective_quantity is written off.
func (s *Service) Checkin(ctx context.Context, key string, req CheckinRequest, actor string) (RentalResponse, error) {
	rental, err := s.resolve(ctx, key)
	if err != nil {
		return RentalResponse{}, err
	}

	if req.DefectiveQuantity > 0 && (req.DefectReason == nil || strings.TrimSpace(*req.DefectReason) == "") {
		return RentalResponse{}, ErrInvalid("defect_reason is required when defective_quantity > 0")
	}
	defectReason := ""
	if req.DefectReason != nil {
		defectReason = strings.TrimSpace(*req.DefectReason)
	}

	now := s.clock.Now()
	updated, err := s.store.ExecCheckin(ctx, rental.RentalID, req.ReturnedQuantity, req.DefectiveQuantity, defectReason, actor, now)
	if err != nil {
		return RentalResponse{}, err
	}
	updated.ItemName = rental.ItemName
	return buildRentalResponse(updated, now), nil
}

func (s *Service) GetRental(ctx context.Context, key string) (RentalResponse, error) {
	r, err := s.resolve(ctx, key)
	if err != nil {
		return RentalResponse{}, err
	}
	return buildRentalResponse(r, s.clock.Now()), nil
}

func (s *Service) ListRentals(ctx context.Context, f RentalFilter, p Page) (RentalListResponse, error) {
	list, total, err := s.store.ListRentals(ctx, f, p)
	if err != nil {
		return RentalListResponse{}, err
	}
	now := s.clock.Now()
	resp := RentalListResponse{Rentals: make([]RentalResponse, 0, len(list)), Total: total}
	for i := range list {
		resp.Rentals = append(resp.Rentals, buildRentalResponse(&list[i], now))
	}
	return resp, nil
}

// resolve accepts a numeric rental_id or a rental ULID.
func (s *Service) resolve(ctx context.Context, key string) (*Rental, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}
	if id, err := strconv.ParseUint(key, 10, 64); err == nil && id > 0 {
		return s.store.GetRentalByID(ctx, id)
	}
	return s.store.GetRentalByULID(ctx, key)
}
