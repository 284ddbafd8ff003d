package helpers

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
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

type Service struct {
	store SignupStore
	clock Clock
	id    IDGen
	mail  mailqueue.Queue // optional
}

func NewService(db *sql.DB, mail mailqueue.Queue) *Service {
	return &Service{store: NewStore(db), clock: realClock{}, id: ulidGen{}, mail: mail}
}

func NewServiceWithStore(store SignupStore, clock Clock, id IDGen) *Service {
	return &Service{store: store, clock: clock, id: id}
}

func (s *Service) ListHelperTypes(ctx context.Context, includeDisabled bool) ([]HelperTypeResponse, error) {
	list, err := s.store.ListHelperTypes(ctx, includeDisabled)
	if err != nil {
		return nil, err
	}
	out := make([]HelperTypeResponse, 0, len(list))
	for _, ht := range list {
		out = append(out, HelperTypeResponse{HelperTypeID: ht.HelperTypeID, Name: ht.Name, IsDisabled: ht.IsDisabled})
	}
	return out, nil
}

func (s *Service) CreateSlot(ctx context.Context, eventID uint64, req CreateSlotRequest) (SlotResponse, error) {
	if req.QuantityNeeded <= 0 {
		return SlotResponse{}, ErrInvalid("quantity_needed must be > 0")
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return SlotResponse{}, ErrInvalid("invalid start_time, expected RFC3339")
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return SlotResponse{}, ErrInvalid("invalid end_time, expected RFC3339")
	}
	if !end.After(start) {
		return SlotResponse{}, ErrInvalid("end_time must be after start_time")
	}

	slot := &HelperSlot{
		EventID:        eventID,
		HelperTypeID:   req.HelperTypeID,
		StartTime:      start.UTC(),
		EndTime:        end.UTC(),
		QuantityNeeded: req.QuantityNeeded,
	}
	if err := s.store.CreateSlot(ctx, slot); err != nil {
		return SlotResponse{}, err
	}
	return SlotResponse{
		SlotID:         slot.SlotID,
		EventID:        slot.EventID,
		HelperTypeID:   slot.HelperTypeID,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		QuantityNeeded: slot.QuantityNeeded,
	}, nil
}

func (s *Service) ListSlots(ctx context.Context, eventID uint64) ([]SlotResponse, error) {
	list, err := s.store.ListSlotsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]SlotResponse, 0, len(list))
	for _, sc := range list {
		out = append(out, SlotResponse{
			SlotID:         sc.SlotID,
			EventID:        sc.EventID,
			HelperTypeID:   sc.HelperTypeID,
			StartTime:      sc.StartTime,
			EndTime:        sc.EndTime,
			QuantityNeeded: sc.QuantityNeeded,
			Confirmed:      sc.Confirmed,
			Waitlisted:     sc.Waitlisted,
		})
	}
	return out, nil
}

// Signup places userID into the slot, confirmed while capacity lasts,
// waitlisted beyond it. The resulting status is part of the normal result.
func (s *Service) Signup(ctx context.Context, eventID, slotID uint64, userID string) (SignupResponse, error) {
	if userID == "" {
		return SignupResponse{}, ErrInvalid("user is required")
	}
	if eventID == 0 || slotID == 0 {
		return SignupResponse{}, ErrInvalid("event_id and slot_id are required")
	}

	now := s.clock.Now()
	su, err := s.store.ExecSignup(ctx, eventID, slotID, userID, s.id.NewULID(now), now)
	if err != nil {
		return SignupResponse{}, err
	}

	if s.mail != nil {
		subject := "Helfer-Anmeldung"
		body := fmt.Sprintf("slot %d, event %d: %s", su.SlotID, su.EventID, su.Status)
		if err := s.mail.Enqueue(ctx, userID, subject, body); err != nil {
			log.Printf("[WARN] failed to enqueue signup mail for %s: %v", su.SignupULID, err)
		}
	}
	return buildSignupResponse(su), nil
}

// Cancel withdraws a signup. Members may cancel their own; managers may
// cancel any. No waitlisted signup is promoted automatically.
func (s *Service) Cancel(ctx context.Context, signupULID, userID string, isManager bool) error {
	su, err := s.store.GetSignupByULID(ctx, signupULID)
	if err != nil {
		return err
	}
	if su.UserID != userID && !isManager {
		return ErrConflict("signup belongs to another user")
	}
	return s.store.ExecCancel(ctx, su.SignupID)
}

// Promote is the manual counterpart to the missing auto-promotion: a
// manager moves one waitlisted signup up when capacity allows.
func (s *Service) Promote(ctx context.Context, signupULID string) (SignupResponse, error) {
	su, err := s.store.GetSignupByULID(ctx, signupULID)
	if err != nil {
		return SignupResponse{}, err
	}
	promoted, err := s.store.ExecPromote(ctx, su.SignupID)
	if err != nil {
		return SignupResponse{}, err
	}
	return buildSignupResponse(promoted), nil
}
