package helpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewULID(time.Time) string {
	g.n++
	return fmt.Sprintf("01TESTULID%016d", g.n)
}

// memSignupStore enforces slot capacity in memory the way the SQL store
// does under its row lock.
type memSignupStore struct {
	types   []HelperType
	slots   map[uint64]*HelperSlot
	signups map[uint64]*Signup
	nextID  uint64
}

func newMemSignupStore() *memSignupStore {
	return &memSignupStore{slots: map[uint64]*HelperSlot{}, signups: map[uint64]*Signup{}}
}

func (m *memSignupStore) addSlot(eventID uint64, needed int) *HelperSlot {
	m.nextID++
	s := &HelperSlot{SlotID: m.nextID, EventID: eventID, HelperTypeID: 1, QuantityNeeded: needed}
	m.slots[s.SlotID] = s
	return s
}

func (m *memSignupStore) confirmedCount(slotID uint64) int {
	n := 0
	for _, su := range m.signups {
		if su.SlotID == slotID && su.Status == StatusConfirmed {
			n++
		}
	}
	return n
}

func (m *memSignupStore) ListHelperTypes(_ context.Context, includeDisabled bool) ([]HelperType, error) {
	out := make([]HelperType, 0, len(m.types))
	for _, ht := range m.types {
		if ht.IsDisabled && !includeDisabled {
			continue
		}
		out = append(out, ht)
	}
	return out, nil
}

func (m *memSignupStore) CreateSlot(_ context.Context, slot *HelperSlot) error {
	m.nextID++
	slot.SlotID = m.nextID
	m.slots[slot.SlotID] = slot
	return nil
}

func (m *memSignupStore) ListSlotsByEvent(_ context.Context, eventID uint64) ([]SlotWithCounts, error) {
	var out []SlotWithCounts
	for _, s := range m.slots {
		if s.EventID != eventID {
			continue
		}
		sc := SlotWithCounts{HelperSlot: *s, Confirmed: m.confirmedCount(s.SlotID)}
		for _, su := range m.signups {
			if su.SlotID == s.SlotID && su.Status == StatusWaitlist {
				sc.Waitlisted++
			}
		}
		out = append(out, sc)
	}
	return out, nil
}

func (m *memSignupStore) ExecSignup(_ context.Context, eventID, slotID uint64, userID, signupULID string, now time.Time) (*Signup, error) {
	slot, ok := m.slots[slotID]
	if !ok {
		return nil, ErrNotFound("slot not found")
	}
	if slot.EventID != eventID {
		return nil, ErrNotFound("slot does not belong to event")
	}
	for _, su := range m.signups {
		if su.SlotID == slotID && su.UserID == userID {
			if su.Status != StatusCancelled {
				return nil, ErrConflict("already signed up for this slot")
			}
			su.Status = decideStatus(m.confirmedCount(slotID), slot.QuantityNeeded)
			su.CreatedAt = now
			return su, nil
		}
	}
	m.nextID++
	su := &Signup{
		SignupID: m.nextID, SignupULID: signupULID, SlotID: slotID, EventID: eventID,
		UserID: userID, Status: decideStatus(m.confirmedCount(slotID), slot.QuantityNeeded), CreatedAt: now,
	}
	m.signups[su.SignupID] = su
	return su, nil
}

func (m *memSignupStore) GetSignupByULID(_ context.Context, ulid string) (*Signup, error) {
	for _, su := range m.signups {
		if su.SignupULID == ulid {
			return su, nil
		}
	}
	return nil, ErrNotFound("signup not found")
}

func (m *memSignupStore) ExecCancel(_ context.Context, signupID uint64) error {
	su, ok := m.signups[signupID]
	if !ok || su.Status == StatusCancelled {
		return ErrConflict("signup is not active")
	}
	su.Status = StatusCancelled
	return nil
}

func (m *memSignupStore) ExecPromote(_ context.Context, signupID uint64) (*Signup, error) {
	su, ok := m.signups[signupID]
	if !ok {
		return nil, ErrNotFound("signup not found")
	}
	if su.Status != StatusWaitlist {
		return nil, ErrConflict("only waitlisted signups can be promoted")
	}
	slot := m.slots[su.SlotID]
	if m.confirmedCount(su.SlotID) >= slot.QuantityNeeded {
		return nil, ErrSlotFull()
	}
	su.Status = StatusConfirmed
	return su, nil
}

func newHelperService(store SignupStore) *Service {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	return NewServiceWithStore(store, fixedClock{t: now}, &seqIDGen{})
}

func TestDecideStatus(t *testing.T) {
	assert.Equal(t, StatusConfirmed, decideStatus(0, 2))
	assert.Equal(t, StatusConfirmed, decideStatus(1, 2))
	assert.Equal(t, StatusWaitlist, decideStatus(2, 2))
	assert.Equal(t, StatusWaitlist, decideStatus(3, 2))
	assert.Equal(t, StatusWaitlist, decideStatus(0, 0))
}

func TestSignupFillsThenWaitlists(t *testing.T) {
	store := newMemSignupStore()
	slot := store.addSlot(10, 2)
	svc := newHelperService(store)
	ctx := context.Background()

	res1, err := svc.Signup(ctx, 10, slot.SlotID, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res1.Status)

	res2, err := svc.Signup(ctx, 10, slot.SlotID, "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res2.Status)

	res3, err := svc.Signup(ctx, 10, slot.SlotID, "carol")
	require.NoError(t, err)
	assert.Equal(t, StatusWaitlist, res3.Status)

	slots, err := svc.ListSlots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 2, slots[0].Confirmed)
	assert.Equal(t, 1, slots[0].Waitlisted)
}

func TestSignupDuplicateAndRevive(t *testing.T) {
	store := newMemSignupStore()
	slot := store.addSlot(10, 1)
	svc := newHelperService(store)
	ctx := context.Background()

	res, err := svc.Signup(ctx, 10, slot.SlotID, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res.Status)

	_, err = svc.Signup(ctx, 10, slot.SlotID, "alice")
	requireCode(t, err, CodeConflict)

	require.NoError(t, svc.Cancel(ctx, res.SignupULID, "alice", false))

	// signing up again revives the cancelled row
	revived, err := svc.Signup(ctx, 10, slot.SlotID, "alice")
	require.NoError(t, err)
	assert.Equal(t, res.SignupULID, revived.SignupULID)
	assert.Equal(t, StatusConfirmed, revived.Status)
}

func TestSignupWrongEvent(t *testing.T) {
	store := newMemSignupStore()
	slot := store.addSlot(10, 1)
	svc := newHelperService(store)

	_, err := svc.Signup(context.Background(), 99, slot.SlotID, "alice")
	requireCode(t, err, CodeNotFound)
}

func TestCancelOwnership(t *testing.T) {
	store := newMemSignupStore()
	slot := store.addSlot(10, 1)
	svc := newHelperService(store)
	ctx := context.Background()

	res, err := svc.Signup(ctx, 10, slot.SlotID, "alice")
	require.NoError(t, err)

	// another member may not cancel
	err = svc.Cancel(ctx, res.SignupULID, "bob", false)
	requireCode(t, err, CodeConflict)

	// a manager may
	require.NoError(t, svc.Cancel(ctx, res.SignupULID, "bob", true))
}

func TestPromote(t *testing.T) {
	store := newMemSignupStore()
	slot := store.addSlot(10, 1)
	svc := newHelperService(store)
	ctx := context.Background()

	confirmed, err := svc.Signup(ctx, 10, slot.SlotID, "alice")
	require.NoError(t, err)
	waiting, err := svc.Signup(ctx, 10, slot.SlotID, "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusWaitlist, waiting.Status)

	// slot still full: promotion refused
	_, err = svc.Promote(ctx, waiting.SignupULID)
	requireCode(t, err, CodeSlotFull)

	// cancelling frees capacity but promotes nobody on its own
	require.NoError(t, svc.Cancel(ctx, confirmed.SignupULID, "alice", false))
	still, err := store.GetSignupByULID(ctx, waiting.SignupULID)
	require.NoError(t, err)
	assert.Equal(t, StatusWaitlist, still.Status)

	promoted, err := svc.Promote(ctx, waiting.SignupULID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, promoted.Status)

	// a confirmed signup cannot be promoted again
	_, err = svc.Promote(ctx, waiting.SignupULID)
	requireCode(t, err, CodeConflict)
}

func TestCreateSlotValidation(t *testing.T) {
	svc := newHelperService(newMemSignupStore())
	ctx := context.Background()

	_, err := svc.CreateSlot(ctx, 10, CreateSlotRequest{HelperTypeID: 1, StartTime: "2026-06-01T08:00:00Z", EndTime: "2026-06-01T12:00:00Z", QuantityNeeded: 0})
	requireCode(t, err, CodeInvalidArgument)

	_, err = svc.CreateSlot(ctx, 10, CreateSlotRequest{HelperTypeID: 1, StartTime: "not-a-time", EndTime: "2026-06-01T12:00:00Z", QuantityNeeded: 2})
	requireCode(t, err, CodeInvalidArgument)

	_, err = svc.CreateSlot(ctx, 10, CreateSlotRequest{HelperTypeID: 1, StartTime: "2026-06-01T12:00:00Z", EndTime: "2026-06-01T08:00:00Z", QuantityNeeded: 2})
	requireCode(t, err, CodeInvalidArgument)

	res, err := svc.CreateSlot(ctx, 10, CreateSlotRequest{HelperTypeID: 1, StartTime: "2026-06-01T08:00:00Z", EndTime: "2026-06-01T12:00:00Z", QuantityNeeded: 2})
	require.NoError(t, err)
	assert.NotZero(t, res.SlotID)
	assert.Equal(t, uint64(10), res.EventID)
}

func requireCode(t *testing.T, err error, want Code) {
	t.Helper()
	require.Error(t, err)
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, want, api.Code)
}
