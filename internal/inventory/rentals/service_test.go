package rentals

import (
	"context"
	"database/sql"
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

type mockRentalStore struct {
	checkouts []*Rental
	rentals   map[uint64]*Rental
	checkinFn func(rentalID uint64, goodQty, defectQty int) (*Rental, error)
}

func newMockRentalStore() *mockRentalStore {
	return &mockRentalStore{rentals: map[uint64]*Rental{}}
}

func (m *mockRentalStore) ExecCheckout(_ context.Context, r *Rental, _ string) error {
	r.RentalID = uint64(len(m.checkouts) + 1)
	r.Status = StatusActive
	m.checkouts = append(m.checkouts, r)
	m.rentals[r.RentalID] = r
	return nil
}

func (m *mockRentalStore) ExecCheckin(_ context.Context, rentalID uint64, goodQty, defectQty int, _, _ string, _ time.Time) (*Rental, error) {
	return m.checkinFn(rentalID, goodQty, defectQty)
}

func (m *mockRentalStore) GetRentalByID(_ context.Context, rentalID uint64) (*Rental, error) {
	r, ok := m.rentals[rentalID]
	if !ok {
		return nil, ErrNotFound("rental not found")
	}
	return r, nil
}

func (m *mockRentalStore) GetRentalByULID(_ context.Context, u string) (*Rental, error) {
	for _, r := range m.rentals {
		if r.RentalULID == u {
			return r, nil
		}
	}
	return nil, ErrNotFound("rental not found")
}

func (m *mockRentalStore) ListRentals(_ context.Context, _ RentalFilter, _ Page) ([]Rental, int64, error) {
	out := make([]Rental, 0, len(m.rentals))
	for _, r := range m.rentals {
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func newTestService(store *mockRentalStore, now time.Time) *Service {
	return NewServiceWithStore(store, fixedClock{t: now}, &seqIDGen{})
}

func TestCheckoutValidation(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestService(newMockRentalStore(), now)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{ItemID: 1, Amount: 0}, "alice")
	requireCode(t, err, CodeInvalidArgument)

	_, err = svc.Checkout(context.Background(), CheckoutRequest{ItemID: 0, Amount: 2}, "alice")
	requireCode(t, err, CodeInvalidArgument)

	past := "2026-05-01"
	_, err = svc.Checkout(context.Background(), CheckoutRequest{ItemID: 1, Amount: 2, ExpectedReturn: &past}, "alice")
	requireCode(t, err, CodeInvalidArgument)

	bad := "05/20/2026"
	_, err = svc.Checkout(context.Background(), CheckoutRequest{ItemID: 1, Amount: 2, ExpectedReturn: &bad}, "alice")
	requireCode(t, err, CodeInvalidArgument)
}

func TestCheckoutDefaultsBorrowerToActor(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	store := newMockRentalStore()
	svc := newTestService(store, now)

	res, err := svc.Checkout(context.Background(), CheckoutRequest{ItemID: 7, Amount: 3}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.UserID)
	assert.Equal(t, 3, res.Outstanding)
	assert.Equal(t, StatusActive, res.Status)
	require.Len(t, store.checkouts, 1)
	assert.NotEmpty(t, store.checkouts[0].RentalULID)
}

func TestCheckinRequiresDefectReason(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	store := newMockRentalStore()
	store.rentals[1] = &Rental{RentalID: 1, RentalULID: "01X", ItemID: 7, UserID: "alice", Amount: 3, Status: StatusActive}
	svc := newTestService(store, now)

	_, err := svc.Checkin(context.Background(), "1", CheckinRequest{ReturnedQuantity: 1, DefectiveQuantity: 1}, "bob")
	requireCode(t, err, CodeInvalidArgument)

	empty := "   "
	_, err = svc.Checkin(context.Background(), "1", CheckinRequest{DefectiveQuantity: 1, DefectReason: &empty}, "bob")
	requireCode(t, err, CodeInvalidArgument)
}

func TestCheckinResolvesNumericIDAndULID(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	store := newMockRentalStore()
	rental := &Rental{RentalID: 4, RentalULID: "01HXYZ", ItemID: 7, UserID: "alice", Amount: 2, Status: StatusActive}
	store.rentals[4] = rental
	store.checkinFn = func(rentalID uint64, goodQty, defectQty int) (*Rental, error) {
		require.Equal(t, uint64(4), rentalID)
		closed := *rental
		closed.ReturnedQuantity = goodQty
		closed.Status = StatusReturned
		closed.ActualReturn = sql.NullTime{Time: now, Valid: true}
		return &closed, nil
	}
	svc := newTestService(store, now)

	res, err := svc.Checkin(context.Background(), "01HXYZ", CheckinRequest{ReturnedQuantity: 2}, "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, res.Status)
	assert.Equal(t, 0, res.Outstanding)
	require.NotNil(t, res.ActualReturn)
}

func TestOverdueDerivation(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-48 * time.Hour)

	open := &Rental{RentalID: 1, Amount: 1, Status: StatusActive, ExpectedReturn: sql.NullTime{Time: due, Valid: true}}
	assert.True(t, open.OverdueAt(now))

	closed := &Rental{RentalID: 2, Amount: 1, Status: StatusReturned,
		ExpectedReturn: sql.NullTime{Time: due, Valid: true},
		ActualReturn:   sql.NullTime{Time: now, Valid: true}}
	assert.False(t, closed.OverdueAt(now))

	noDue := &Rental{RentalID: 3, Amount: 1, Status: StatusActive}
	assert.False(t, noDue.OverdueAt(now))
}

func requireCode(t *testing.T, err error, want Code) {
	t.Helper()
	require.Error(t, err)
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, want, api.Code)
}
