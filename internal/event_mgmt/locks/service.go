package locks

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Service serializes concurrent editors of one event. Advisory only: it
// guards the edit UI flow, not the database rows themselves.
type Service struct {
	store LockStore
	clock Clock
	ttl   time.Duration
}

func NewService(db *sql.DB, ttl time.Duration) *Service {
	return &Service{store: NewStore(db), clock: realClock{}, ttl: ttl}
}

func NewServiceWithStore(store LockStore, clock Clock, ttl time.Duration) *Service {
	return &Service{store: store, clock: clock, ttl: ttl}
}

// TryAcquire takes or renews the edit lock. A refusal is a normal result
// carrying the current holder, not an error.
func (s *Service) TryAcquire(ctx context.Context, eventID uint64, userID string) (AcquireResult, error) {
	if userID == "" {
		return AcquireResult{}, errors.New("user id is required")
	}
	now := s.clock.Now()

	l, err := s.store.Get(ctx, eventID)
	if err != nil {
		return AcquireResult{}, err
	}

	switch evaluate(l, userID, now, s.ttl) {
	case stateOther:
		return s.refused(l), nil
	case stateFree:
		if l == nil {
			err = s.store.Insert(ctx, &Lock{EventID: eventID, LockedBy: userID, LockedAt: now})
			if errors.Is(err, errDuplicate) {
				return s.lostRace(ctx, eventID, userID, now)
			}
			if err != nil {
				return AcquireResult{}, err
			}
			return s.granted(now), nil
		}
		fallthrough
	default: // stateMine, or expired row to take over
		ok, err := s.store.UpdateIfOwnerOrExpired(ctx, eventID, userID, now, now.Add(-s.ttl))
		if err != nil {
			return AcquireResult{}, err
		}
		if !ok {
			return s.lostRace(ctx, eventID, userID, now)
		}
		return s.granted(now), nil
	}
}

// Release drops the lock, but only for its owner. Releasing someone else's
// lock (stale tab, expired session) is a silent no-op.
func (s *Service) Release(ctx context.Context, eventID uint64, userID string) error {
	_, err := s.store.DeleteIfOwner(ctx, eventID, userID)
	return err
}

// Status is the read-only check used by list views.
func (s *Service) Status(ctx context.Context, eventID uint64) (LockStatus, error) {
	l, err := s.store.Get(ctx, eventID)
	if err != nil {
		return LockStatus{}, err
	}
	now := s.clock.Now()
	if l == nil || now.Sub(l.LockedAt) >= s.ttl {
		return LockStatus{Locked: false}, nil
	}
	exp := l.LockedAt.Add(s.ttl)
	return LockStatus{Locked: true, LockedBy: l.LockedBy, ExpiresAt: &exp}, nil
}

// MayEdit reports whether userID may write the event right now: the lock
// is free, expired, or already theirs. Returns the blocking holder otherwise.
func (s *Service) MayEdit(ctx context.Context, eventID uint64, userID string) (bool, string, error) {
	l, err := s.store.Get(ctx, eventID)
	if err != nil {
		return false, "", err
	}
	if evaluate(l, userID, s.clock.Now(), s.ttl) == stateOther {
		return false, l.LockedBy, nil
	}
	return true, "", nil
}

func (s *Service) granted(now time.Time) AcquireResult {
	exp := now.Add(s.ttl)
	return AcquireResult{Acquired: true, ExpiresAt: &exp}
}

func (s *Service) refused(l *Lock) AcquireResult {
	exp := l.LockedAt.Add(s.ttl)
	return AcquireResult{Acquired: false, LockedBy: l.LockedBy, ExpiresAt: &exp}
}

// lostRace re-reads after a failed insert/update. When the re-read shows
// ourselves as holder (same-second renewal), the lock is ours after all.
func (s *Service) lostRace(ctx context.Context, eventID uint64, userID string, now time.Time) (AcquireResult, error) {
	l, err := s.store.Get(ctx, eventID)
	if err != nil {
		return AcquireResult{}, err
	}
	if l != nil && evaluate(l, userID, now, s.ttl) == stateMine {
		return s.granted(l.LockedAt), nil
	}
	if l == nil {
		// winner released already; report free, caller may retry
		return AcquireResult{Acquired: false}, nil
	}
	return s.refused(l), nil
}
