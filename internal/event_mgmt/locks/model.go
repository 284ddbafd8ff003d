package locks

import "time"

// Lock is one row of event_locks. One row per event at most; a row older
// than the TTL counts as free. Nothing sweeps expired rows, expiry is
// evaluated wherever the row is read.
type Lock struct {
	EventID  uint64
	LockedBy string
	LockedAt time.Time
}

type holdState int

const (
	stateFree holdState = iota // no row, or row expired
	stateMine                  // held by the asking user, renewable
	stateOther                 // held by someone else, unexpired
)

// evaluate classifies a lock row relative to one user at one point in time.
func evaluate(l *Lock, userID string, now time.Time, ttl time.Duration) holdState {
	if l == nil {
		return stateFree
	}
	if now.Sub(l.LockedAt) >= ttl {
		return stateFree
	}
	if l.LockedBy == userID {
		return stateMine
	}
	return stateOther
}

type AcquireResult struct {
	Acquired  bool       `json:"acquired"`
	LockedBy  string     `json:"locked_by,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type LockStatus struct {
	Locked    bool       `json:"locked"`
	LockedBy  string     `json:"locked_by,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
