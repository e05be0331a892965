package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultSweepInterval is how often Run drops expired revocations.
const DefaultSweepInterval = 5 * time.Minute

type revocation struct {
	userID    string
	expiresAt time.Time
}

// RevocationInfo is a public representation of a revocation entry.
type RevocationInfo struct {
	JTI       string    `json:"jti"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Revocations is the set of signed-out bearer tokens, keyed by JWT ID.
// An entry is only kept until the token would have expired on its own.
// Safe for concurrent use.
type Revocations struct {
	mu      sync.RWMutex
	entries map[string]revocation
	now     func() time.Time
}

func NewRevocations() *Revocations {
	return &Revocations{
		entries: make(map[string]revocation),
		now:     time.Now,
	}
}

// Revoke marks the token with the given ID as signed out until expiresAt.
func (r *Revocations) Revoke(jti, userID string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[jti] = revocation{userID: userID, expiresAt: expiresAt}
}

// IsRevoked reports whether jti has been signed out and has not yet expired.
func (r *Revocations) IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[jti]
	return ok && r.now().Before(e.expiresAt)
}

// Len returns the number of tracked revocations, expired ones included
// until the next sweep.
func (r *Revocations) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Entries returns a snapshot ordered by expiry, soonest first.
func (r *Revocations) Entries() []RevocationInfo {
	r.mu.RLock()
	out := make([]RevocationInfo, 0, len(r.entries))
	for jti, e := range r.entries {
		out = append(out, RevocationInfo{JTI: jti, UserID: e.userID, ExpiresAt: e.expiresAt})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].JTI < out[j].JTI
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}

// Sweep drops entries whose tokens have expired and returns how many were
// removed.
func (r *Revocations) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for jti, e := range r.entries {
		if !now.Before(e.expiresAt) {
			delete(r.entries, jti)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (r *Revocations) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
