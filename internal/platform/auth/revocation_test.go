package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestRevocations(now time.Time) (*Revocations, *time.Time) {
	r := NewRevocations()
	clock := now
	r.now = func() time.Time { return clock }
	return r, &clock
}

func TestRevocations_RevokeAndIsRevoked(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r, _ := newTestRevocations(base)

	r.Revoke("jti-1", "user-1", base.Add(time.Hour))

	if !r.IsRevoked("jti-1") {
		t.Error("expected jti-1 to be revoked")
	}
	if r.IsRevoked("jti-2") {
		t.Error("expected unknown jti to not be revoked")
	}
	if r.IsRevoked("") {
		t.Error("empty jti is never revoked")
	}
}

func TestRevocations_ExpiredEntryNotRevoked(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r, clock := newTestRevocations(base)
	r.Revoke("jti-1", "", base.Add(time.Minute))

	*clock = base.Add(2 * time.Minute)
	if r.IsRevoked("jti-1") {
		t.Error("expired revocation should no longer apply")
	}
	if r.Len() != 1 {
		t.Errorf("expected entry kept until sweep, Len = %d", r.Len())
	}
}

func TestRevocations_Sweep(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r, clock := newTestRevocations(base)
	r.Revoke("short", "u", base.Add(time.Minute))
	r.Revoke("long", "u", base.Add(time.Hour))

	*clock = base.Add(5 * time.Minute)
	if removed := r.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if r.Len() != 1 || !r.IsRevoked("long") {
		t.Error("expected only the unexpired entry to remain")
	}
}

func TestRevocations_Entries(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r, _ := newTestRevocations(base)
	r.Revoke("b", "user-2", base.Add(2*time.Hour))
	r.Revoke("a", "user-1", base.Add(time.Hour))

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].JTI != "a" || entries[0].UserID != "user-1" {
		t.Errorf("entries not ordered by expiry: %+v", entries)
	}
}

func TestRevocations_Run(t *testing.T) {
	r := NewRevocations()
	r.Revoke("gone", "", time.Now().Add(-time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for r.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("Run did not sweep the expired entry")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRevocations_ConcurrentAccess(t *testing.T) {
	r := NewRevocations()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Revoke(fmt.Sprintf("jti-%d", i), "u", time.Now().Add(time.Hour))
		}(i)
		go func(i int) {
			defer wg.Done()
			r.IsRevoked(fmt.Sprintf("jti-%d", i))
		}(i)
	}
	wg.Wait()
	if r.Len() != 50 {
		t.Errorf("Len = %d, want 50", r.Len())
	}
}
