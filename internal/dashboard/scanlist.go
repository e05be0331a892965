package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/oralvis/oralvis/internal/domain/scans"
	"github.com/oralvis/oralvis/internal/platform/auth"
)

// ErrUpdateInFlight is returned when a status change is requested for a scan
// whose previous change has not finished.
var ErrUpdateInFlight = errors.New("status update already in progress")

// ScanList is the caller's list of scans. It is loaded on Refresh and then
// patched in place by SetStatus; nothing re-fetches behind the caller's back.
type ScanList struct {
	api      API
	notify   Notifier
	identity auth.Identity
	now      func() time.Time

	mu       sync.Mutex
	items    []*scans.Scan
	loading  bool
	updating map[uuid.UUID]bool
}

func NewScanList(api API, notify Notifier, id auth.Identity) *ScanList {
	return &ScanList{
		api:      api,
		notify:   notify,
		identity: id,
		now:      time.Now,
		loading:  true,
		updating: make(map[uuid.UUID]bool),
	}
}

// Refresh loads the list from the server. On failure the previous items are
// kept and an error notification is shown.
func (l *ScanList) Refresh(ctx context.Context) error {
	l.mu.Lock()
	l.loading = true
	l.mu.Unlock()

	items, err := l.api.ListScans(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		l.notify.Notify(failure("Error Loading Scans", err))
		return err
	}
	if items == nil {
		items = []*scans.Scan{}
	}
	l.items = items
	return nil
}

// Loading reports whether the first load has not completed yet.
func (l *ScanList) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Items returns copies of the current entries, newest first.
func (l *ScanList) Items() []scans.Scan {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]scans.Scan, len(l.items))
	for i, s := range l.items {
		out[i] = *s
	}
	return out
}

// IsUpdating reports whether a status change for id is in flight. The
// record's status control is disabled while it is.
func (l *ScanList) IsUpdating(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updating[id]
}

// SetStatus changes a scan's status on the server and, on success, patches
// only that entry in the local list. A second call for the same scan while
// the first is in flight is refused without contacting the server. The
// in-flight mark is cleared whatever the outcome.
func (l *ScanList) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	l.mu.Lock()
	if l.updating[id] {
		l.mu.Unlock()
		return ErrUpdateInFlight
	}
	l.updating[id] = true
	l.mu.Unlock()

	_, err := l.api.UpdateScanStatus(ctx, id, status)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.updating, id)
	if err != nil {
		l.notify.Notify(failure("Update Failed", err))
		return err
	}
	for _, s := range l.items {
		if s.ID == id {
			s.Status = status
			break
		}
	}
	l.notify.Notify(Notification{
		Title:       "Status Updated",
		Description: fmt.Sprintf("Scan status has been updated to %s.", status),
	})
	return nil
}

// ViewURL requests a signed URL for the scan's file. Failures are notified
// and leave the list untouched.
func (l *ScanList) ViewURL(ctx context.Context, id uuid.UUID) (string, error) {
	u, err := l.api.SignedURL(ctx, id)
	if err != nil {
		l.notify.Notify(failure("Error Opening Scan", err))
		return "", err
	}
	return u, nil
}

func (l *ScanList) Heading() string { return scans.ListHeading(l.identity) }

func (l *ScanList) EmptyMessage() string { return scans.EmptyMessage(l.identity) }

// CountLabel renders the count badge for the current entries.
func (l *ScanList) CountLabel() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return scans.CountLabel(len(l.items))
}

// Card is the display form of one list entry.
type Card struct {
	ID           uuid.UUID `json:"id"`
	PatientName  string    `json:"patient_name"`
	ScanType     string    `json:"scan_type"`
	PatientID    string    `json:"patient_id,omitempty"`
	Status       string    `json:"status"`
	Uploaded     string    `json:"uploaded"`
	Size         string    `json:"size"`
	Notes        string    `json:"notes,omitempty"`
	CanSetStatus bool      `json:"can_set_status"`
	Updating     bool      `json:"updating"`
}

// Cards renders the current entries for display. Status controls are only
// offered to dentists.
func (l *ScanList) Cards() []Card {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	canSet := l.identity.HasRole(auth.RoleDentist)

	cards := make([]Card, 0, len(l.items))
	for _, s := range l.items {
		c := Card{
			ID:           s.ID,
			PatientName:  s.PatientName,
			ScanType:     s.TypeDisplay(),
			Status:       s.Status,
			Uploaded:     humanize.RelTime(s.CreatedAt, now, "ago", "from now"),
			Size:         s.SizeDisplay(),
			CanSetStatus: canSet,
			Updating:     l.updating[s.ID],
		}
		if s.PatientID != nil {
			c.PatientID = *s.PatientID
		}
		if s.Notes != nil {
			c.Notes = *s.Notes
		}
		cards = append(cards, c)
	}
	return cards
}
