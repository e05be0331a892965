// Package dashboard holds the client-side flows behind the OralVis
// dashboard: composing the role-specific view, the upload form and the scan
// list with its per-record status updates. Flows talk to the server through
// API and report outcomes through a Notifier; callers render the state.
package dashboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oralvis/oralvis/internal/domain/scans"
)

// API is the subset of the OralVis server the dashboard flows call.
type API interface {
	UploadScan(ctx context.Context, in scans.UploadInput) (*scans.Scan, error)
	ListScans(ctx context.Context) ([]*scans.Scan, error)
	UpdateScanStatus(ctx context.Context, id uuid.UUID, status string) (*scans.Scan, error)
	SignedURL(ctx context.Context, id uuid.UUID) (string, error)
}

// Notification is a transient message shown to the user.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
}

type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a zerolog logger. Destructive ones log
// at warn level.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (l LogNotifier) Notify(n Notification) {
	evt := l.Logger.Info()
	if n.Destructive {
		evt = l.Logger.Warn()
	}
	evt.Str("description", n.Description).Msg(n.Title)
}

func failure(title string, err error) Notification {
	return Notification{Title: title, Description: err.Error(), Destructive: true}
}
