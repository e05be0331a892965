package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/oralvis/oralvis/internal/platform/auth"
)

// mockRecorder collects audit entries for assertions.
type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) last() AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func newTestContext(method, path string, opts ...func(*http.Request)) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withAuth(userID string, roles ...string) func(*http.Request) {
	return func(req *http.Request) {
		*req = *req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID, Roles: roles}))
	}
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAudit_ScanRead(t *testing.T) {
	rec := &mockRecorder{}
	scanID := uuid.New().String()

	c, _ := newTestContext(http.MethodGet, "/api/v1/scans/"+scanID, withAuth("dent-1", auth.RoleDentist))
	c.Set("request_id", "req-abc")

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 audit entry, got %d", rec.count())
	}
	entry := rec.last()
	if entry.UserID != "dent-1" {
		t.Errorf("expected user_id 'dent-1', got %q", entry.UserID)
	}
	if entry.ScanID != scanID {
		t.Errorf("expected scan_id %q, got %q", scanID, entry.ScanID)
	}
	if entry.Action != "read" {
		t.Errorf("expected action 'read', got %q", entry.Action)
	}
	if entry.RequestID != "req-abc" {
		t.Errorf("expected request_id 'req-abc', got %q", entry.RequestID)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", entry.StatusCode)
	}
}

func TestScanAction(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		method     string
		path       string
		wantID     string
		wantAction string
	}{
		{http.MethodGet, "/api/v1/scans", "", "list"},
		{http.MethodPost, "/api/v1/scans", "", "upload"},
		{http.MethodGet, "/api/v1/scans/" + id, id, "read"},
		{http.MethodPatch, "/api/v1/scans/" + id + "/status", id, "update_status"},
		{http.MethodPost, "/api/v1/scans/" + id + "/signed-url", id, "view_url"},
		{http.MethodGet, "/api/v1/scans/not-a-uuid", "", "read"},
	}
	for _, tt := range tests {
		gotID, gotAction := scanAction(tt.method, tt.path)
		if gotID != tt.wantID || gotAction != tt.wantAction {
			t.Errorf("scanAction(%s %s) = (%q, %q), want (%q, %q)",
				tt.method, tt.path, gotID, gotAction, tt.wantID, tt.wantAction)
		}
	}
}

func TestAudit_SkipsOtherPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics", "/api/v1/me", "/api/v1/scansx", "/objects/u/1.jpg"} {
		rec := &mockRecorder{}
		c, _ := newTestContext(http.MethodGet, path)
		if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
			t.Fatalf("%s: unexpected error: %v", path, err)
		}
		if rec.count() != 0 {
			t.Errorf("%s: expected no audit entry, got %d", path, rec.count())
		}
	}
}

func TestAudit_CapturesHandlerErrorStatus(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodPatch, "/api/v1/scans/"+uuid.NewString()+"/status", withAuth("tech-1", auth.RoleTechnician))

	forbidden := func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "required role: dentist")
	}
	err := Audit(zerolog.Nop(), rec)(forbidden)(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Fatalf("expected the handler's 403 to propagate, got %v", err)
	}
	if got := rec.last().StatusCode; got != http.StatusForbidden {
		t.Errorf("expected audited status 403, got %d", got)
	}
}

func TestAudit_RecorderFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	rec := &mockRecorder{err: errors.New("disk full")}
	c, _ := newTestContext(http.MethodGet, "/api/v1/scans", withAuth("tech-1", auth.RoleTechnician))

	if err := Audit(zerolog.New(&buf), rec)(okHandler)(c); err != nil {
		t.Fatalf("recorder errors must not fail the request: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "failed to record audit entry") {
		t.Errorf("expected recorder failure to be logged, got %s", out)
	}
	if !strings.Contains(out, `"type":"scan_audit"`) {
		t.Errorf("expected scan_audit log line, got %s", out)
	}
}

func TestAudit_RecorderFunc(t *testing.T) {
	var got []AuditEntry
	fn := AuditRecorderFunc(func(e AuditEntry) error {
		got = append(got, e)
		return nil
	})
	c, _ := newTestContext(http.MethodPost, "/api/v1/scans", withAuth("tech-1", auth.RoleTechnician))

	if err := Audit(zerolog.Nop(), fn)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Action != "upload" {
		t.Fatalf("expected one upload entry, got %+v", got)
	}
	if len(got[0].UserRoles) != 1 || got[0].UserRoles[0] != auth.RoleTechnician {
		t.Errorf("expected technician role, got %v", got[0].UserRoles)
	}
}
