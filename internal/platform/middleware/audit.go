package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/oralvis/oralvis/internal/platform/auth"
)

const scansPrefix = "/api/v1/scans"

// AuditEntry records one access to patient scan data: who, what, when and
// the outcome.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	Action     string // upload, list, read, update_status, view_url
	ScanID     string
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every request under /api/v1/scans as a scan access event. The
// entry is built after the handler runs so it carries the final status.
// Recorders, when given, receive the entry as well.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}

			ctx := req.Context()
			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: status,
			}
			entry.RequestID, _ = c.Get("request_id").(string)
			entry.ScanID, entry.Action = scanAction(req.Method, path)

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			evt := logger.Info()
			if status == http.StatusForbidden || status == http.StatusUnauthorized {
				evt = logger.Warn()
			}
			evt.
				Str("type", "scan_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("action", entry.Action).
				Str("scan_id", entry.ScanID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("scan_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return path == scansPrefix || strings.HasPrefix(path, scansPrefix+"/")
}

// scanAction classifies a scans request. Paths look like:
//   - /api/v1/scans
//   - /api/v1/scans/{id}
//   - /api/v1/scans/{id}/status
//   - /api/v1/scans/{id}/signed-url
func scanAction(method, path string) (scanID, action string) {
	rest := strings.Trim(strings.TrimPrefix(path, scansPrefix), "/")
	if rest == "" {
		if method == http.MethodPost {
			return "", "upload"
		}
		return "", "list"
	}

	segments := strings.Split(rest, "/")
	if _, err := uuid.Parse(segments[0]); err == nil {
		scanID = segments[0]
	}
	if len(segments) == 1 {
		return scanID, "read"
	}
	switch segments[1] {
	case "status":
		return scanID, "update_status"
	case "signed-url":
		return scanID, "view_url"
	default:
		return scanID, "read"
	}
}
