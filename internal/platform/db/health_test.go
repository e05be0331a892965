package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
)

type fakeChecker struct {
	err error
}

func (f fakeChecker) Ping(context.Context) error { return f.err }

func (f fakeChecker) Stats() *PoolStats {
	return &PoolStats{TotalConns: 2, IdleConns: 1, AcquiredConns: 1, MaxConns: 20, Healthy: true}
}

func runHealth(t *testing.T, checker Checker) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := HealthHandler(checker)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec.Code, body
}

func TestHealthHandler_Healthy(t *testing.T) {
	code, body := runHealth(t, fakeChecker{})
	if code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
	pool, ok := body["pool"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected pool stats, got %v", body["pool"])
	}
	if pool["max_conns"] != float64(20) {
		t.Errorf("expected max_conns 20, got %v", pool["max_conns"])
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	code, body := runHealth(t, fakeChecker{err: errors.New("connection refused")})
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("expected unhealthy, got %v", body["status"])
	}
	if body["error"] != "connection refused" {
		t.Errorf("expected error message, got %v", body["error"])
	}
	pool := body["pool"].(map[string]interface{})
	if pool["healthy"] != false {
		t.Error("expected pool to be marked unhealthy")
	}
}

func TestHealthHandler_MemoryStore(t *testing.T) {
	code, body := runHealth(t, nil)
	if code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if body["store"] != "memory" {
		t.Errorf("expected memory store, got %v", body["store"])
	}
}

func TestHealthHandler_SQLite(t *testing.T) {
	sqlDB, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer sqlDB.Close()

	code, body := runHealth(t, SQLChecker{DB: sqlDB})
	if code != http.StatusOK {
		t.Errorf("expected 200, got %d: %v", code, body)
	}
	pool := body["pool"].(map[string]interface{})
	if pool["max_conns"] != float64(1) {
		t.Errorf("expected single sqlite connection, got %v", pool["max_conns"])
	}
}
