package db

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// Checker is a record store that can report its own health.
type Checker interface {
	Ping(ctx context.Context) error
	Stats() *PoolStats
}

// PGChecker reports on a pgx pool.
type PGChecker struct {
	Pool *pgxpool.Pool
}

func (p PGChecker) Ping(ctx context.Context) error { return p.Pool.Ping(ctx) }

func (p PGChecker) Stats() *PoolStats {
	stat := p.Pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// SQLChecker reports on a database/sql handle.
type SQLChecker struct {
	DB *sql.DB
}

func (s SQLChecker) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s SQLChecker) Stats() *PoolStats {
	stat := s.DB.Stats()
	return &PoolStats{
		TotalConns:      int32(stat.OpenConnections),
		IdleConns:       int32(stat.Idle),
		AcquiredConns:   int32(stat.InUse),
		MaxConns:        int32(stat.MaxOpenConnections),
		AcquireCount:    stat.WaitCount,
		AcquireDuration: stat.WaitDuration.String(),
		Healthy:         true,
	}
}

// HealthHandler returns a handler for the database health check endpoint.
// A nil checker reports the in-memory store as always healthy.
func HealthHandler(checker Checker) echo.HandlerFunc {
	return func(c echo.Context) error {
		if checker == nil {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"status": "healthy",
				"store":  "memory",
			})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := checker.Ping(ctx)
		stats := checker.Stats()

		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
