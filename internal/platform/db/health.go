package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// coreRelations are the tables the instance cannot serve without. The
// sessions table is created at startup, the clinical tables by the migrator;
// a missing one means a bootstrap or migration step was skipped.
var coreRelations = []string{"sessions", "users", "patients"}

// PoolStats is the connection pool snapshot reported alongside the probe.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func poolStats(pool *pgxpool.Pool) PoolStats {
	stat := pool.Stat()
	return PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// healthStatus classifies a probe. A failed ping means the database is
// unreachable; a reachable database missing a core relation is degraded and
// equally unfit to serve.
func healthStatus(pingErr error, relations map[string]bool) string {
	if pingErr != nil {
		return "down"
	}
	for _, present := range relations {
		if !present {
			return "degraded"
		}
	}
	return "ok"
}

// HealthHandler probes the database and the relations the record keeper
// depends on. Anything but "ok" answers 503 so load balancers drain the
// instance.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		pingErr := pool.Ping(ctx)

		relations := make(map[string]bool, len(coreRelations))
		if pingErr == nil {
			for _, rel := range coreRelations {
				var reg *string
				err := pool.QueryRow(ctx, `SELECT to_regclass($1)::text`, rel).Scan(&reg)
				relations[rel] = err == nil && reg != nil
			}
		}

		status := healthStatus(pingErr, relations)
		body := map[string]interface{}{
			"status":    status,
			"pool":      poolStats(pool),
			"relations": relations,
		}
		if pingErr != nil {
			body["error"] = pingErr.Error()
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, body)
	}
}
