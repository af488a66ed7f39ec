package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jrrjunior25/pdv-fiscal/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health probes Postgres and Redis and reports the SEFAZ circuit state.
// Returns 503 when a hard dependency is down; an open circuit alone does
// not fail the check, sales keep working while issuance is degraded.
func Health(db *gorm.DB, rdb *redis.Client, cb *infra.CircuitBreaker) gin.HandlerFunc {
	type probe func(context.Context) error

	probes := map[string]probe{
		"db": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		body := gin.H{"sefaz": cb.State().String()}
		healthy := true
		for name, check := range probes {
			if err := check(ctx); err != nil {
				body[name] = "error"
				healthy = false
			} else {
				body[name] = "connected"
			}
		}
		body["ok"] = healthy

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, body)
	}
}
