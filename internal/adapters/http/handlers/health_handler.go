package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler - liveness / readiness probes.
type HealthHandler struct {
	pool    *pgxpool.Pool
	redis   *redis.Client
	version string
}

// NewHealthHandler создаёт новый HealthHandler.
func NewHealthHandler(pool *pgxpool.Pool, redisClient *redis.Client, version string) *HealthHandler {
	return &HealthHandler{pool: pool, redis: redisClient, version: version}
}

// Health - liveness: процесс жив.
//
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().UTC(),
	})
}

// Ready - readiness: зависимости доступны.
//
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":    map[bool]string{true: "ready", false: "degraded"}[healthy],
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
