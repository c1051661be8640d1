package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jakecourtright/HayFlow/internal/database"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	db     *gorm.DB
	redis  redis.UniversalClient
	logger *zap.Logger
}

// NewHealthHandler takes an optional redis client; nil skips the cache check
func NewHealthHandler(db *gorm.DB, rdb redis.UniversalClient, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb, logger: logger}
}

// Live godoc
// @Summary Liveness probe
// @Tags Health
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Database godoc
// @Summary Database health with pool statistics
// @Tags Health
// @Produce json
// @Success 200 {object} database.HealthStats
// @Failure 503 {object} database.HealthStats
// @Router /health/db [get]
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	stats := database.HealthCheckWithStats(r.Context(), h.db)
	status := http.StatusOK
	if stats.Status != "healthy" {
		h.logger.Error("database health check failed", zap.String("error", stats.Error))
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, stats)
}

// Ready godoc
// @Summary Readiness probe
// @Description Checks the database and, when enabled, Redis
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	healthy := true

	if err := database.HealthCheck(r.Context(), h.db); err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		checks["database"] = map[string]string{"status": "unhealthy", "error": err.Error()}
		healthy = false
	} else {
		checks["database"] = map[string]string{"status": "healthy"}
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.logger.Error("redis health check failed", zap.Error(err))
			checks["redis"] = map[string]string{"status": "unhealthy", "error": err.Error()}
			healthy = false
		} else {
			checks["redis"] = map[string]string{"status": "healthy"}
		}
	}

	status, label := http.StatusOK, "healthy"
	if !healthy {
		status, label = http.StatusServiceUnavailable, "unhealthy"
	}
	respondJSON(w, status, map[string]interface{}{
		"status": label,
		"checks": checks,
	})
}
