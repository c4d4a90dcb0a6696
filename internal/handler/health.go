package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/adisetya/collection-engine/pkg/response"
)

// HealthHandler serves the worker's operational endpoints: liveness, and
// readiness over the stores the consumer depends on.
type HealthHandler struct {
	db        *sqlx.DB
	redis     *redis.Client
	queueKey  string
	startedAt time.Time
}

func NewHealthHandler(db *sqlx.DB, redis *redis.Client, queueKey string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		queueKey:  queueKey,
		startedAt: time.Now(),
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

func (h *HealthHandler) status() HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Checks:    make(map[string]string),
	}
}

// Health reports liveness only; it never touches the stores.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.status())
}

// Ready checks database and redis connectivity and reports the current
// depth of the task queue. The worker is not ready when either store is
// unreachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.status()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		status.Status = "error"
		status.Checks["database"] = "failed: " + err.Error()
	} else {
		status.Checks["database"] = "ok"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		status.Status = "error"
		status.Checks["redis"] = "failed: " + err.Error()
	} else {
		status.Checks["redis"] = "ok"

		// Informational: a growing depth means the consumer is falling
		// behind, but it does not gate readiness.
		if depth, err := h.redis.LLen(ctx, h.queueKey).Result(); err == nil {
			status.Checks["queue_depth"] = strconv.FormatInt(depth, 10)
		}
	}

	if status.Status == "error" {
		response.Error(w, http.StatusServiceUnavailable, "Service not ready", nil)
		return
	}

	response.Success(w, status)
}
