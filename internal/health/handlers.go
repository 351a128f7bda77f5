package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingFacade(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker       Checker
	FacadeTimeout time.Duration
	RedisTimeout  time.Duration
	// RedisEnabled distinguishes "cache down" from "cache not configured";
	// only the former degrades readiness.
	RedisEnabled bool
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	facadeStatus := "ok"
	if err := h.Checker.PingFacade(ctx, h.facadeTimeout()); err != nil {
		facadeStatus = err.Error()
	}
	redisStatus := "disabled"
	if h.RedisEnabled {
		redisStatus = "ok"
		if err := h.Checker.PingRedis(ctx, h.redisTimeout()); err != nil {
			redisStatus = err.Error()
		}
	}
	status := map[string]string{
		"facade": facadeStatus,
		"redis":  redisStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	if facadeStatus != "ok" || (h.RedisEnabled && redisStatus != "ok") {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) facadeTimeout() time.Duration {
	if h.FacadeTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.FacadeTimeout
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
