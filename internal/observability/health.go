package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckFunc 相依服務的健康檢查 (例如資料庫 Ping)
type CheckFunc func(ctx context.Context) error

// checkTimeout 單一相依檢查的上限
const checkTimeout = 2 * time.Second

// HealthChecker liveness 與 readiness 狀態
type HealthChecker struct {
	ready     atomic.Bool
	startTime time.Time

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		checks:    make(map[string]CheckFunc),
	}
}

// AddCheck 註冊相依檢查，任一檢查失敗時 /healthz 回 503
func (h *HealthChecker) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// failures 執行所有相依檢查，回傳失敗的檢查與原因
func (h *HealthChecker) failures(ctx context.Context) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	failed := make(map[string]string)
	for name, check := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		if err := check(checkCtx); err != nil {
			failed[name] = err.Error()
		}
		cancel()
	}
	return failed
}

// SetReady 標記服務可接受流量 (帳本恢復完成之後)
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// ServeHTTP /healthz：就緒且相依服務正常回 200，否則 503
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{
		"status": "ready",
		"uptime": time.Since(h.startTime).String(),
	}
	switch failed := h.failures(r.Context()); {
	case !h.ready.Load():
		body["status"] = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	case len(failed) > 0:
		body["status"] = "degraded"
		body["failed"] = failed
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(body)
}

// NewHTTPHandler /metrics 與 /healthz
func NewHTTPHandler(gatherer prometheus.Gatherer, health *HealthChecker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)
	return mux
}
