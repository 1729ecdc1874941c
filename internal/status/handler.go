package status

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AO-Miko/Discord-Bot/internal/health"
	"github.com/AO-Miko/Discord-Bot/internal/metrics"
	"github.com/AO-Miko/Discord-Bot/internal/ratelimit"
	"github.com/AO-Miko/Discord-Bot/internal/upstream"
)

// WebLimitKey is the rate limit policy the status surface checks
// against per client IP.
const WebLimitKey = "web"

type Handler struct {
	logger    *slog.Logger
	checker   *health.Checker
	collector *metrics.Collector
	manager   *upstream.Manager
	limiter   *ratelimit.Limiter
}

func NewHandler(
	logger *slog.Logger,
	checker *health.Checker,
	collector *metrics.Collector,
	manager *upstream.Manager,
	limiter *ratelimit.Limiter,
) *Handler {
	return &Handler{
		logger:    logger,
		checker:   checker,
		collector: collector,
		manager:   manager,
		limiter:   limiter,
	}
}

// RateLimit is mux middleware enforcing the "web" policy per client IP.
func (h *Handler) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		decision := h.limiter.Check(clientIP, WebLimitKey)

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)

			h.logger.Warn("Rate limited status request",
				slog.String("client", clientIP),
				slog.String("path", r.URL.Path))
			return
		}

		if decision.Remaining >= 0 {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}
		next.ServeHTTP(w, r)
	})
}

// Status serves the latest health report. Unhealthy reports get a 503
// so external monitors can alert on the status code alone.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Last()

	code := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, report)
}

// Metrics serves the collector snapshot plus current breaker states.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	payload := struct {
		metrics.Snapshot
		Breakers any `json:"breakers"`
	}{
		Snapshot: h.collector.Snapshot(),
		Breakers: h.manager.BreakerStats(),
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
