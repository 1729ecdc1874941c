package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Policy is a named fixed-window limit.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// Decision is the outcome of a single Check call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per (policy, identifier) pair in fixed windows
// that reset entirely on expiry. Unknown policies fail open.
type Limiter struct {
	mutex    sync.Mutex
	policies map[string]Policy
	windows  map[string]*window
	logger   *slog.Logger
}

func NewLimiter(logger *slog.Logger) *Limiter {
	return &Limiter{
		policies: make(map[string]Policy),
		windows:  make(map[string]*window),
		logger:   logger,
	}
}

// RegisterLimit stores a named policy, replacing any previous one.
func (l *Limiter) RegisterLimit(key string, policy Policy) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.policies[key] = policy
}

// Check counts one request by identifier against the named policy.
// An unregistered limitKey allows the request and logs a warning.
func (l *Limiter) Check(identifier, limitKey string) Decision {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	policy, ok := l.policies[limitKey]
	if !ok {
		l.logger.Warn("Unknown rate limit, allowing request",
			slog.String("limit", limitKey))
		return Decision{Allowed: true}
	}

	key := limitKey + ":" + identifier
	now := time.Now()

	w, exists := l.windows[key]
	if !exists || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(policy.Window)}
		return Decision{Allowed: true, Remaining: policy.MaxRequests - 1, ResetAt: l.windows[key].resetAt}
	}

	if w.count >= policy.MaxRequests {
		return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Decision{Allowed: true, Remaining: policy.MaxRequests - w.count, ResetAt: w.resetAt}
}

// Cleanup deletes every window whose reset time has passed and returns
// how many were removed. The caller owns the periodic timer.
func (l *Limiter) Cleanup() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := time.Now()
	removed := 0
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}
