package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AO-Miko/Discord-Bot/internal/circuitbreaker"
	"github.com/AO-Miko/Discord-Bot/internal/faults"
	"github.com/AO-Miko/Discord-Bot/internal/metrics"
)

// Result carries a fetched payload plus its provenance, so callers can
// tell a live response from a cache hit or a stale fallback.
type Result struct {
	Data     json.RawMessage
	Endpoint string
	Cached   bool
	Stale    bool
}

// Manager orchestrates requests across the prioritized endpoints of
// registered APIs, consulting breakers and the response cache around a
// retrying fetcher.
type Manager struct {
	mutex     sync.RWMutex
	apis      map[string]*api
	breakers  *circuitbreaker.Registry
	cache     *Cache
	fetcher   *Fetcher
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewManager builds a manager with its own breaker registry and cache.
// collector may be nil when metrics are not wanted.
func NewManager(logger *slog.Logger, collector *metrics.Collector) *Manager {
	return &Manager{
		apis:      make(map[string]*api),
		breakers:  circuitbreaker.NewRegistry(),
		cache:     NewCache(),
		fetcher:   NewFetcher(logger),
		collector: collector,
		logger:    logger,
	}
}

// Fetcher exposes the underlying fetcher so the composition root can
// tune its HTTP client.
func (m *Manager) Fetcher() *Fetcher {
	return m.fetcher
}

// RegisterAPI stores the endpoint list for name, primary first at
// priority 1 and fallbacks at 2..N in input order. Re-registration
// replaces the previous config and resets every breaker for the API.
func (m *Manager) RegisterAPI(name string, cfg APIConfig) error {
	if name == "" {
		return &faults.ConfigError{Msg: "API name cannot be empty"}
	}
	if cfg.BaseURL == "" {
		return &faults.ConfigError{Msg: fmt.Sprintf("API %q has no base URL", name)}
	}

	a := buildAPI(name, cfg)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.breakers.DropPrefix(name + "|")
	for _, ep := range a.endpoints {
		m.breakers.Register(breakerKey(name, ep.URL), a.threshold, a.reset)
	}
	m.apis[name] = a

	m.logger.Info("Registered API",
		slog.String("api", name),
		slog.Int("endpoints", len(a.endpoints)))

	return nil
}

// Request fetches path from the named API, walking endpoints in
// priority order. A fresh cache entry short-circuits the network
// entirely; on total failure a stale entry is returned as last resort
// before giving up with an UpstreamError.
func (m *Manager) Request(ctx context.Context, apiName, path string, opts Options, cacheTTL time.Duration) (Result, error) {
	m.mutex.RLock()
	a, ok := m.apis[apiName]
	m.mutex.RUnlock()

	if !ok {
		return Result{}, &faults.ConfigError{Msg: fmt.Sprintf("API not found: %s", apiName)}
	}

	key := cacheKey(apiName, path)

	if cacheTTL > 0 {
		if data, ok := m.cache.Fresh(key); ok {
			m.emit(metrics.Event{Type: metrics.EventCacheHit, Timestamp: time.Now(), API: apiName})
			return Result{Data: data, Cached: true}, nil
		}
	}

	var lastErr error

	for _, ep := range a.endpoints {
		breaker := m.breakers.Get(breakerKey(apiName, ep.URL))
		if breaker != nil && !breaker.Allow() {
			m.logger.Debug("Skipping endpoint, circuit open",
				slog.String("api", apiName),
				slog.String("endpoint", ep.URL))
			continue
		}

		start := time.Now()
		data, err := m.fetcher.Fetch(ctx, ep.URL+path, opts, a.timeoutFor(ep), a.retriesFor(ep))
		if err != nil {
			if breaker != nil {
				breaker.RecordFailure()
			}
			lastErr = err
			m.emit(metrics.Event{Type: metrics.EventEndpointFailure, Timestamp: time.Now(), API: apiName, Endpoint: ep.URL})
			m.logger.Warn("Endpoint failed",
				slog.String("api", apiName),
				slog.String("endpoint", ep.URL),
				slog.Int("priority", ep.Priority),
				slog.String("error", err.Error()))
			continue
		}

		if breaker != nil {
			breaker.RecordSuccess()
		}
		if cacheTTL > 0 {
			m.cache.Put(key, data, cacheTTL)
		}
		m.emit(metrics.Event{
			Type:      metrics.EventRequestCompleted,
			Timestamp: time.Now(),
			API:       apiName,
			Endpoint:  ep.URL,
			Duration:  time.Since(start),
		})
		return Result{Data: data, Endpoint: ep.URL}, nil
	}

	if data, ok := m.cache.Any(key); ok {
		m.emit(metrics.Event{Type: metrics.EventStaleFallback, Timestamp: time.Now(), API: apiName})
		m.logger.Warn("All endpoints unavailable, serving stale cache",
			slog.String("api", apiName),
			slog.String("path", path))
		return Result{Data: data, Cached: true, Stale: true}, nil
	}

	m.emit(metrics.Event{Type: metrics.EventRequestFailed, Timestamp: time.Now(), API: apiName})
	return Result{}, &faults.UpstreamError{API: apiName, Err: lastErr}
}

// BreakerStats returns breaker snapshots grouped by API name, keyed by
// endpoint URL within each API.
func (m *Manager) BreakerStats() map[string]map[string]circuitbreaker.Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := make(map[string]map[string]circuitbreaker.Snapshot, len(m.apis))
	for name, a := range m.apis {
		perEndpoint := make(map[string]circuitbreaker.Snapshot, len(a.endpoints))
		for _, ep := range a.endpoints {
			if b := m.breakers.Get(breakerKey(name, ep.URL)); b != nil {
				perEndpoint[ep.URL] = circuitbreaker.Snapshot{State: b.State(), Failures: b.Failures()}
			}
		}
		stats[name] = perEndpoint
	}
	return stats
}

// ClearCache drops every cached response.
func (m *Manager) ClearCache() {
	m.cache.Clear()
}

func (m *Manager) emit(event metrics.Event) {
	if m.collector == nil {
		return
	}
	m.collector.Emit(event)
}

func cacheKey(apiName, path string) string {
	return apiName + ":" + path
}

func breakerKey(apiName, url string) string {
	return apiName + "|" + url
}
