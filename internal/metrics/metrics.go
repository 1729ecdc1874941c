package metrics

import (
	"sort"
	"sync"
	"time"
)

// keep at most this many samples per API for percentile math
const maxLatencySamples = 1000

type Metrics struct {
	mutex            sync.RWMutex
	requests         map[string]int64
	cacheHits        map[string]int64
	staleFallbacks   map[string]int64
	failedRequests   map[string]int64
	endpointFailures map[string]map[string]int64
	latencies        map[string][]time.Duration
	startTime        time.Time
}

type Snapshot struct {
	TotalRequests int64                 `json:"total_requests"`
	Uptime        time.Duration         `json:"uptime"`
	APIs          map[string]APIMetrics `json:"apis"`
}

type APIMetrics struct {
	Requests         int64            `json:"requests"`
	CacheHits        int64            `json:"cache_hits"`
	StaleFallbacks   int64            `json:"stale_fallbacks"`
	FailedRequests   int64            `json:"failed_requests"`
	EndpointFailures map[string]int64 `json:"endpoint_failures,omitempty"`
	AvgLatency       time.Duration    `json:"avg_latency"`
	P50Latency       time.Duration    `json:"p50_latency"`
	P95Latency       time.Duration    `json:"p95_latency"`
	P99Latency       time.Duration    `json:"p99_latency"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:         make(map[string]int64),
		cacheHits:        make(map[string]int64),
		staleFallbacks:   make(map[string]int64),
		failedRequests:   make(map[string]int64),
		endpointFailures: make(map[string]map[string]int64),
		latencies:        make(map[string][]time.Duration),
		startTime:        time.Now(),
	}
}

func (m *Metrics) RecordCacheHit(api string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[api]++
	m.cacheHits[api]++
}

func (m *Metrics) RecordEndpointFailure(api, endpoint string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.endpointFailures[api] == nil {
		m.endpointFailures[api] = make(map[string]int64)
	}
	m.endpointFailures[api][endpoint]++
}

func (m *Metrics) RecordCompleted(api, endpoint string, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.requests[api]++
	m.latencies[api] = append(m.latencies[api], duration)
	if len(m.latencies[api]) > maxLatencySamples {
		m.latencies[api] = m.latencies[api][1:]
	}
}

func (m *Metrics) RecordStaleFallback(api string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[api]++
	m.staleFallbacks[api]++
}

func (m *Metrics) RecordFailed(api string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[api]++
	m.failedRequests[api]++
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime: time.Since(m.startTime),
		APIs:   make(map[string]APIMetrics),
	}

	allAPIs := make(map[string]bool)
	for api := range m.requests {
		allAPIs[api] = true
	}
	for api := range m.endpointFailures {
		allAPIs[api] = true
	}

	for api := range allAPIs {
		snap.TotalRequests += m.requests[api]

		am := APIMetrics{
			Requests:       m.requests[api],
			CacheHits:      m.cacheHits[api],
			StaleFallbacks: m.staleFallbacks[api],
			FailedRequests: m.failedRequests[api],
		}

		if failures := m.endpointFailures[api]; len(failures) > 0 {
			am.EndpointFailures = make(map[string]int64, len(failures))
			for endpoint, n := range failures {
				am.EndpointFailures[endpoint] = n
			}
		}

		durations := m.latencies[api]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			am.AvgLatency = average(sorted)
			am.P50Latency = percentile(sorted, 0.50)
			am.P95Latency = percentile(sorted, 0.95)
			am.P99Latency = percentile(sorted, 0.99)
		}

		snap.APIs[api] = am
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
