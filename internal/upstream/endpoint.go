package upstream

import "time"

const (
	DefaultTimeout          = 10 * time.Second
	DefaultMaxRetries       = 3
	DefaultBreakerThreshold = 5
	DefaultBreakerReset     = 60 * time.Second
)

// Endpoint is one concrete base URL behind a logical API name.
// The primary endpoint always has priority 1; fallbacks follow in
// registration order. Zero Timeout or a negative MaxRetries means
// "inherit the API default".
type Endpoint struct {
	URL        string
	Priority   int
	Timeout    time.Duration
	MaxRetries int
}

// APIConfig is the registration input for a named API.
type APIConfig struct {
	BaseURL          string
	FallbackURLs     []string
	Timeout          time.Duration
	MaxRetries       int
	BreakerThreshold int
	BreakerReset     time.Duration
}

// api is the immutable internal record built at registration.
// Re-registration replaces it wholesale.
type api struct {
	name      string
	endpoints []Endpoint
	timeout   time.Duration
	retries   int
	threshold int
	reset     time.Duration
}

func buildAPI(name string, cfg APIConfig) *api {
	a := &api{
		name:      name,
		timeout:   cfg.Timeout,
		retries:   cfg.MaxRetries,
		threshold: cfg.BreakerThreshold,
		reset:     cfg.BreakerReset,
	}

	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	if a.retries <= 0 {
		a.retries = DefaultMaxRetries
	}
	if a.threshold <= 0 {
		a.threshold = DefaultBreakerThreshold
	}
	if a.reset <= 0 {
		a.reset = DefaultBreakerReset
	}

	a.endpoints = append(a.endpoints, Endpoint{URL: cfg.BaseURL, Priority: 1})
	for i, url := range cfg.FallbackURLs {
		a.endpoints = append(a.endpoints, Endpoint{URL: url, Priority: i + 2})
	}

	return a
}

// timeoutFor resolves the per-endpoint timeout override.
func (a *api) timeoutFor(ep Endpoint) time.Duration {
	if ep.Timeout > 0 {
		return ep.Timeout
	}
	return a.timeout
}

// retriesFor resolves the per-endpoint retry override.
func (a *api) retriesFor(ep Endpoint) int {
	if ep.MaxRetries > 0 {
		return ep.MaxRetries
	}
	return a.retries
}
