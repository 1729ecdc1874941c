// Package upstream fetches game-status data from third-party APIs with
// prioritized endpoint failover, per-endpoint circuit breaking, bounded
// retries with exponential backoff, and TTL response caching with stale
// fallback.
//
// A caller registers a named API once and then issues requests:
//
//	mgr := upstream.NewManager(log, collector)
//	mgr.RegisterAPI("status-api", upstream.APIConfig{
//	    BaseURL:      "https://status.example.com",
//	    FallbackURLs: []string{"https://status-eu.example.com"},
//	})
//	res, err := mgr.Request(ctx, "status-api", "/v1/servers", upstream.Options{}, 30*time.Second)
//
// Concurrent requests for the same key may both miss the cache and both
// hit the network; there is no request coalescing.
package upstream
