// Package circuitbreaker implements the circuit breaker pattern for
// upstream endpoint failover.
//
// A circuit breaker prevents hammering a persistently failing endpoint
// by blocking requests to it for a cooldown period. It has three states:
//
//   - CLOSED: Normal operation, requests pass through
//   - OPEN: Endpoint failing, requests blocked
//   - HALF-OPEN: Testing if the endpoint recovered
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry()
//	cb := registry.Register("status-api|https://api.example.com", 5, 60*time.Second)
//	if cb.Allow() {
//	    // Make request...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker
