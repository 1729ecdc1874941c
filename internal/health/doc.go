// Package health runs a periodic battery of checks (gateway
// connectivity, filesystem round-trip, upstream breaker states, process
// memory) and classifies overall status with worst-of-checks precedence.
package health
