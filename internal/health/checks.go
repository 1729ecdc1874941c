package health

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AO-Miko/Discord-Bot/internal/circuitbreaker"
	"github.com/AO-Miko/Discord-Bot/internal/faults"
)

const gatewaySlowThreshold = 2 * time.Second

// GatewayCheck dials the chat platform's websocket gateway and measures
// connect latency. A failed dial is unhealthy; a slow one is degraded.
func GatewayCheck(url string, timeout time.Duration) Check {
	return func(ctx context.Context) CheckResult {
		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := time.Now()
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
		latency := time.Since(start)

		if err != nil {
			return CheckResult{
				Name:    "gateway",
				Status:  StatusUnhealthy,
				Detail:  err.Error(),
				Latency: latency,
				Err:     faults.Tag(faults.KindGateway, err),
			}
		}

		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "health probe"),
			time.Now().Add(500*time.Millisecond))
		_ = conn.Close()

		if latency > gatewaySlowThreshold {
			return CheckResult{
				Name:    "gateway",
				Status:  StatusDegraded,
				Detail:  "slow gateway handshake",
				Latency: latency,
			}
		}

		return CheckResult{Name: "gateway", Status: StatusHealthy, Latency: latency}
	}
}

// FilesystemCheck writes, reads back, and deletes a probe file in dir.
func FilesystemCheck(dir string) Check {
	return func(ctx context.Context) CheckResult {
		path := filepath.Join(dir, fmt.Sprintf(".healthcheck-%d", time.Now().UnixNano()))
		payload := []byte("ok")

		fail := func(err error) CheckResult {
			return CheckResult{
				Name:   "filesystem",
				Status: StatusUnhealthy,
				Detail: err.Error(),
				Err:    faults.Tag(faults.KindFilesystem, err),
			}
		}

		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fail(err)
		}
		read, err := os.ReadFile(path)
		if err != nil {
			os.Remove(path)
			return fail(err)
		}
		if err := os.Remove(path); err != nil {
			return fail(err)
		}
		if !bytes.Equal(read, payload) {
			return fail(fmt.Errorf("read back %q, wrote %q", read, payload))
		}

		return CheckResult{Name: "filesystem", Status: StatusHealthy}
	}
}

// BreakerStatsSource is satisfied by the upstream manager.
type BreakerStatsSource interface {
	BreakerStats() map[string]map[string]circuitbreaker.Snapshot
}

// BreakerCheck aggregates breaker states: an API with every endpoint
// open is unhealthy, any open breaker at all is degraded.
func BreakerCheck(source BreakerStatsSource) Check {
	return func(ctx context.Context) CheckResult {
		stats := source.BreakerStats()

		openTotal := 0
		for apiName, endpoints := range stats {
			open := 0
			for _, snap := range endpoints {
				if snap.State == circuitbreaker.StateOpen {
					open++
				}
			}
			openTotal += open

			if len(endpoints) > 0 && open == len(endpoints) {
				err := fmt.Errorf("every endpoint of API %q has an open breaker", apiName)
				return CheckResult{
					Name:   "upstream_breakers",
					Status: StatusUnhealthy,
					Detail: err.Error(),
					Err:    faults.Tag(faults.KindUpstream, err),
				}
			}
		}

		if openTotal > 0 {
			return CheckResult{
				Name:   "upstream_breakers",
				Status: StatusDegraded,
				Detail: fmt.Sprintf("%d open breaker(s)", openTotal),
			}
		}

		return CheckResult{Name: "upstream_breakers", Status: StatusHealthy}
	}
}

// MemoryCheck classifies the heap-in-use to OS-reserved ratio.
// Ratios at or above degraded/unhealthy trip the respective status.
func MemoryCheck(degraded, unhealthy float64) Check {
	return func(ctx context.Context) CheckResult {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)

		if stats.Sys == 0 {
			return CheckResult{Name: "memory", Status: StatusHealthy}
		}

		ratio := float64(stats.HeapAlloc) / float64(stats.Sys)
		detail := fmt.Sprintf("heap %.0f%% of reserved", ratio*100)

		switch {
		case ratio >= unhealthy:
			return CheckResult{
				Name:   "memory",
				Status: StatusUnhealthy,
				Detail: detail,
				Err:    faults.Tag(faults.KindMemory, fmt.Errorf("memory usage ratio %.2f", ratio)),
			}
		case ratio >= degraded:
			return CheckResult{Name: "memory", Status: StatusDegraded, Detail: detail}
		default:
			return CheckResult{Name: "memory", Status: StatusHealthy, Detail: detail}
		}
	}
}
