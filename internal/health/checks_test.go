package health_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/gorilla/websocket"

	"github.com/AO-Miko/Discord-Bot/internal/circuitbreaker"
	"github.com/AO-Miko/Discord-Bot/internal/faults"
	"github.com/AO-Miko/Discord-Bot/internal/health"
)

type fakeBreakerStats map[string]map[string]circuitbreaker.Snapshot

func (f fakeBreakerStats) BreakerStats() map[string]map[string]circuitbreaker.Snapshot {
	return f
}

var _ = Describe("Checks", func() {
	Describe("GatewayCheck", func() {
		It("should be healthy when the gateway accepts the connection", func() {
			upgrader := websocket.Upgrader{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				conn, err := upgrader.Upgrade(w, r, nil)
				if err != nil {
					return
				}
				conn.Close()
			}))
			defer server.Close()

			wsURL := strings.Replace(server.URL, "http", "ws", 1)
			result := health.GatewayCheck(wsURL, time.Second)(context.Background())

			Expect(result.Status).To(Equal(health.StatusHealthy))
			Expect(result.Latency).To(BeNumerically(">", 0))
		})

		It("should be unhealthy when the dial fails", func() {
			result := health.GatewayCheck("ws://127.0.0.1:1", time.Second)(context.Background())

			Expect(result.Status).To(Equal(health.StatusUnhealthy))
			Expect(result.Err).To(HaveOccurred())
			Expect(faults.KindOf(result.Err)).To(Equal(faults.KindGateway))
		})
	})

	Describe("FilesystemCheck", func() {
		It("should round-trip a probe file", func() {
			dir, err := os.MkdirTemp("", "health-fs-*")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)

			result := health.FilesystemCheck(dir)(context.Background())
			Expect(result.Status).To(Equal(health.StatusHealthy))

			// the probe file cleaned up after itself
			entries, err := os.ReadDir(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("should be unhealthy with a filesystem fault when the directory is missing", func() {
			result := health.FilesystemCheck("/nonexistent/health-dir")(context.Background())

			Expect(result.Status).To(Equal(health.StatusUnhealthy))
			Expect(faults.KindOf(result.Err)).To(Equal(faults.KindFilesystem))
		})
	})

	Describe("BreakerCheck", func() {
		It("should be healthy with no open breakers", func() {
			stats := fakeBreakerStats{
				"game": {
					"http://a": {State: circuitbreaker.StateClosed},
					"http://b": {State: circuitbreaker.StateClosed},
				},
			}

			result := health.BreakerCheck(stats)(context.Background())
			Expect(result.Status).To(Equal(health.StatusHealthy))
		})

		It("should be degraded when some breakers are open", func() {
			stats := fakeBreakerStats{
				"game": {
					"http://a": {State: circuitbreaker.StateOpen, Failures: 5},
					"http://b": {State: circuitbreaker.StateClosed},
				},
			}

			result := health.BreakerCheck(stats)(context.Background())
			Expect(result.Status).To(Equal(health.StatusDegraded))
			Expect(result.Detail).To(ContainSubstring("1 open breaker"))
		})

		It("should be unhealthy when an API has every endpoint open", func() {
			stats := fakeBreakerStats{
				"game": {
					"http://a": {State: circuitbreaker.StateOpen, Failures: 5},
					"http://b": {State: circuitbreaker.StateOpen, Failures: 7},
				},
			}

			result := health.BreakerCheck(stats)(context.Background())
			Expect(result.Status).To(Equal(health.StatusUnhealthy))
			Expect(faults.KindOf(result.Err)).To(Equal(faults.KindUpstream))
		})
	})

	Describe("MemoryCheck", func() {
		It("should be healthy under normal thresholds", func() {
			result := health.MemoryCheck(0.99, 1.0)(context.Background())
			Expect(result.Status).To(Equal(health.StatusHealthy))
		})

		It("should trip with impossible thresholds", func() {
			result := health.MemoryCheck(0.0, 0.0)(context.Background())
			Expect(result.Status).To(Equal(health.StatusUnhealthy))
			Expect(faults.KindOf(result.Err)).To(Equal(faults.KindMemory))
		})
	})
})
