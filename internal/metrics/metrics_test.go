package metrics_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/AO-Miko/Discord-Bot/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	It("should count completed requests and track latency percentiles", func() {
		for i := 1; i <= 100; i++ {
			m.RecordCompleted("game", "http://a", time.Duration(i)*time.Millisecond)
		}

		snap := m.Snapshot()
		Expect(snap.TotalRequests).To(Equal(int64(100)))

		api := snap.APIs["game"]
		Expect(api.Requests).To(Equal(int64(100)))
		Expect(api.P50Latency).To(BeNumerically("~", 50*time.Millisecond, 5*time.Millisecond))
		Expect(api.P95Latency).To(BeNumerically("~", 95*time.Millisecond, 5*time.Millisecond))
		Expect(api.AvgLatency).To(BeNumerically("~", 50*time.Millisecond, 5*time.Millisecond))
	})

	It("should count cache hits, stale fallbacks and failures per API", func() {
		m.RecordCompleted("game", "http://a", time.Millisecond)
		m.RecordCacheHit("game")
		m.RecordCacheHit("game")
		m.RecordStaleFallback("game")
		m.RecordFailed("game")
		m.RecordEndpointFailure("game", "http://a")
		m.RecordEndpointFailure("game", "http://a")
		m.RecordEndpointFailure("game", "http://b")

		api := m.Snapshot().APIs["game"]
		Expect(api.Requests).To(Equal(int64(5)))
		Expect(api.CacheHits).To(Equal(int64(2)))
		Expect(api.StaleFallbacks).To(Equal(int64(1)))
		Expect(api.FailedRequests).To(Equal(int64(1)))
		Expect(api.EndpointFailures["http://a"]).To(Equal(int64(2)))
		Expect(api.EndpointFailures["http://b"]).To(Equal(int64(1)))
	})

	It("should separate APIs in the snapshot", func() {
		m.RecordCompleted("game", "http://a", time.Millisecond)
		m.RecordCacheHit("players")

		snap := m.Snapshot()
		Expect(snap.APIs).To(HaveLen(2))
		Expect(snap.APIs["game"].Requests).To(Equal(int64(1)))
		Expect(snap.APIs["players"].CacheHits).To(Equal(int64(1)))
	})
})

var _ = Describe("Collector", func() {
	It("should process emitted events asynchronously", func() {
		log := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		collector := metrics.NewCollector(16, log)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		collector.Start(ctx)

		collector.Emit(metrics.Event{Type: metrics.EventRequestCompleted, API: "game", Endpoint: "http://a", Duration: time.Millisecond})
		collector.Emit(metrics.Event{Type: metrics.EventCacheHit, API: "game"})
		collector.Emit(metrics.Event{Type: metrics.EventStaleFallback, API: "game"})

		Eventually(func() int64 {
			return collector.Snapshot().TotalRequests
		}, "500ms", "10ms").Should(Equal(int64(3)))

		api := collector.Snapshot().APIs["game"]
		Expect(api.CacheHits).To(Equal(int64(1)))
		Expect(api.StaleFallbacks).To(Equal(int64(1)))
	})

	It("should drop events instead of blocking when the buffer is full", func() {
		log := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		collector := metrics.NewCollector(1, log)
		// collector not started, so the buffer cannot drain

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 100; i++ {
				collector.Emit(metrics.Event{Type: metrics.EventCacheHit, API: "game"})
			}
		}()

		Eventually(done, "500ms").Should(BeClosed())
	})
})
