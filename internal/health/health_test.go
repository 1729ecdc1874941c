package health_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/AO-Miko/Discord-Bot/internal/health"
)

func staticCheck(name string, status health.Status) health.Check {
	return func(ctx context.Context) health.CheckResult {
		return health.CheckResult{Name: name, Status: status}
	}
}

var _ = Describe("Checker", func() {
	var checker *health.Checker

	BeforeEach(func() {
		checker = health.NewChecker(testLogger(), time.Minute)
	})

	Describe("RunOnce", func() {
		It("should report healthy when every check passes", func() {
			checker.Register(staticCheck("a", health.StatusHealthy))
			checker.Register(staticCheck("b", health.StatusHealthy))

			report := checker.RunOnce(context.Background())
			Expect(report.Status).To(Equal(health.StatusHealthy))
			Expect(report.Checks).To(HaveLen(2))
		})

		It("should report degraded when any check is degraded", func() {
			checker.Register(staticCheck("a", health.StatusHealthy))
			checker.Register(staticCheck("b", health.StatusDegraded))

			report := checker.RunOnce(context.Background())
			Expect(report.Status).To(Equal(health.StatusDegraded))
		})

		It("should let unhealthy take precedence over degraded", func() {
			checker.Register(staticCheck("a", health.StatusDegraded))
			checker.Register(staticCheck("b", health.StatusUnhealthy))
			checker.Register(staticCheck("c", health.StatusHealthy))

			report := checker.RunOnce(context.Background())
			Expect(report.Status).To(Equal(health.StatusUnhealthy))
		})

		It("should invoke Notify on an unhealthy run", func() {
			checker.Register(staticCheck("a", health.StatusUnhealthy))

			var notified atomic.Bool
			checker.Notify = func(report health.Report) {
				notified.Store(true)
			}

			checker.RunOnce(context.Background())
			Expect(notified.Load()).To(BeTrue())
		})

		It("should not invoke Notify on a degraded run", func() {
			checker.Register(staticCheck("a", health.StatusDegraded))

			var notified atomic.Bool
			checker.Notify = func(report health.Report) {
				notified.Store(true)
			}

			checker.RunOnce(context.Background())
			Expect(notified.Load()).To(BeFalse())
		})
	})

	Describe("Last", func() {
		It("should report healthy with no checks before the first run", func() {
			report := checker.Last()
			Expect(report.Status).To(Equal(health.StatusHealthy))
			Expect(report.Checks).To(BeEmpty())
		})

		It("should return the most recent report", func() {
			checker.Register(staticCheck("a", health.StatusDegraded))
			checker.RunOnce(context.Background())

			Expect(checker.Last().Status).To(Equal(health.StatusDegraded))
		})
	})

	Describe("Start", func() {
		It("should run the delayed initial check and then the periodic battery", func() {
			var runs atomic.Int32
			checker = health.NewChecker(testLogger(), 50*time.Millisecond)
			checker.InitialDelay = 10 * time.Millisecond
			checker.Register(func(ctx context.Context) health.CheckResult {
				runs.Add(1)
				return health.CheckResult{Name: "counting", Status: health.StatusHealthy}
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			checker.Start(ctx)

			Eventually(runs.Load, "500ms", "10ms").Should(BeNumerically(">=", 2))
		})

		It("should stop when the context is cancelled", func() {
			var runs atomic.Int32
			checker = health.NewChecker(testLogger(), 20*time.Millisecond)
			checker.InitialDelay = time.Millisecond
			checker.Register(func(ctx context.Context) health.CheckResult {
				runs.Add(1)
				return health.CheckResult{Name: "counting", Status: health.StatusHealthy}
			})

			ctx, cancel := context.WithCancel(context.Background())
			checker.Start(ctx)

			Eventually(runs.Load, "500ms", "5ms").Should(BeNumerically(">=", 1))
			cancel()

			time.Sleep(30 * time.Millisecond)
			after := runs.Load()
			time.Sleep(60 * time.Millisecond)
			Expect(runs.Load()).To(Equal(after))
		})
	})

	Describe("Status.String", func() {
		It("should return the lowercase status names", func() {
			Expect(health.StatusHealthy.String()).To(Equal("healthy"))
			Expect(health.StatusDegraded.String()).To(Equal("degraded"))
			Expect(health.StatusUnhealthy.String()).To(Equal("unhealthy"))
		})
	})
})
