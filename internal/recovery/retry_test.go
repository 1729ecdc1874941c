package recovery_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/AO-Miko/Discord-Bot/internal/recovery"
)

var _ = Describe("RetryWithBackoff", func() {
	var cfg recovery.RetryConfig

	BeforeEach(func() {
		cfg = recovery.RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Millisecond,
			MaxDelay:   10 * time.Millisecond,
		}
	})

	It("should return nil on first success", func() {
		calls := 0
		err := recovery.RetryWithBackoff(context.Background(), func() error {
			calls++
			return nil
		}, cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(1))
	})

	It("should retry until the function succeeds", func() {
		calls := 0
		err := recovery.RetryWithBackoff(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		}, cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(3))
	})

	It("should return the last error after exhausting the budget", func() {
		calls := 0
		lastErr := errors.New("still broken")
		err := recovery.RetryWithBackoff(context.Background(), func() error {
			calls++
			return lastErr
		}, cfg)

		Expect(err).To(Equal(lastErr))
		Expect(calls).To(Equal(4)) // initial + 3 retries
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())

		calls := 0
		go func() {
			time.Sleep(5 * time.Millisecond)
			cancel()
		}()

		err := recovery.RetryWithBackoff(ctx, func() error {
			calls++
			return errors.New("always")
		}, recovery.RetryConfig{MaxRetries: 100, BaseDelay: 20 * time.Millisecond, MaxDelay: 20 * time.Millisecond})

		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(calls).To(BeNumerically("<", 5))
	})
})
