package logger_test

import (
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/AO-Miko/Discord-Bot/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("should honour the debug level", func() {
			log := logger.New("debug", false, "dev")
			Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
		})

		It("should suppress levels below the configured one", func() {
			log := logger.New("warn", false, "dev")
			Expect(log.Enabled(context.Background(), slog.LevelInfo)).To(BeFalse())
			Expect(log.Enabled(context.Background(), slog.LevelWarn)).To(BeTrue())
		})

		It("should default unknown levels to info", func() {
			log := logger.New("nonsense", false, "dev")
			Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeFalse())
			Expect(log.Enabled(context.Background(), slog.LevelInfo)).To(BeTrue())
		})

		It("should build a logger for the prod environment", func() {
			log := logger.New("info", true, "prod")
			Expect(log).NotTo(BeNil())
		})
	})

	Describe("Component", func() {
		It("should return a distinct child logger", func() {
			root := logger.New("info", false, "dev")
			child := logger.Component(root, "upstream")

			Expect(child).NotTo(BeNil())
			Expect(child).NotTo(BeIdenticalTo(root))
		})
	})
})
