package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventCacheHit         EventType = "cache_hit"
	EventEndpointFailure  EventType = "endpoint_failure"
	EventRequestCompleted EventType = "request_completed"
	EventStaleFallback    EventType = "stale_fallback"
	EventRequestFailed    EventType = "request_failed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	API       string
	Endpoint  string
	Duration  time.Duration
}

// Collector consumes events from a buffered channel so emitters never
// block on metrics bookkeeping.
type Collector struct {
	eventCh chan Event
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

// Emit is a non-blocking send; the event is dropped if the buffer is full.
func (c *Collector) Emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventCacheHit:
		c.metrics.RecordCacheHit(event.API)

	case EventEndpointFailure:
		c.metrics.RecordEndpointFailure(event.API, event.Endpoint)

	case EventRequestCompleted:
		c.metrics.RecordCompleted(event.API, event.Endpoint, event.Duration)

	case EventStaleFallback:
		c.metrics.RecordStaleFallback(event.API)

	case EventRequestFailed:
		c.metrics.RecordFailed(event.API)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
