package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"loadpulse/internal/domain"
	"loadpulse/internal/infrastructure/observability"
	"loadpulse/internal/usecase"
)

func newTestSink(buffer int) (*Sink, *observability.Metrics) {
	logger := zerolog.Nop()
	metrics := observability.NewMetrics()
	return NewSink(&logger, metrics, buffer), metrics
}

func event(status domain.Status) usecase.StatsEvent {
	now := time.Now()
	return usecase.StatsEvent{
		Session:   domain.NewSession("scn"),
		Name:      "request",
		StartedAt: now.Add(-time.Millisecond),
		EndedAt:   now,
		Status:    status,
		Message:   "",
	}
}

func TestEventsCountedByStatus(t *testing.T) {
	sink, metrics := newTestSink(16)
	sink.Report(event(domain.OK))
	sink.Report(event(domain.OK))
	sink.Report(event(domain.KO))
	sink.Close()

	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("OK")); got != 2 {
		t.Fatalf("OK count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("KO")); got != 1 {
		t.Fatalf("KO count = %v, want 1", got)
	}
}

func TestSaturatedSinkDropsInsteadOfBlocking(t *testing.T) {
	logger := zerolog.Nop()
	metrics := observability.NewMetrics()
	// Unconsumed sink with a tiny buffer.
	s := &Sink{
		ch:      make(chan usecase.StatsEvent, 1),
		done:    make(chan struct{}),
		logger:  &logger,
		metrics: metrics,
	}
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Report(event(domain.OK))
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("Report blocked on a saturated sink")
	}
	if got := testutil.ToFloat64(metrics.DroppedEvents); got != 99 {
		t.Fatalf("dropped = %v, want 99", got)
	}
}

func TestCloseDrainsQueuedEvents(t *testing.T) {
	sink, metrics := newTestSink(128)
	for i := 0; i < 100; i++ {
		sink.Report(event(domain.OK))
	}
	sink.Close()
	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("OK")); got != 100 {
		t.Fatalf("drained %v events, want 100", got)
	}
}
