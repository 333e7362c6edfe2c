package stats

import (
	"github.com/rs/zerolog"

	"loadpulse/internal/infrastructure/observability"
	"loadpulse/internal/usecase"
)

// Sink receives one event per logged request. Events are handed off on a
// buffered channel so the transaction hot path never waits on reporting; a
// saturated sink drops events and counts the drop.
type Sink struct {
	ch      chan usecase.StatsEvent
	done    chan struct{}
	logger  *zerolog.Logger
	metrics *observability.Metrics
}

func NewSink(logger *zerolog.Logger, metrics *observability.Metrics, buffer int) *Sink {
	s := &Sink{
		ch:      make(chan usecase.StatsEvent, buffer),
		done:    make(chan struct{}),
		logger:  logger,
		metrics: metrics,
	}
	go s.run()
	return s
}

func (s *Sink) Report(ev usecase.StatsEvent) {
	select {
	case s.ch <- ev:
	default:
		s.metrics.DroppedEvents.Inc()
	}
}

// Close stops the consumer after draining queued events.
func (s *Sink) Close() {
	close(s.ch)
	<-s.done
}

func (s *Sink) run() {
	defer close(s.done)
	for ev := range s.ch {
		s.metrics.RequestsTotal.WithLabelValues(string(ev.Status)).Inc()
		if !ev.StartedAt.IsZero() && !ev.EndedAt.IsZero() {
			s.metrics.RequestDuration.WithLabelValues(string(ev.Status)).
				Observe(ev.EndedAt.Sub(ev.StartedAt).Seconds())
		}
		logEv := s.logger.Debug().
			Str("request", ev.Name).
			Str("user", ev.Session.UserID).
			Str("scenario", ev.Session.Scenario).
			Str("status", string(ev.Status))
		if ev.StatusCode != "" {
			logEv = logEv.Str("code", ev.StatusCode)
		}
		if ev.Message != "" {
			logEv = logEv.Str("message", ev.Message)
		}
		if !ev.StartedAt.IsZero() && !ev.EndedAt.IsZero() {
			logEv = logEv.Dur("duration", ev.EndedAt.Sub(ev.StartedAt))
		}
		logEv.Msg("request logged")
	}
}

var _ usecase.StatsReporter = (*Sink)(nil)
