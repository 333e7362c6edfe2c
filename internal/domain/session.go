package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session holds the named values of one virtual user. It is a value type and
// is never mutated in place: every transformation returns a new Session with
// a fresh attribute map, so concurrent transactions can hold snapshots
// without synchronization.
type Session struct {
	UserID     string         `json:"userId"`
	Scenario   string         `json:"scenario"`
	Attributes map[string]any `json:"attributes"`
	Failed     bool           `json:"failed"`
	StartedAt  time.Time      `json:"startedAt"`
	// Drift accumulates the lag between a response completing and the next
	// step being scheduled. It feeds injection pacing, not correctness.
	Drift time.Duration `json:"drift"`
	// CumulatedResponseTime sums the durations of logged primary requests.
	CumulatedResponseTime time.Duration `json:"cumulatedResponseTime"`
}

func NewSession(scenario string) Session {
	return Session{
		UserID:     uuid.New().String(),
		Scenario:   scenario,
		Attributes: map[string]any{},
		StartedAt:  time.Now().UTC(),
	}
}

func (s Session) Get(key string) (any, bool) {
	v, ok := s.Attributes[key]
	return v, ok
}

func (s Session) GetString(key string) string {
	if v, ok := s.Attributes[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// Set returns a copy of the session with key bound to value.
func (s Session) Set(key string, value any) Session {
	attrs := make(map[string]any, len(s.Attributes)+1)
	for k, v := range s.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	s.Attributes = attrs
	return s
}

// Remove returns a copy of the session without key. Removing an absent key
// returns an identical session.
func (s Session) Remove(key string) Session {
	if _, ok := s.Attributes[key]; !ok {
		return s
	}
	attrs := make(map[string]any, len(s.Attributes))
	for k, v := range s.Attributes {
		if k != key {
			attrs[k] = v
		}
	}
	s.Attributes = attrs
	return s
}

func (s Session) AddDrift(d time.Duration) Session {
	s.Drift += d
	return s
}

// SessionUpdate is a pure Session transformation. Updates are first-class
// values threaded through a transaction and its redirect chain, then applied
// once at the end via composition.
type SessionUpdate func(Session) Session

// Identity leaves the session untouched.
func Identity(s Session) Session { return s }

// MarkFailed flags the session so the rest of the scenario can react to the
// failure.
func MarkFailed(s Session) Session {
	s.Failed = true
	return s
}

// Compose chains updates left to right. Nil updates are treated as identity
// so call sites can compose optional updates without guards.
func Compose(updates ...SessionUpdate) SessionUpdate {
	return func(s Session) Session {
		for _, u := range updates {
			if u != nil {
				s = u(s)
			}
		}
		return s
	}
}

// AddResponseTime records one primary-request duration in the session's
// cumulated response time.
func AddResponseTime(d time.Duration) SessionUpdate {
	return func(s Session) Session {
		s.CumulatedResponseTime += d
		return s
	}
}
