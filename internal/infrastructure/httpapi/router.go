package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	obs "loadpulse/internal/infrastructure/observability"
)

// RunStatus is a point-in-time snapshot of the load run, served while the
// run is in progress.
type RunStatus struct {
	Target      string    `json:"target"`
	Users       int       `json:"users"`
	Iterations  int       `json:"iterations"`
	FailedUsers int       `json:"failedUsers"`
	StartedAt   time.Time `json:"startedAt"`
	Elapsed     string    `json:"elapsed"`
}

type Deps struct {
	Logger  *zerolog.Logger
	Metrics *obs.Metrics
	// Status returns the current run snapshot; nil disables /api/status.
	Status func() RunStatus
}

// NewRouter builds the operational endpoint surface: liveness, metrics,
// version, and the run status snapshot.
func NewRouter(d *Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":    "loadpulse",
			"version": obs.Version,
			"commit":  obs.Commit,
			"time":    time.Now().UTC(),
		})
	})

	if d.Status != nil {
		mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(d.Status())
		})
	}

	return mux
}
