package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"loadpulse/internal/adapters/cache"
	"loadpulse/internal/adapters/cookiejar"
	"loadpulse/internal/adapters/resources"
	"loadpulse/internal/adapters/stats"
	"loadpulse/internal/domain"
	cfgpkg "loadpulse/internal/infrastructure/config"
	"loadpulse/internal/infrastructure/httpapi"
	obs "loadpulse/internal/infrastructure/observability"
	"loadpulse/internal/infrastructure/transport"
	"loadpulse/internal/usecase"
)

func main() {
	cfg := cfgpkg.FromEnv()

	logger := obs.NewLogger(cfg.LogLevel)
	logger.Info().Str("version", obs.Version).Str("addr", cfg.Addr).Msg("starting loadpulse")

	if cfg.Target == "" {
		logger.Error().Msg("TARGET is required")
		os.Exit(2)
	}
	target, err := url.Parse(cfg.Target)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		logger.Error().Str("target", cfg.Target).Msg("invalid TARGET")
		os.Exit(2)
	}
	var proxy *url.URL
	if cfg.Proxy != "" {
		if proxy, err = url.Parse(cfg.Proxy); err != nil {
			logger.Error().Str("proxy", cfg.Proxy).Msg("invalid PROXY")
			os.Exit(2)
		}
	}

	metrics := obs.NewMetrics()
	sink := stats.NewSink(logger, metrics, cfg.StatsBuffer)
	store := cache.New(cfg.CacheMaxEntries, cfg.CacheTTL)
	cookies := cookiejar.New()

	settings := usecase.Settings{
		FollowRedirects: cfg.FollowRedirects,
		MaxRedirects:    cfg.MaxRedirects,
		Strict302:       cfg.Strict302,
		CacheEnabled:    cfg.CacheEnabled,
		Proxy:           proxy,
		ProxyExceptions: cfg.ProxyExceptions,
		SendReferer:     cfg.SendReferer,
		TraceDumps:      cfg.TraceDumps,
	}

	// The spawner needs the transport's send, the processor needs the
	// spawner, and the transport needs the processor; the closure breaks
	// the cycle.
	var client *transport.Client
	spawner := resources.NewSpawner(func(tx *domain.Tx) { client.Send(tx) }, logger, cfg.ResourceWorkers)
	spawner.Silent = cfg.SilentResources

	processor := usecase.NewProcessor(settings, cookies, store, sink, spawner, logger)
	client = transport.NewClient(processor, cookies, store, metrics, logger, transport.Options{
		Timeout:      cfg.RequestTimeout,
		InsecureTLS:  cfg.InsecureTLS,
		CacheEnabled: cfg.CacheEnabled,
	})
	processor.Send = client.Send

	startedAt := time.Now()
	var failed sync.Map
	countFailed := func() int {
		n := 0
		failed.Range(func(_, _ any) bool { n++; return true })
		return n
	}

	// Operational endpoints: health, metrics, run status.
	router := httpapi.NewRouter(&httpapi.Deps{
		Logger:  logger,
		Metrics: metrics,
		Status: func() httpapi.RunStatus {
			return httpapi.RunStatus{
				Target:      cfg.Target,
				Users:       cfg.Users,
				Iterations:  cfg.Iterations,
				FailedUsers: countFailed(),
				StartedAt:   startedAt,
				Elapsed:     time.Since(startedAt).String(),
			}
		},
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info().Msg("stopping, letting in-flight transactions finish")
		cancel()
	}()

	scenario := usecase.Scenario{
		Name: "loadpulse",
		Requests: []*domain.Request{{
			Name:    "index",
			Method:  http.MethodGet,
			URL:     target,
			Headers: http.Header{},
			Proxy:   proxy,
			Checks:  []domain.Check{domain.StatusIs(http.StatusOK)},
		}},
	}
	runner := usecase.NewRunner(client.Send, logger)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Users; i++ {
		wg.Add(1)
		metrics.ActiveUsers.Inc()
		go func() {
			defer wg.Done()
			defer metrics.ActiveUsers.Dec()
			for it := 0; it < cfg.Iterations; it++ {
				if ctx.Err() != nil {
					return
				}
				session := runner.RunUser(ctx, scenario)
				if session.Failed {
					failed.Store(session.UserID, true)
				}
			}
		}()
	}
	wg.Wait()
	spawner.Stop()
	sink.Close()

	logger.Info().
		Int("users", cfg.Users).
		Int("failedUsers", countFailed()).
		Dur("elapsed", time.Since(startedAt)).
		Msg("run complete")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown error")
	}
}
