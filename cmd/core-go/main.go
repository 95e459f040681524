package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shadowcheck/core-go/internal/config"
	"shadowcheck/core-go/internal/db"
	"shadowcheck/core-go/internal/explorer"
	"shadowcheck/core-go/internal/httpapi"
	"shadowcheck/core-go/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := httpapi.NewLogger("info")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := httpapi.NewLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *db.Pool
	if cfg.Database.URL != "" {
		p, err := db.Open(ctx, cfg.Database.URL, db.Options{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		pool = p
	} else {
		logger.Warn().Msg("DATABASE_URL not set; filtered endpoints will answer 503")
	}

	m := metrics.New()

	var store explorer.Store
	if pool != nil {
		store = pool.Queries()
	}
	svc := explorer.NewService(logger, store, m, explorerOptions(cfg))

	h := httpapi.NewHandler(logger, pool, svc, m, httpapi.Options{
		RequestTimeout:    cfg.Server.RequestTimeout,
		CORSOrigins:       cfg.Security.CORSOrigins,
		RateLimitRequests: cfg.Security.RateLimitRequests,
		RateLimitWindow:   cfg.Security.RateLimitWindow,
		RateLimitDisabled: cfg.Security.RateLimitDisabled,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("core-go listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

func explorerOptions(cfg *config.Config) explorer.Options {
	l := cfg.Limits
	return explorer.Options{
		Networks:     explorer.Limits{Default: l.NetworkDefault, Max: l.NetworkMax},
		Geospatial:   explorer.Limits{Default: l.GeospatialDefault, Max: l.GeospatialMax},
		Observations: explorer.Limits{Default: l.ObservationsDefault, Max: l.ObservationsMax},
		SlowQuery:    l.SlowQuery,
		Breaker: explorer.BreakerSettings{
			Name:             cfg.Breaker.Name,
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		},
	}
}
