package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"complyscan/internal/audit/service"
	"complyscan/internal/events"
	eventsMemory "complyscan/internal/events/store/memory"
	eventsPostgres "complyscan/internal/events/store/postgres"
	"complyscan/internal/platform/config"
	"complyscan/internal/platform/httpserver"
	"complyscan/internal/platform/logger"
	"complyscan/internal/platform/metrics"
	"complyscan/internal/platform/postgres"
	"complyscan/internal/platform/redis"
	"complyscan/internal/remote"
	"complyscan/internal/session"
	"complyscan/internal/session/lockout"
	sessionMemory "complyscan/internal/session/store/memory"
	sessionRedis "complyscan/internal/session/store/redis"
	httptransport "complyscan/internal/transport/http"
)

const shutdownTimeout = 30 * time.Second

// main wires the BFF: sessions, per-session consent gates and workflows, and
// the HTTP surface. Business logic lives in the internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New(nil)

	var checks []httptransport.HealthCheck

	var sessionStore session.Store = sessionMemory.NewInMemoryStore()
	var lockoutStore lockout.Store = lockout.NewInMemoryStore()
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessionStore = sessionRedis.New(redisClient.Client)
		lockoutStore = lockout.NewRedisStore(redisClient.Client)
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: redisClient.Health})
		log.Info("sessions stored in redis")
	}

	var eventStore events.Store = eventsMemory.NewInMemoryStore()
	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		pgStore := eventsPostgres.New(db)
		if err := pgStore.Migrate(ctx); err != nil {
			return err
		}
		eventStore = pgStore
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: db.PingContext})
		log.Info("compliance events stored in postgres")
	}
	trail := events.NewPublisher(eventStore, log)

	client := remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout, log, remote.WithMetrics(m))
	checks = append(checks, httptransport.HealthCheck{Name: "remote", Check: func(context.Context) error {
		if !client.Healthy() {
			return errors.New("remote service circuit open")
		}
		return nil
	}})

	signer := session.NewTokenSigner(cfg.Session.SigningKey, "complyscan")
	var sessionOpts []session.Option
	if cfg.Session.Lockout.Attempts > 0 {
		sessionOpts = append(sessionOpts, session.WithLockout(lockout.New(lockoutStore, lockout.Config{
			Attempts: cfg.Session.Lockout.Attempts,
			Window:   cfg.Session.Lockout.Window,
			Duration: cfg.Session.Lockout.Duration,
		}, log)))
	}
	sessions := session.NewManager(sessionStore, client, signer, cfg.Session.TTL, log, sessionOpts...)

	audits := service.New(service.Config{
		ConsentText: cfg.Consent.Text,
		StepTimeout: cfg.Workflow.StepTimeout,
	}, sessions, func(credential string) service.Backend {
		return client.For(credential)
	}, trail, m, log)

	handler := httptransport.NewHandler(sessions, audits, sessions, m, log, checks...)
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(handler))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting complyscan", "addr", cfg.Server.Addr, "remote", cfg.Remote.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := audits.Wait(shutdownCtx); err != nil {
			log.Warn("audit runs still in flight at shutdown", "error", err)
		}
		return nil
	})
	return g.Wait()
}
