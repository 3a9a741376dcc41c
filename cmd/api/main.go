package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/taskmanager/internal/accounts"
	"github.com/geocoder89/taskmanager/internal/auth"
	"github.com/geocoder89/taskmanager/internal/config"
	"github.com/geocoder89/taskmanager/internal/db"
	httpx "github.com/geocoder89/taskmanager/internal/http"
	"github.com/geocoder89/taskmanager/internal/observability"
	"github.com/geocoder89/taskmanager/internal/ratelimit"
	"github.com/geocoder89/taskmanager/internal/redisclient"
	"github.com/geocoder89/taskmanager/internal/repo/memory"
	"github.com/geocoder89/taskmanager/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "err", err)
		os.Exit(1)
	}
}

const serviceName = "taskmanager-api"

func run() error {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(serviceName, cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		Service:     serviceName,
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	deps := httpx.Deps{
		Config:   cfg,
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL()),
		Prom:     prom,
		Gatherer: reg,
	}

	switch cfg.Store {
	case config.StoreMemory:
		users := memory.NewUsersRepo()
		deps.Accounts = accounts.NewStore(users)
		deps.Tasks = memory.NewTasksRepo()
		deps.Ping = users.Ping
		log.Warn("using in-memory store; data is lost on restart")

	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DBURL, db.PoolOptions{AppName: serviceName, MaxConns: int32(cfg.DBMaxConns)})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		deps.Accounts = accounts.NewStore(postgres.NewUsersRepo(pool, prom))
		deps.Tasks = postgres.NewTasksRepo(pool, prom)
		deps.Ping = pool.Ping

	default:
		return fmt.Errorf("unknown STORE %q", cfg.Store)
	}

	created, err := db.EnsureAdminUser(ctx, deps.Accounts, cfg)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("admin user created", "username", cfg.AdminUsername)
	}

	deps.AuthLimiter = ratelimit.NewMemory(cfg.AuthRateLimit, cfg.AuthRateWindow())
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rc.Close()

		pctx, cancel := config.WithTimeoutFrom(ctx, 2*time.Second)
		err := rc.Ping(pctx)
		cancel()

		if err != nil {
			log.Warn("redis unreachable, falling back to in-memory rate limiting", "addr", cfg.RedisAddr, "err", err)
		} else {
			deps.AuthLimiter = ratelimit.NewRedis(rc.Raw(), cfg.AuthRateLimit, cfg.AuthRateWindow())
		}
	}

	router := httpx.NewRouter(log, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
