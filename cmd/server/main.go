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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/darelhouma/api/internal/config"
	"github.com/darelhouma/api/internal/handler"
	"github.com/darelhouma/api/internal/repository"
	"github.com/darelhouma/api/internal/service"
	"github.com/darelhouma/api/internal/supabase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(newLogger(cfg))

	var opts []supabase.Option
	if cfg.DatabaseURL != "" {
		db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		slog.Info("database connected")
		opts = append(opts, supabase.WithServiceProfiles(repository.NewProfileRepository(db)))
	} else if cfg.SupabaseServiceRoleKey == "" {
		slog.Warn("no service role key or database configured; profile creation after sign-up will fail")
	}

	clients := supabase.NewFactory(supabase.Config{
		URL:            cfg.SupabaseURL,
		PublicKey:      cfg.SupabasePublicKey,
		AnonKey:        cfg.SupabaseAnonKey,
		ServiceRoleKey: cfg.SupabaseServiceRoleKey,
		Timeout:        cfg.ProviderTimeout,
	}, opts...)

	authSvc := service.NewAuthService(clients, service.AuthConfig{
		JWTSecret:   cfg.JWTSecret,
		FrontendURL: cfg.FrontendURL,
	})
	healthSvc := service.NewHealthService(clients.Public(), service.HealthConfig{
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	e := handler.NewRouter(handler.RouterConfig{
		CORS: handler.CORSConfig{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowAll:       cfg.IsDevelopment(),
		},
		RateLimitRPM:   cfg.RateLimitRPM,
		TrustedProxies: cfg.TrustedProxies,
		Info: handler.ServiceInfo{
			Name:        cfg.ServiceName,
			Version:     cfg.Version,
			Environment: cfg.Environment,
		},
	}, authSvc, healthSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped gracefully")
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName)
}
