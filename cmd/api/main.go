package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-bookshelf-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bookshelf-go/pkg/utilities"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	migrateOnly := pflag.Bool("migrate-only", false, "apply database migrations and exit")
	pflag.Parse()

	// best-effort: a missing .env falls back to the real environment
	_ = godotenv.Load(*envFile)

	logCfg, err := utilities.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read logger config: %v\n", err)
		os.Exit(1)
	}
	lg, err := utilities.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-bookshelf-go")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}
	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("database config: %v", err)
	}

	if dbCfg.AutoMigrate || *migrateOnly {
		if err := database.Migrate(dbCfg); err != nil {
			sugar.Fatalf("migrate: %v", err)
		}
		sugar.Infow("database migrated", "driver", dbCfg.Driver)
	}
	if *migrateOnly {
		return
	}

	db, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	tokens, err := session.NewTokenService(session.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
		Issuer: cfg.TokenIssuer,
	})
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	svc := user.NewUserService(
		userrepo.NewUserRepo(db),
		tokens,
		user.BcryptHasher{Cost: cfg.BcryptCost},
		utilities.NewIDGenerator(cfg.SnowflakeNode),
		sugar,
	)
	svc.UnifyLoginErrors = cfg.UnifyLoginErrors

	handler := router.RegisterRoutes(router.Deps{
		Logger:   sugar,
		Users:    user.NewHandler(svc, sugar, collector),
		Sessions: session.NewResolver(tokens, collector, sugar),
		Metrics:  metrics.Handler(reg),
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", cfg.Addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for in-flight requests
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
