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

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/custodial-ledger/internal/api"
	"github.com/baharkarakas/custodial-ledger/internal/auth"
	"github.com/baharkarakas/custodial-ledger/internal/config"
	"github.com/baharkarakas/custodial-ledger/internal/db"
	"github.com/baharkarakas/custodial-ledger/internal/logger"
	"github.com/baharkarakas/custodial-ledger/internal/metrics"
	"github.com/baharkarakas/custodial-ledger/internal/realtime"
	"github.com/baharkarakas/custodial-ledger/internal/repository/postgres"
	"github.com/baharkarakas/custodial-ledger/internal/services"
	"github.com/baharkarakas/custodial-ledger/internal/telegram"
	"github.com/baharkarakas/custodial-ledger/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error("exit", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	dbPool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, dbPool); err != nil {
			return err
		}
	}

	metrics.Init()
	repos := postgres.NewRepositories(dbPool, cfg.LockTimeout)
	hub := realtime.NewHub(realtime.DefaultSessionBuffer)
	var notifier realtime.Notifier = hub
	var relay *realtime.Relay
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		notifier = realtime.NewRedisNotifier(rdb)
		relay = realtime.NewRelay(rdb, hub)
	}
	// stopped before the redis client closes so queued publishes can finish
	wp := worker.NewPool(cfg.WorkerCount, 256)
	defer wp.Stop()
	notifier = realtime.NewAsync(notifier, wp)

	ops := telegram.NewAnnouncer(telegram.New(cfg.TelegramBotToken, cfg.TelegramChatID), wp)

	balSvc := services.NewBalanceService(repos.Balances)
	userSvc := services.NewUserService(repos, balSvc, ops)
	txnSvc := services.NewTransactionService(repos, balSvc, notifier, ops, cfg.Policy)
	engine := services.NewApprovalEngine(repos, balSvc, notifier, cfg.DecideMaxAttempts)
	statsSvc := services.NewStatsService(repos.Stats)
	bankSvc := services.NewBankService(repos)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := userSvc.EnsureOperator(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterDeps{
			Cfg:      cfg,
			Tokens:   auth.NewTokenManager(cfg.JWTIssuer, cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL),
			UserSvc:  userSvc,
			TxnSvc:   txnSvc,
			Engine:   engine,
			StatsSvc: statsSvc,
			BankSvc:  bankSvc,
			Hub:      hub,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "redis", relay != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx, nil) })
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
