// Command authcored serves the authcore engine over HTTP.
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

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/store/memory"
	"github.com/MrEthical07/authcore/store/postgres"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := loadConfig(os.Args[1:], os.Getenv)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("authcored stopped", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *daemonConfig, logger *slog.Logger) (account.Store, func(), error) {
	if cfg.DatabaseDSN == "" {
		logger.Warn("no database DSN configured, accounts are kept in memory")
		return memory.New(), func() {}, nil
	}
	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return postgres.New(db), func() { _ = db.Close() }, nil
}

func buildEngine(cfg *daemonConfig, store account.Store, rdb redis.UniversalClient, logger *slog.Logger) (*authcore.Engine, error) {
	ac := authcore.DefaultConfig()
	ac.JWT.PrivateKey = []byte(cfg.SecretKey)
	ac.JWT.AccessTTL = cfg.AccessTTL
	ac.JWT.RefreshTTL = cfg.RefreshTTL
	ac.Cache.TTL = cfg.CacheTTL
	ac.Logger = logger
	ac.Metrics.Enabled = cfg.Metrics
	ac.Metrics.EnableLatencyHistograms = cfg.Metrics
	ac.Audit.Enabled = cfg.AuditLog

	b := authcore.New().
		WithConfig(ac).
		WithStore(store).
		WithRedis(rdb).
		WithNotifier(notify.NewLogNotifier(logger, cfg.ConfirmBaseURL))
	if cfg.AuditLog {
		b = b.WithAuditSink(authcore.NewJSONWriterSink(os.Stdout))
	}
	return b.Build()
}

func run(ctx context.Context, cfg *daemonConfig, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddr}})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The engine degrades to store reads without the cache.
		logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
	}

	engine, err := buildEngine(cfg, store, rdb, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("security posture",
		"signing", report.SigningAlgorithm,
		"password", report.PasswordAlgorithm,
		"staleness_bound", report.StalenessBound.String(),
		"login_throttle", report.LoginThrottleActive,
	)
	for _, w := range report.Warnings {
		logger.Warn("security posture", "warning", w)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           (&server{engine: engine, logger: logger}).routes(cfg.Metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("authcored listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
