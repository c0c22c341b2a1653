package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	authcore "github.com/kwasu-clearance/authcore"
	"github.com/kwasu-clearance/authcore/httpapi"
	"github.com/kwasu-clearance/authcore/internal/accounts"
)

// Runtime wires the engine, its stores, and the HTTP server together
// for one clearance-authd process.
type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	engine     *authcore.Engine
	httpServer *http.Server
	cleanupFn  func()
}

// NewRuntime loads configuration and builds every component the
// service needs. Redis is optional; without REDIS_URL the engine runs
// on in-memory stores, which is fine for a single instance.
func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping clearance auth service",
		"http_port", cfg.HTTPPort,
		"accounts_file", cfg.AccountsFile,
		"redis", cfg.RedisURL != "",
		"bot_check", cfg.BotVerifySecret != "",
	)

	roster, err := accounts.Load(cfg.AccountsFile)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	logger.Info("roster loaded", "accounts", roster.Len())

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	builder := authcore.New().
		WithConfig(cfg.EngineConfig()).
		WithUserProvider(roster).
		WithAuditSink(authcore.NewJSONWriterSink(os.Stdout))
	if redisClient != nil {
		builder = builder.WithRedis(redisClient)
	}

	engine, err := builder.Build()
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("build engine: %w", err)
	}

	router := httpapi.NewRouter(httpapi.NewHandler(engine))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		engine:     engine,
		httpServer: httpServer,
		cleanupFn: func() {
			engine.Close()
			if redisClient != nil {
				_ = redisClient.Close()
			}
		},
	}, nil
}

// Run serves HTTP until a shutdown signal or server failure, then
// drains the engine.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn()
	return nil
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
