package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"aux_relay/internal/domain"
	"aux_relay/internal/engine"
	"aux_relay/internal/infra"
	"aux_relay/internal/infra/redisbus"
	"aux_relay/internal/infra/storage"
	"aux_relay/internal/infra/ws"
	"aux_relay/internal/service"

	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Metrics   *infra.Metrics
	Storage   *storage.Storage
	Redis     *redis.Client
	Cache     *service.PriceCache
	Hub       *ws.Hub
	Poller    *service.Poller
	Scheduler *engine.Scheduler
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{Metrics: &infra.Metrics{}}
}

// Initialize performs core system initialization (config, logger, storage, wiring)
func (b *Bootstrap) Initialize(ctx context.Context, configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping AUX relay...", slog.String("source", string(cfg.Source())))

	// 3. Fallback cache (optionally durable)
	var store domain.CacheStore
	if cfg.Cache.DBPath != "" {
		st, err := storage.NewStorage(cfg.Cache.DBPath)
		if err != nil {
			return err
		}
		b.Storage = st
		store = st
		slog.Info("✅ Cache database initialized", slog.String("path", cfg.Cache.DBPath))
	}
	b.Cache = service.NewPriceCache(store)
	if err := b.Cache.Restore(); err != nil {
		slog.Warn("Failed to restore cached price", slog.Any("error", err))
	}

	// 4. Subscribers
	b.Hub = ws.NewHub(b.Metrics)
	sinks := []domain.Broadcaster{b.Hub}

	// 5. Optional redis mirror
	if cfg.Redis.Addr != "" {
		rdb, err := redisbus.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// The relay works without the mirror.
			slog.Warn("Redis unavailable, mirror disabled", slog.String("addr", cfg.Redis.Addr), slog.Any("error", err))
		} else {
			b.Redis = rdb
			sinks = append(sinks, redisbus.New(rdb, cfg.Redis.Prefix, 0))
			slog.Info("✅ Redis mirror ready", slog.String("addr", cfg.Redis.Addr))
		}
	}

	// 6. Poller & scheduler
	b.Poller = service.NewPoller(infra.NewPriceSource(cfg), b.Cache, b.Metrics, sinks...)
	b.Scheduler = engine.NewScheduler(b.Poller, b.Hub, cfg.PollInterval(), cfg.HeartbeatInterval())

	return nil
}

// Handler serves subscribers on every path and metrics on /healthz
func (b *Bootstrap) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(b.Metrics.Snapshot())
	})
	mux.Handle("/", b.Hub)
	return mux
}

// Run listens on the configured port and serves until ctx is cancelled
func (b *Bootstrap) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.Config.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", b.Config.ListenAddr(), err)
	}
	return b.Serve(ctx, ln)
}

// Serve runs the HTTP server and both periodic tasks on ln.
// Everything is stopped together when ctx is cancelled.
func (b *Bootstrap) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		b.Scheduler.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("✨ Relay listening", slog.String("addr", ln.Addr().String()))
		serveErr <- srv.Serve(ln)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}
	cancel()

	slog.Info("👋 Shutting down gracefully...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	// Hijacked websocket connections are not tracked by Shutdown.
	b.Hub.CloseAll()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	<-schedDone

	return err
}

// Close releases storage and redis handles
func (b *Bootstrap) Close() {
	if b.Redis != nil {
		b.Redis.Close()
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close storage", slog.Any("error", err))
		}
	}
}
