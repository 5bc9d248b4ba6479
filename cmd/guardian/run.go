package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aiguardian/guardian/internal/alertlog"
	"github.com/aiguardian/guardian/internal/authenticator"
	"github.com/aiguardian/guardian/internal/config"
	"github.com/aiguardian/guardian/internal/db"
	"github.com/aiguardian/guardian/internal/jobs"
	"github.com/aiguardian/guardian/internal/logger"
	"github.com/aiguardian/guardian/internal/metrics"
	"github.com/aiguardian/guardian/internal/notify"
	"github.com/aiguardian/guardian/internal/registry"
	"github.com/aiguardian/guardian/internal/repository"
	"github.com/aiguardian/guardian/internal/server/handler/http"
	"github.com/aiguardian/guardian/internal/service"
)

const shutdownTimeout = 5 * time.Second

func run(parent context.Context, options *config.Options) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		return err
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	zapLogger.Info("starting guardian",
		zap.String("version", cmp.Or(version, "N/A")),
		zap.String("build_date", cmp.Or(buildDate, "N/A")),
		zap.String("store", options.Store),
	)

	store, closeStore, err := openStore(ctx, options)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, closeNotifier, err := openNotifier(options, zapLogger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	m := metrics.New()
	reg := registry.New(registry.DefaultDevices(time.Now())...)
	sessions := service.NewSessionService(store, zapLogger)
	devices := service.NewDeviceController(reg, alertlog.New(), notifier, m, zapLogger)

	auth := authenticator.New(
		authenticator.NewRandomDecision(options.MatchRate, time.Now().UnixNano()),
		authenticator.WithDelay(options.AuthDelay.Std()),
		authenticator.WithDisplayDelay(options.DisplayDelay.Std()),
	)
	flows := service.NewAuthFlowService(ctx, auth, devices, m, zapLogger)
	defer flows.Shutdown()

	simDone := jobs.StartStatusSimulator(ctx, reg, devices,
		rand.New(rand.NewSource(time.Now().UnixNano())),
		options.StatusInterval.Std(),
		zapLogger,
	)

	deviceHandler := &http.DeviceHandler{Devices: devices, Log: zapLogger}
	router := http.NewRouter(
		&http.AuthHandler{Sessions: sessions, Log: zapLogger},
		deviceHandler,
		&http.FlowHandler{Flows: flows, Devices: deviceHandler, Log: zapLogger},
		sessions,
		m.Handler(),
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	<-simDone
	return nil
}

// openStore connects the configured key/value backend. The returned close
// function is always non-nil.
func openStore(ctx context.Context, options *config.Options) (service.Store, func(), error) {
	switch options.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: options.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("cannot connect to redis: %w", err)
		}
		return repository.NewRedisStore(client, options.RedisPrefix), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		conn, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot init database: %w", err)
		}
		return repository.NewPostgresStore(conn), func() { _ = conn.Close() }, nil

	default:
		return repository.NewMemoryStore(), func() {}, nil
	}
}

// openNotifier always logs alerts and additionally publishes them to NATS
// when a URL is configured.
func openNotifier(options *config.Options, log *zap.Logger) (service.Notifier, func(), error) {
	logNotifier := notify.LogNotifier{Log: log}
	if options.NATSURL == "" {
		return logNotifier, func() {}, nil
	}

	nc, err := notify.Connect(options.NATSURL)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to nats: %w", err)
	}
	multi := notify.Multi{logNotifier, notify.NewNATSNotifier(nc, options.AlertSubject)}
	return multi, func() { _ = nc.Drain() }, nil
}
