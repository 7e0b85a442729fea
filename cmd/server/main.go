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

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/homecast/cast-notifier/internal/api"
	"github.com/homecast/cast-notifier/internal/cast"
	"github.com/homecast/cast-notifier/internal/config"
	"github.com/homecast/cast-notifier/internal/db"
	"github.com/homecast/cast-notifier/internal/domain"
	"github.com/homecast/cast-notifier/internal/mediaserver"
	"github.com/homecast/cast-notifier/internal/metrics"
	"github.com/homecast/cast-notifier/internal/playback"
	"github.com/homecast/cast-notifier/internal/queue"
	"github.com/homecast/cast-notifier/internal/ratelimiter"
	"github.com/homecast/cast-notifier/internal/repository"
	"github.com/homecast/cast-notifier/internal/service"
	"github.com/homecast/cast-notifier/internal/tts"
	"github.com/homecast/cast-notifier/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg := config.Load()

	ctx := context.Background()

	// ---- session history store ----
	var repo repository.SessionRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")
		repo = repository.NewPgSessionRepository(pool)
	} else {
		logger.Info("DATABASE_URL not set, keeping session history in memory")
		repo = repository.NewMemorySessionRepository()
	}

	if err := os.MkdirAll(cfg.AssetDir, 0o755); err != nil {
		logger.Fatal("failed to create asset directory",
			zap.String("dir", cfg.AssetDir), zap.Error(err))
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	q := queue.New()
	m.RegisterQueueDepth(q.Len)
	limiter := ratelimiter.New(cfg.RatePerMinute)
	svc := service.NewNotificationService(repo, q, limiter, logger)

	registry := cast.NewRegistry(logger)
	defer registry.CloseAll()

	// Devices fetch audio over the network, so the media URL must carry an
	// externally reachable host, never localhost.
	host := cfg.MediaHost
	if host == "" {
		ip, err := mediaserver.OutboundIP()
		if err != nil {
			logger.Fatal("failed to determine media host; set MEDIA_HOST", zap.Error(err))
		}
		host = ip
	}
	mediaBaseURL := fmt.Sprintf("http://%s:%s", host, cfg.MediaPort)
	logger.Info("media base URL", zap.String("url", mediaBaseURL))

	// ---- media server ----
	media := mediaserver.New(cfg.MediaPort, cfg.AssetDir, cfg.TransferChunk, logger, m.ServerHook())
	go func() {
		if err := media.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("media server error", zap.Error(err))
		}
	}()

	// ---- playback worker ----
	synth := tts.NewHTTPSynthesizer(cfg.TTSBaseURL, cfg.TTSLanguage, cfg.TTSBitrateBPS, cfg.TTSTimeout)
	detector := playback.NewDetector(playback.Tuning{
		SettleDelay:        cfg.SettleDelay,
		PollInterval:       cfg.PollInterval,
		MinPlaybackTimeout: cfg.MinPlaybackTimeout,
		StartSlack:         cfg.StartSlack,
		DurationSlack:      cfg.DurationSlack,
		FlushGrace:         cfg.FlushGrace,
	}, logger)
	restorer := playback.NewRestorer(cfg.RestoreInterval, cfg.RestoreAttempts, logger)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	onCompleted, onSkipped, onFailed := m.WorkerHooks()
	notifier := worker.NewNotifier(worker.Options{
		Queue:              q,
		Registry:           registry,
		Synth:              synth,
		Repo:               repo,
		Detector:           detector,
		Restorer:           restorer,
		AssetDir:           cfg.AssetDir,
		MediaBaseURL:       mediaBaseURL,
		Volume:             cfg.NotificationVolume,
		AwaitActiveTimeout: cfg.AwaitActiveTimeout,
		DequeuePoll:        cfg.DequeuePoll,
		Logger:             logger,
		Hooks: worker.MetricHooks{
			OnCompleted: onCompleted,
			OnSkipped:   onSkipped,
			OnFailed:    onFailed,
		},
	})
	go notifier.Run(workerCtx)

	// ---- endpoint feed ----
	feed := &cast.StaticFeed{URLs: cfg.CastEndpoints, Logger: logger}
	go func() {
		if err := feed.Run(workerCtx, registry); err != nil {
			logger.Warn("endpoint feed failed", zap.Error(err))
		}
	}()

	// ---- control-plane HTTP server ----
	router := api.NewRouter(svc, registry, q, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new submissions.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Push the sentinel so a consumer blocked on an empty dequeue wakes,
	//    and signal the worker; an in-flight playback is aborted with a
	//    best-effort restore. The join is bounded: a wedged device is an
	//    operational error, never a hung shutdown.
	q.Enqueue(domain.Sentinel)
	cancelWorker()
	select {
	case <-notifier.Done():
		if !q.Drain(cfg.ShutdownTimeout) {
			logger.Error("queue did not drain before shutdown deadline")
		}
	case <-time.After(cfg.ShutdownTimeout):
		logger.Error("worker did not stop within shutdown budget, abandoning playback")
	}

	// 3. Media server last: a device may still be streaming the final
	//    notification during the grace period above.
	if err := media.Shutdown(shutdownCtx); err != nil {
		logger.Error("media server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}
