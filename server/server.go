package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Musio/cache"
	"Musio/config"
	"Musio/core/auth"
	"Musio/core/ingest"
	"Musio/core/mediasession"
	"Musio/core/player"
	"Musio/core/recommend"
	"Musio/db"
	"Musio/logger"
	"Musio/repository"
	"Musio/storage"
)

// Start wires every dependency and serves HTTP until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 数据库是必需的
	gdb, err := db.ConnectGormDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrate(gdb); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var tracks repository.TrackRepository = repository.NewGormTrackRepository(gdb)
	playlists := repository.NewGormPlaylistRepository(gdb)
	interactions := repository.NewGormInteractionRepository(gdb)

	hub := mediasession.NewHub()
	go hub.Run()
	defer hub.Stop()

	managerOpts := []player.ManagerOption{
		player.WithSessionOptions(player.WithPublisher(hub)),
	}
	// Redis 只用于缓存和队列快照，连接失败时降级运行
	if rdb, err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, catalog cache and queue snapshots disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		tracks = cache.NewCachedTracks(tracks, rdb, cfg.CatalogCacheTTL)
		managerOpts = append(managerOpts, player.WithSnapshots(cache.NewQueueCache(rdb, cfg.QueueSnapshotTTL), tracks))
	}
	players := player.NewManager(managerOpts...)
	defer players.CloseAll()

	var media MediaStore
	var uploader *storage.MediaStore
	if client, err := storage.NewClient(cfg); err != nil {
		logger.Warn("MinIO unavailable, uploads disabled", logger.ErrorField(err))
	} else {
		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := storage.EnsureBucket(bucketCtx, client, cfg); err != nil {
			logger.Warn("failed to prepare bucket", logger.String("bucket", cfg.MinioBucket), logger.ErrorField(err))
		}
		cancel()
		uploader = storage.NewMediaStore(client, cfg.MinioBucket, cfg.PublicObjectBase())
		media = uploader
	}

	limiter := auth.NewRateLimiter(5, time.Minute)
	guard, err := auth.NewGuard(cfg.Keyword, cfg.JWTSecret, cfg.TokenTTL, auth.WithRateLimiter(limiter))
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	if cfg.IngestDir != "" && uploader != nil {
		watcher := ingest.NewWatcher(cfg.IngestDir, uploader, tracks)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("ingest watcher stopped", logger.ErrorField(err))
			}
		}()
	}

	handler := NewAPIHandler(Deps{
		Tracks:       tracks,
		Playlists:    playlists,
		Interactions: interactions,
		Recommender:  recommend.NewService(tracks, recommend.NewScorer(), cfg.RecommendLimit),
		Players:      players,
		Hub:          hub,
		Media:        media,
		Guard:        guard,
		Config:       cfg,
	})

	// 设置服务器超时
	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      NewRouter(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
