package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"neurema-cms/internal/config"
	"neurema-cms/internal/database"
	"neurema-cms/internal/events"
	"neurema-cms/internal/handlers"
	"neurema-cms/internal/middleware"
	"neurema-cms/internal/router"
	"neurema-cms/internal/services"
	"neurema-cms/internal/websocket"
	"neurema-cms/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("starting neurema-cms", "env", cfg.Env)

	// ──── Step 2: Connect Database & Run Migrations ────
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("store setup failed", "error", err)
		return err
	}
	defer store.Close()

	// ──── Step 3: Change Events (Redis optional) ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	collections := []string{"conceptuals", "edges", "exams", services.CollectionStudySessions, services.CollectionUserTopics}

	var publisher events.Publisher
	var hub *websocket.Hub
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Error("Redis connection failed", "error", err)
			return err
		}
		defer redisClients.Close()
		log.Info("Redis connected")

		publisher = events.NewRedisPublisher(redisClients.Publish, log)
		hub = websocket.NewHub(redisClients.PubSub, jwtAuth, collections, log)
	} else {
		hub = websocket.NewHub(nil, jwtAuth, collections, log)
		publisher = hub
	}
	defer hub.Close()

	dispatcher := worker.NewDispatcher(publisher, 2, 1024, log)
	dispatcher.Start()
	defer dispatcher.Stop()

	// ──── Step 4: Services & Handlers ────
	bulkSyncService := services.NewBulkSyncService(store, dispatcher, log)
	contents := services.NewContents(store, dispatcher, log, services.PageLimits{
		Default: cfg.DefaultPageSize,
		Max:     cfg.MaxPageSize,
	})

	bulkLimiter := middleware.NewRateLimiter(cfg.BulkSyncRateLimit, time.Minute)
	go bulkLimiter.Cleanup(ctx)

	r := router.New(router.Deps{
		Config:      cfg,
		Log:         log,
		JWTAuth:     jwtAuth,
		Health:      handlers.NewHealthHandler(store, log),
		BulkSync:    handlers.NewBulkSyncHandler(bulkSyncService, log),
		Contents:    contents,
		Hub:         hub,
		BulkLimiter: bulkLimiter,
	})

	// ──── Step 5: Start HTTP Server ────
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	log.Info("neurema-cms ready", "addr", cfg.Addr(), "public_url", cfg.PublicURL, "auth", jwtAuth.Enabled(), "redis", cfg.RedisURL != "")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
