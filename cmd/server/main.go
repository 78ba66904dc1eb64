package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/carcall/signal-server-go/internal/config"
	"github.com/carcall/signal-server-go/internal/database"
	"github.com/carcall/signal-server-go/internal/handler"
	"github.com/carcall/signal-server-go/internal/jobs"
	"github.com/carcall/signal-server-go/internal/middleware"
	"github.com/carcall/signal-server-go/internal/push"
	"github.com/carcall/signal-server-go/internal/redis"
	"github.com/carcall/signal-server-go/internal/repository"
	"github.com/carcall/signal-server-go/internal/signaling"
	"github.com/carcall/signal-server-go/internal/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	historyRepo := repository.NewCallHistoryRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	hub := ws.NewHub(redisClient)
	defer hub.Close()

	pushSender := push.NewFCMSender(cfg.FCMEndpoint, cfg.FCMServerKey)

	coordinator := signaling.NewCoordinator(historyRepo, userRepo, pushSender, hub, cfg.RingTimeout())

	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.RateLimitPerMin)

	wsHandler := handler.NewWSHandler(coordinator, hub)
	callsHandler := handler.NewCallsHandler(historyRepo)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"timestamp":   time.Now().UnixMilli(),
			"online":      coordinator.OnlineCount(),
			"activeCalls": coordinator.ActiveCalls(),
			"peers":       hub.PeerCount(),
		})
	})

	r.Get("/v1/ws", wsHandler.ServeHTTP)

	r.Route("/v1/calls", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/", callsHandler.Routes())
	})

	retentionJob := jobs.NewRetentionJob(historyRepo, cfg.HistoryRetention(), config.RetentionJobInterval)
	retentionJob.Start()
	defer retentionJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// WriteTimeout stays 0: websocket connections are long-lived.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
