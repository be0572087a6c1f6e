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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/corpradar/backend/internal/config"
	"github.com/corpradar/backend/internal/dart"
	"github.com/corpradar/backend/internal/elasticsearch"
	"github.com/corpradar/backend/internal/logger"
	"github.com/corpradar/backend/internal/naver"
	"github.com/corpradar/backend/internal/radar"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env", slog.Any("err", err))
	}

	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	dartClient := dart.NewClient(cfg.DartAPIKey,
		dart.WithBaseURL(cfg.DartBaseURL),
		dart.WithHTTPClient(httpClient),
		dart.WithRateLimit(cfg.DartRateLimit),
		dart.WithLogger(log),
	)

	opts := []radar.Option{
		radar.WithLogger(log),
		radar.WithConcurrency(cfg.AggregateConcurrency),
	}
	if cfg.NaverEnabled() {
		nc := naver.NewClient(cfg.NaverClientID, cfg.NaverClientSecret,
			naver.WithBaseURL(cfg.NaverBaseURL),
			naver.WithHTTPClient(httpClient),
		)
		opts = append(opts, radar.WithSource(radar.SourceNaver, radar.NaverSource(nc)))
	}

	var health healthChecker
	if cfg.IndexEnabled() {
		esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, 10)
		if err != nil {
			log.Error("connect elasticsearch", slog.Any("err", err))
			os.Exit(1)
		}
		health = esClient
		opts = append(opts, radar.WithSource(radar.SourceIndex, radar.IndexSource(esClient)))
	}

	srv := &server{
		log:    log,
		cfg:    cfg,
		svc:    radar.New(dartClient.FetchStatement, opts...),
		health: health,
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/news", s.handleNews)
	r.Get("/finstat", s.handleFinStat)
	return r
}
