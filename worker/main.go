package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/corpradar/backend/internal/config"
	"github.com/corpradar/backend/internal/dart"
	"github.com/corpradar/backend/internal/dedupe"
	"github.com/corpradar/backend/internal/elasticsearch"
	"github.com/corpradar/backend/internal/logger"
	"github.com/corpradar/backend/internal/naver"
	"github.com/corpradar/backend/internal/radar"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env", slog.Any("err", err))
	}

	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	svc, err := buildService(ctx, log, cfg)
	if err != nil {
		log.Error("init service", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.RequestTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.QueueCapacity,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	resultWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.ResultTopic,
		Balancer:    &kafka.Hash{},
		MaxAttempts: 3,
	})
	defer resultWriter.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.DLQTopic(),
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.RequestTopic),
		slog.String("result_topic", cfg.ResultTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.DLQTopic()),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, svc, resultWriter, cache, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled mid-message, stopping")
				return
			}
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			// Only commit once the DLQ holds the message; otherwise it is reprocessed on restart.
			if !sendToDLQ(ctx, log, dlqWriter, msg, err, cfg.DLQMaxAttempts) {
				if ctx.Err() != nil {
					return
				}
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

func buildService(ctx context.Context, log *slog.Logger, cfg *config.Worker) (*radar.Service, error) {
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
	if cfg.IndexEnabled() {
		esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, 10)
		if err != nil {
			return nil, err
		}
		opts = append(opts, radar.WithSource(radar.SourceIndex, radar.IndexSource(esClient)))
	}

	return radar.New(dartClient.FetchStatement, opts...), nil
}
