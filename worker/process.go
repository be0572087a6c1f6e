package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/corpradar/backend/internal/dedupe"
	"github.com/corpradar/backend/internal/models"
	"github.com/corpradar/backend/internal/radar"
)

const (
	kindNews    = "news"
	kindFinStat = "finstat"
)

var errInvalidEnvelope = errors.New("invalid envelope")

// requestEnvelope is one message on the request topic.
type requestEnvelope struct {
	RequestID string              `json:"request_id"`
	Kind      string              `json:"kind"`
	News      *radar.NewsQuery    `json:"news,omitempty"`
	FinStat   *radar.FinStatQuery `json:"finstat,omitempty"`
}

// resultEnvelope is one message on the result topic, keyed by request id.
type resultEnvelope struct {
	RequestID   string                `json:"request_id"`
	Kind        string                `json:"kind"`
	News        *models.NewsResult    `json:"news,omitempty"`
	FinStat     *models.FinStatResult `json:"finstat,omitempty"`
	Error       string                `json:"error,omitempty"`
	ProcessedAt time.Time             `json:"processed_at"`
}

type service interface {
	News(ctx context.Context, q radar.NewsQuery) (*models.NewsResult, error)
	FinStat(ctx context.Context, q radar.FinStatQuery) (*models.FinStatResult, error)
}

type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// processMessage answers one request envelope on the result topic. Requests
// already answered within the cache TTL are skipped. Returned errors send the
// message to the DLQ.
func processMessage(ctx context.Context, log *slog.Logger, svc service, results publisher, cache *dedupe.Cache, msg kafka.Message) error {
	var env requestEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return fmt.Errorf("%w: %w", errInvalidEnvelope, err)
	}

	env.Kind = strings.ToLower(strings.TrimSpace(env.Kind))
	env.RequestID = strings.TrimSpace(env.RequestID)
	if env.RequestID == "" {
		// Redelivered bytes map to the same id.
		env.RequestID = uuid.NewSHA1(uuid.NameSpaceOID, msg.Value).String()
	}

	if cache.Contains(env.RequestID) {
		log.Debug("duplicate request", slog.String("request_id", env.RequestID))
		return nil
	}

	out := resultEnvelope{RequestID: env.RequestID, Kind: env.Kind}
	var err error
	switch env.Kind {
	case kindNews:
		if env.News == nil {
			return fmt.Errorf("%w: news request without news body", errInvalidEnvelope)
		}
		out.News, err = svc.News(ctx, *env.News)
		if out.News != nil {
			out.News.RequestID = env.RequestID
		}
	case kindFinStat:
		if env.FinStat == nil {
			return fmt.Errorf("%w: finstat request without finstat body", errInvalidEnvelope)
		}
		out.FinStat, err = svc.FinStat(ctx, *env.FinStat)
		if out.FinStat != nil {
			out.FinStat.RequestID = env.RequestID
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", errInvalidEnvelope, env.Kind)
	}

	switch {
	case err == nil:
	case errors.Is(err, radar.ErrInvalidQuery):
		return fmt.Errorf("%w: %w", errInvalidEnvelope, err)
	case errors.Is(err, radar.ErrSourceFailed):
		// Answer with the failure so the requester is not left waiting.
		log.Warn("news source failed", slog.String("request_id", env.RequestID), slog.Any("err", err))
		out.Error = err.Error()
	default:
		return err
	}

	out.ProcessedAt = time.Now().UTC()
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := results.WriteMessages(ctx, kafka.Message{Key: []byte(env.RequestID), Value: payload}); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}

	cache.Add(env.RequestID)
	log.Info("request answered",
		slog.String("request_id", env.RequestID),
		slog.String("kind", env.Kind),
		slog.Bool("failed", out.Error != ""),
		slog.Int("answered_cached", cache.Len()),
	)
	return nil
}

// dlqBackoff is the wait before DLQ attempt n+1.
var dlqBackoff = func(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// sendToDLQ writes msg with its failure context to the DLQ, retrying with
// exponential backoff. It reports whether the write succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, dlq publisher, msg kafka.Message, cause error, maxAttempts int) bool {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		dlqErr := dlq.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		if attempt == maxAttempts-1 {
			break
		}
		backoff := dlqBackoff(attempt)
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}
	return false
}
