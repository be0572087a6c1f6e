package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corpradar/backend/internal/config"
	"github.com/corpradar/backend/internal/models"
	"github.com/corpradar/backend/internal/radar"
)

type service interface {
	News(ctx context.Context, q radar.NewsQuery) (*models.NewsResult, error)
	FinStat(ctx context.Context, q radar.FinStatQuery) (*models.FinStatResult, error)
}

type healthChecker interface {
	Health(ctx context.Context) error
}

type server struct {
	log    *slog.Logger
	cfg    *config.API
	svc    service
	health healthChecker
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.health.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	q := r.URL.Query()
	res, err := s.svc.News(ctx, radar.NewsQuery{
		Query:    strings.TrimSpace(q.Get("q")),
		Source:   strings.TrimSpace(q.Get("source")),
		Sort:     strings.TrimSpace(q.Get("sort")),
		Strength: strings.TrimSpace(q.Get("dedup_strength")),
		Display:  clampInt(q.Get("display"), s.cfg.DefaultPage, s.cfg.MaxPage),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res.RequestID = requestID(r)
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleFinStat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	q := r.URL.Query()
	years, err := parseYears(q.Get("years"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.svc.FinStat(ctx, radar.FinStatQuery{
		CorpCode:    strings.TrimSpace(q.Get("corp_code")),
		Years:       years,
		ReportCodes: parseCSV(q.Get("reprt_codes")),
		FsDiv:       strings.TrimSpace(q.Get("fs_div")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res.RequestID = requestID(r)
	writeJSON(w, http.StatusOK, res)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, radar.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, radar.ErrSourceFailed):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Any("err", err),
		)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// requestID reuses an incoming X-Request-Id and otherwise mints a UUID.
func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-Id")); id != "" {
		return id
	}
	return uuid.NewString()
}

func parseYears(raw string) ([]int, error) {
	parts := parseCSV(raw)
	years := make([]int, 0, len(parts))
	for _, part := range parts {
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		years = append(years, y)
	}
	return years, nil
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
