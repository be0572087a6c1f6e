// Package radar ties the news sources, the dedup engine and the statement
// aggregator together for the api and worker services.
package radar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/corpradar/backend/internal/aggregate"
	"github.com/corpradar/backend/internal/dart"
	"github.com/corpradar/backend/internal/dedupe"
	"github.com/corpradar/backend/internal/models"
)

var (
	// ErrInvalidQuery marks a request rejected before any upstream call.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrSourceFailed marks a news source that could not be searched.
	ErrSourceFailed = errors.New("news source failed")
)

// NewsQuery asks for deduplicated news. Inline items skip the source search.
type NewsQuery struct {
	Query    string               `json:"query"`
	Source   string               `json:"source,omitempty"`
	Sort     string               `json:"sort,omitempty"`
	Strength string               `json:"dedup_strength,omitempty"`
	Display  int                  `json:"display,omitempty"`
	Items    []models.RawNewsItem `json:"items,omitempty"`
}

// FinStatQuery asks for a statement trend over years and report codes.
// Empty ReportCodes means the annual report only.
type FinStatQuery struct {
	CorpCode    string   `json:"corp_code"`
	Years       []int    `json:"years"`
	ReportCodes []string `json:"reprt_codes,omitempty"`
	FsDiv       string   `json:"fs_div,omitempty"`
}

type Service struct {
	log         *slog.Logger
	sources     map[string]Source
	order       []string
	fetch       aggregate.FetchFunc
	concurrency int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithSource registers a named news source. The first registered source is
// the default.
func WithSource(name string, src Source) Option {
	return func(s *Service) {
		if _, ok := s.sources[name]; !ok {
			s.order = append(s.order, name)
		}
		s.sources[name] = src
	}
}

func WithConcurrency(n int) Option {
	return func(s *Service) {
		s.concurrency = n
	}
}

// New builds a Service whose statement fetches go through fetch.
func New(fetch aggregate.FetchFunc, opts ...Option) *Service {
	s := &Service{
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		sources:     map[string]Source{},
		fetch:       fetch,
		concurrency: aggregate.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// News fetches (or takes inline) items and collapses duplicates.
func (s *Service) News(ctx context.Context, q NewsQuery) (*models.NewsResult, error) {
	order, err := dedupe.ParseSortOrder(q.Sort)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	strength, err := dedupe.ParseStrength(q.Strength)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	text := strings.TrimSpace(q.Query)
	sourceName := SourceInline
	items := q.Items
	if len(items) == 0 {
		if text == "" {
			return nil, fmt.Errorf("%w: query is required", ErrInvalidQuery)
		}
		var src Source
		sourceName, src, err = s.source(q.Source)
		if err != nil {
			return nil, err
		}
		items, err = src.Search(ctx, SourceQuery{Text: text, Display: q.Display, Order: order})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceFailed, sourceName, err)
		}
	}

	engine := dedupe.NewEngine(dedupe.StrategyFor(strength))
	out, diags := engine.Deduplicate(items, order)
	s.logDiagnostics("news", diags)

	s.log.Info("news deduplicated",
		slog.String("source", sourceName),
		slog.Int("fetched", len(items)),
		slog.Int("kept", len(out)),
		slog.Int("diagnostics", len(diags)),
	)

	return &models.NewsResult{
		Source:      sourceName,
		Query:       text,
		Sort:        string(order),
		Fetched:     len(items),
		Items:       out,
		Diagnostics: nonNil(diags),
	}, nil
}

// FinStat aggregates statements for every (year, report code) pair.
func (s *Service) FinStat(ctx context.Context, q FinStatQuery) (*models.FinStatResult, error) {
	corpCode, stockCode := dart.SplitCompanyCode(q.CorpCode)
	if corpCode == "" {
		if stockCode != "" {
			return nil, fmt.Errorf("%w: %s is a stock code; corp_code must be the 8-digit DART code", ErrInvalidQuery, stockCode)
		}
		return nil, fmt.Errorf("%w: corp_code %q is not an 8-digit DART code", ErrInvalidQuery, q.CorpCode)
	}

	codes := make([]models.ReportCode, 0, len(q.ReportCodes))
	for _, raw := range q.ReportCodes {
		code, err := models.ParseReportCode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		codes = []models.ReportCode{models.ReportAnnual}
	}

	fsDiv, err := models.ParseFsDiv(q.FsDiv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	res, err := aggregate.Aggregate(ctx, aggregate.Request{
		CorpCode:    corpCode,
		Years:       q.Years,
		ReportCodes: codes,
		FsDiv:       fsDiv,
		Concurrency: s.concurrency,
	}, s.fetch)
	if err != nil {
		if errors.Is(err, aggregate.ErrInvalidRequest) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		return nil, err
	}
	s.logDiagnostics("finstat", res.Diagnostics)

	mode := aggregate.ModeFor(q.Years, codes)
	s.log.Info("statements aggregated",
		slog.String("corp_code", corpCode),
		slog.String("mode", string(mode)),
		slog.Int("attempted", res.Attempted()),
		slog.Int("rows", len(res.Rows)),
	)

	return &models.FinStatResult{
		CorpCode:    corpCode,
		Mode:        string(mode),
		Rows:        res.Rows,
		Trend:       res.Trend,
		Diagnostics: nonNil(res.Diagnostics),
	}, nil
}

func (s *Service) source(name string) (string, Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		if len(s.order) == 0 {
			return "", nil, fmt.Errorf("%w: no news source configured", ErrInvalidQuery)
		}
		name = s.order[0]
	}
	src, ok := s.sources[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown source %q", ErrInvalidQuery, name)
	}
	return name, src, nil
}

func (s *Service) logDiagnostics(op string, diags []models.Diagnostic) {
	for _, d := range diags {
		s.log.Warn("record dropped or degraded",
			slog.String("op", op),
			slog.String("kind", string(d.Kind)),
			slog.String("subject", d.Subject),
			slog.String("detail", d.Detail),
		)
	}
}

func nonNil(diags []models.Diagnostic) []models.Diagnostic {
	if diags == nil {
		return []models.Diagnostic{}
	}
	return diags
}
