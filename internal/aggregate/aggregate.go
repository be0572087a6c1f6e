// Package aggregate fetches financial statements across years and report
// codes and folds them into a per-year trend series.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/corpradar/backend/internal/finstat"
	"github.com/corpradar/backend/internal/models"
)

// DefaultConcurrency bounds in-flight fetches when a request sets none.
const DefaultConcurrency = 4

// ErrInvalidRequest is returned for requests that cannot be attempted at all.
var ErrInvalidRequest = errors.New("invalid aggregate request")

// FetchFunc returns the raw statement response for one pair. Timeouts and
// retries are its own concern.
type FetchFunc func(ctx context.Context, corpCode string, year int, code models.ReportCode, fsDiv models.FsDiv) ([]byte, error)

// Request describes one bulk aggregation.
type Request struct {
	CorpCode    string
	Years       []int
	ReportCodes []models.ReportCode
	FsDiv       models.FsDiv
	Concurrency int
}

// Result holds the successfully normalized rows, the derived trend and one
// diagnostic per pair that was dropped.
type Result struct {
	Rows        []models.FinancialRow `json:"rows"`
	Trend       []models.TrendPoint   `json:"trend"`
	Diagnostics []models.Diagnostic   `json:"diagnostics"`
}

// Attempted is the number of pairs that were tried.
func (r *Result) Attempted() int {
	return len(r.Rows) + len(r.Diagnostics)
}

type outcome struct {
	row  *models.FinancialRow
	diag *models.Diagnostic
}

// Aggregate fetches and normalizes every (year, report code) pair. A failing
// pair is recorded in Diagnostics and skipped; only an invalid request is an
// error.
func Aggregate(ctx context.Context, req Request, fetch FetchFunc) (*Result, error) {
	if err := validate(&req, fetch); err != nil {
		return nil, err
	}

	tasks := Tasks(req.Years, req.ReportCodes)
	outcomes := make([]outcome, len(tasks))

	limit := req.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			outcomes[i] = run(ctx, req, task, fetch)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		Rows:        make([]models.FinancialRow, 0, len(tasks)),
		Diagnostics: []models.Diagnostic{},
	}
	for _, o := range outcomes {
		if o.row != nil {
			res.Rows = append(res.Rows, *o.row)
		}
		if o.diag != nil {
			res.Diagnostics = append(res.Diagnostics, *o.diag)
		}
	}
	res.Trend = Trend(res.Rows)

	return res, nil
}

func run(ctx context.Context, req Request, task Task, fetch FetchFunc) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failure(models.CollaboratorFailure, task, fmt.Errorf("fetch panicked: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failure(models.CollaboratorFailure, task, err)
	}

	raw, err := fetch(ctx, req.CorpCode, task.Year, task.ReportCode, req.FsDiv)
	if err != nil {
		return failure(models.CollaboratorFailure, task, err)
	}

	row, err := finstat.Normalize(raw, req.CorpCode, task.Year, task.ReportCode, req.FsDiv)
	if err != nil {
		return failure(models.MalformedSourceData, task, err)
	}

	return outcome{row: &row}
}

func failure(kind models.DiagnosticKind, task Task, err error) outcome {
	return outcome{diag: &models.Diagnostic{
		Kind:    kind,
		Subject: task.String(),
		Detail:  err.Error(),
	}}
}

func validate(req *Request, fetch FetchFunc) error {
	req.CorpCode = strings.TrimSpace(req.CorpCode)
	if req.CorpCode == "" {
		return fmt.Errorf("%w: corp code is required", ErrInvalidRequest)
	}
	if fetch == nil {
		return fmt.Errorf("%w: fetch function is required", ErrInvalidRequest)
	}
	if len(req.Years) == 0 {
		return fmt.Errorf("%w: at least one year is required", ErrInvalidRequest)
	}
	for _, y := range req.Years {
		if y < 1000 || y > 9999 {
			return fmt.Errorf("%w: year %d is not a 4-digit year", ErrInvalidRequest, y)
		}
	}
	if len(req.ReportCodes) == 0 {
		return fmt.Errorf("%w: at least one report code is required", ErrInvalidRequest)
	}
	for _, c := range req.ReportCodes {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown report code %q", ErrInvalidRequest, c)
		}
	}
	if req.FsDiv == "" {
		req.FsDiv = models.Consolidated
	}
	if req.FsDiv != models.Consolidated && req.FsDiv != models.Separate {
		return fmt.Errorf("%w: unknown fs_div %q", ErrInvalidRequest, req.FsDiv)
	}
	return nil
}
