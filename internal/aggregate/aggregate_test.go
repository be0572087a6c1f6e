package aggregate_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corpradar/backend/internal/aggregate"
	"github.com/corpradar/backend/internal/models"
)

func statement(revenue, operating, net, assets, liabilities, equity string) []byte {
	return []byte(fmt.Sprintf(`{"status":"000","message":"정상","list":[
		{"account_id":"ifrs-full_Revenue","account_nm":"매출액","thstrm_amount":%q,"currency":"KRW"},
		{"account_id":"dart_OperatingIncomeLoss","account_nm":"영업이익","thstrm_amount":%q,"currency":"KRW"},
		{"account_id":"ifrs-full_ProfitLoss","account_nm":"당기순이익","thstrm_amount":%q,"currency":"KRW"},
		{"account_id":"ifrs-full_Assets","account_nm":"자산총계","thstrm_amount":%q,"currency":"KRW"},
		{"account_id":"ifrs-full_Liabilities","account_nm":"부채총계","thstrm_amount":%q,"currency":"KRW"},
		{"account_id":"ifrs-full_Equity","account_nm":"자본총계","thstrm_amount":%q,"currency":"KRW"}
	]}`, revenue, operating, net, assets, liabilities, equity))
}

type fakeSource struct {
	mu       sync.Mutex
	payloads map[aggregate.Task][]byte
	errs     map[aggregate.Task]error
	calls    []aggregate.Task
	delay    func(aggregate.Task) time.Duration
}

func (f *fakeSource) fetch(ctx context.Context, corpCode string, year int, code models.ReportCode, fsDiv models.FsDiv) ([]byte, error) {
	task := aggregate.Task{Year: year, ReportCode: code}
	f.mu.Lock()
	f.calls = append(f.calls, task)
	f.mu.Unlock()

	if f.delay != nil {
		time.Sleep(f.delay(task))
	}
	if err := f.errs[task]; err != nil {
		return nil, err
	}
	if p, ok := f.payloads[task]; ok {
		return p, nil
	}
	return []byte(`{"status":"013","message":"조회된 데이타가 없습니다."}`), nil
}

func trendValue(t *testing.T, points []models.TrendPoint, year int, m models.Metric) models.TrendPoint {
	t.Helper()
	for _, p := range points {
		if p.Year == year && p.Metric == m {
			return p
		}
	}
	t.Fatalf("no trend point for %d %s", year, m)
	return models.TrendPoint{}
}

func TestAggregateSinglePair(t *testing.T) {
	src := &fakeSource{payloads: map[aggregate.Task][]byte{
		{Year: 2023, ReportCode: models.ReportAnnual}: statement("100", "10", "5", "1000", "400", "600"),
	}}

	res, err := aggregate.Aggregate(context.Background(), aggregate.Request{
		CorpCode:    "00126380",
		Years:       []int{2023},
		ReportCodes: []models.ReportCode{models.ReportAnnual},
		FsDiv:       models.Consolidated,
	}, src.fetch)
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Trend, len(models.Metrics))

	row := res.Rows[0]
	for _, m := range models.Metrics {
		v, ok := row.Value(m)
		require.True(t, ok)
		p := trendValue(t, res.Trend, 2023, m)
		require.Equal(t, v, p.Average)
		require.Equal(t, 1, p.Samples)
	}
	require.Equal(t, aggregate.ModeSingle, aggregate.ModeFor([]int{2023}, []models.ReportCode{models.ReportAnnual}))
}

func TestAggregatePartialFailure(t *testing.T) {
	src := &fakeSource{
		payloads: map[aggregate.Task][]byte{
			{Year: 2022, ReportCode: models.ReportAnnual}:   statement("100", "10", "5", "1000", "400", "600"),
			{Year: 2022, ReportCode: models.ReportHalfYear}: statement("50", "4", "2", "900", "300", "600"),
			{Year: 2023, ReportCode: models.ReportAnnual}:   statement("120", "12", "6", "1100", "500", "600"),
		},
		errs: map[aggregate.Task]error{
			{Year: 2023, ReportCode: models.ReportHalfYear}: errors.New("upstream timeout"),
		},
	}

	res, err := aggregate.Aggregate(context.Background(), aggregate.Request{
		CorpCode:    "00126380",
		Years:       []int{2023, 2022},
		ReportCodes: []models.ReportCode{models.ReportHalfYear, models.ReportAnnual},
		FsDiv:       models.Consolidated,
		Concurrency: 2,
	}, src.fetch)
	require.NoError(t, err)

	require.Len(t, res.Rows, 3)
	require.Len(t, res.Diagnostics, 1)
	require.Equal(t, 4, res.Attempted())
	require.Equal(t, models.CollaboratorFailure, res.Diagnostics[0].Kind)
	require.Equal(t, "2023/11012", res.Diagnostics[0].Subject)
	require.Contains(t, res.Diagnostics[0].Detail, "upstream timeout")

	// rows come back in task order regardless of completion order
	require.Equal(t, 2022, res.Rows[0].Year)
	require.Equal(t, models.ReportAnnual, res.Rows[0].ReportCode)
	require.Equal(t, models.ReportHalfYear, res.Rows[1].ReportCode)
	require.Equal(t, 2023, res.Rows[2].Year)

	rev22 := trendValue(t, res.Trend, 2022, models.Revenue)
	require.Equal(t, 75.0, rev22.Average)
	require.Equal(t, 2, rev22.Samples)
	rev23 := trendValue(t, res.Trend, 2023, models.Revenue)
	require.Equal(t, 120.0, rev23.Average)
	require.Equal(t, 1, rev23.Samples)

	require.Equal(t, aggregate.ModeBulk, aggregate.ModeFor([]int{2022, 2023}, []models.ReportCode{models.ReportAnnual, models.ReportHalfYear}))
}

func TestAggregateMalformedPayload(t *testing.T) {
	src := &fakeSource{payloads: map[aggregate.Task][]byte{
		{Year: 2021, ReportCode: models.ReportAnnual}: []byte(`<html>maintenance</html>`),
		{Year: 2022, ReportCode: models.ReportAnnual}: statement("1", "1", "1", "1", "1", "1"),
	}}

	res, err := aggregate.Aggregate(context.Background(), aggregate.Request{
		CorpCode:    "00126380",
		Years:       []int{2021, 2022},
		ReportCodes: []models.ReportCode{models.ReportAnnual},
	}, src.fetch)
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	require.Len(t, res.Diagnostics, 1)
	require.Equal(t, models.MalformedSourceData, res.Diagnostics[0].Kind)
	require.Equal(t, models.Consolidated, res.Rows[0].FsDiv)

	for _, p := range res.Trend {
		require.Equal(t, 2022, p.Year, "a year without rows must not produce points")
	}
}

func TestAggregateAllPairsFail(t *testing.T) {
	src := &fakeSource{}
	res, err := aggregate.Aggregate(context.Background(), aggregate.Request{
		CorpCode:    "00126380",
		Years:       []int{2020, 2021},
		ReportCodes: []models.ReportCode{models.ReportAnnual},
	}, src.fetch)
	require.NoError(t, err)
	require.Empty(t, res.Rows)
	require.Empty(t, res.Trend)
	require.Len(t, res.Diagnostics, 2)
}

func TestAggregateDeterministicAcrossCompletionOrder(t *testing.T) {
	payloads := map[aggregate.Task][]byte{
		{Year: 2022, ReportCode: models.ReportAnnual}:   statement("0.1", "1", "1", "1", "1", "1"),
		{Year: 2022, ReportCode: models.ReportHalfYear}: statement("0.2", "2", "2", "2", "2", "2"),
		{Year: 2022, ReportCode: models.ReportQ1}:       statement("0.3", "3", "3", "3", "3", "3"),
		{Year: 2022, ReportCode: models.ReportQ3}:       statement("0.7", "4", "4", "4", "4", "4"),
	}
	req := aggregate.Request{
		CorpCode:    "00126380",
		Years:       []int{2022},
		ReportCodes: []models.ReportCode{models.ReportAnnual, models.ReportHalfYear, models.ReportQ1, models.ReportQ3},
		Concurrency: 4,
	}

	fast := &fakeSource{payloads: payloads, delay: func(t aggregate.Task) time.Duration {
		return time.Duration(t.ReportCode[4]-'0') * time.Millisecond
	}}
	slow := &fakeSource{payloads: payloads, delay: func(t aggregate.Task) time.Duration {
		return time.Duration(5-(t.ReportCode[4]-'0')) * time.Millisecond
	}}

	a, err := aggregate.Aggregate(context.Background(), req, fast.fetch)
	require.NoError(t, err)
	b, err := aggregate.Aggregate(context.Background(), req, slow.fetch)
	require.NoError(t, err)

	require.Equal(t, a.Rows, b.Rows)
	require.Equal(t, a.Trend, b.Trend)
}

func TestAggregateBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	fetch := func(ctx context.Context, corpCode string, year int, code models.ReportCode, fsDiv models.FsDiv) ([]byte, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return statement("1", "1", "1", "1", "1", "1"), nil
	}

	res, err := aggregate.Aggregate(context.Background(), aggregate.Request{
		CorpCode:    "00126380",
		Years:       []int{2019, 2020, 2021, 2022, 2023},
		ReportCodes: []models.ReportCode{models.ReportAnnual, models.ReportHalfYear},
		Concurrency: 2,
	}, fetch)
	require.NoError(t, err)
	require.Len(t, res.Rows, 10)
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestAggregateCancelledContext(t *testing.T) {
	src := &fakeSource{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := aggregate.Aggregate(ctx, aggregate.Request{
		CorpCode:    "00126380",
		Years:       []int{2023},
		ReportCodes: []models.ReportCode{models.ReportAnnual, models.ReportQ1},
	}, src.fetch)
	require.NoError(t, err)
	require.Empty(t, res.Rows)
	require.Len(t, res.Diagnostics, 2)
	require.Empty(t, src.calls)
	for _, d := range res.Diagnostics {
		require.Equal(t, models.CollaboratorFailure, d.Kind)
	}
}

func TestAggregateFetchPanicIsAPairFailure(t *testing.T) {
	fetch := func(ctx context.Context, corpCode string, year int, code models.ReportCode, fsDiv models.FsDiv) ([]byte, error) {
		if year == 2020 {
			panic("boom")
		}
		return statement("1", "1", "1", "1", "1", "1"), nil
	}

	res, err := aggregate.Aggregate(context.Background(), aggregate.Request{
		CorpCode:    "00126380",
		Years:       []int{2020, 2021},
		ReportCodes: []models.ReportCode{models.ReportAnnual},
	}, fetch)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Len(t, res.Diagnostics, 1)
	require.Contains(t, res.Diagnostics[0].Detail, "boom")
}

func TestAggregateInvalidRequest(t *testing.T) {
	src := &fakeSource{}
	valid := aggregate.Request{
		CorpCode:    "00126380",
		Years:       []int{2023},
		ReportCodes: []models.ReportCode{models.ReportAnnual},
	}

	tests := []struct {
		name   string
		mutate func(r *aggregate.Request)
	}{
		{name: "blank corp code", mutate: func(r *aggregate.Request) { r.CorpCode = "  " }},
		{name: "no years", mutate: func(r *aggregate.Request) { r.Years = nil }},
		{name: "short year", mutate: func(r *aggregate.Request) { r.Years = []int{23} }},
		{name: "no codes", mutate: func(r *aggregate.Request) { r.ReportCodes = nil }},
		{name: "unknown code", mutate: func(r *aggregate.Request) { r.ReportCodes = []models.ReportCode{"99999"} }},
		{name: "unknown fs div", mutate: func(r *aggregate.Request) { r.FsDiv = "XYZ" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := aggregate.Aggregate(context.Background(), req, src.fetch)
			require.ErrorIs(t, err, aggregate.ErrInvalidRequest)
		})
	}

	_, err := aggregate.Aggregate(context.Background(), valid, nil)
	require.ErrorIs(t, err, aggregate.ErrInvalidRequest)
	require.Empty(t, src.calls)
}

func TestTasksCartesianProduct(t *testing.T) {
	tasks := aggregate.Tasks(
		[]int{2023, 2022, 2023},
		[]models.ReportCode{models.ReportQ3, models.ReportAnnual},
	)
	require.Equal(t, []aggregate.Task{
		{Year: 2022, ReportCode: models.ReportAnnual},
		{Year: 2022, ReportCode: models.ReportQ3},
		{Year: 2023, ReportCode: models.ReportAnnual},
		{Year: 2023, ReportCode: models.ReportQ3},
	}, tasks)

	require.Empty(t, aggregate.Tasks(nil, []models.ReportCode{models.ReportAnnual}))
	require.Equal(t, aggregate.ModeSingle, aggregate.ModeFor([]int{2023, 2023}, []models.ReportCode{models.ReportAnnual}))
}
